// Package collector turns a Reddit user's posts and comments into a single
// markdown document, reporting progress to the task as it goes.
//
// Both feeds are listed in full before any section is rendered, which makes
// the totals shown to pollers exact for the snapshot being rendered.
package collector

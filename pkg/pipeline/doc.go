// Package pipeline wires the collector and the report generator into one
// background run per request and records the outcome in the task store.
package pipeline

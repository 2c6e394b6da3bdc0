// Package analysis wraps the remote generative model that turns a collected
// document into a report. Service is the seam the report generator depends
// on; Gemini is the production implementation.
package analysis

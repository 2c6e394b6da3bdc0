// Package report produces the analysis report for a collected document.
//
// The generator stores the document in scratch storage, uploads it, waits for
// the analysis service to finish processing it within a fixed number of
// polls, then asks the model for the report through a two-turn conversation.
// The temporary document and the remote copy are removed on every exit path.
package report

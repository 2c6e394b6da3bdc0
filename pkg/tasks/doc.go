// Package tasks is the in-memory progress store polled by clients while an
// analysis runs.
//
// A Task moves forward only: Pending, In Progress, Processing, then Completed
// or Failed. Terminal tasks reject every mutation. The report path is set by
// Complete and by nothing else.
package tasks

// Package worker runs background jobs behind a recover boundary so a fault in
// one analysis never takes down the process or leaves its task unfinished.
package worker

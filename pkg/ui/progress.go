package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"redditanalyzer/pkg/tasks"
)

// ProgressPrinter writes one line per observed change of a task. Repeated
// snapshots with nothing new are ignored.
type ProgressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	started time.Time
	last    map[string]tasks.Snapshot
}

// NewProgressPrinter creates a printer writing to w
func NewProgressPrinter(w io.Writer) *ProgressPrinter {
	return &ProgressPrinter{
		w:       w,
		started: time.Now(),
		last:    make(map[string]tasks.Snapshot),
	}
}

// Observe prints snap if its status, progress message or counters changed
// and reports whether anything was written
func (p *ProgressPrinter) Observe(snap tasks.Snapshot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, seen := p.last[snap.ID]
	if seen && prev.Status == snap.Status && prev.Progress == snap.Progress && prev.Counts == snap.Counts {
		return false
	}
	p.last[snap.ID] = snap

	fmt.Fprintf(p.w, "[%s] %-11s %s%s\n",
		FormatElapsed(time.Since(p.started)),
		snap.Status,
		snap.Progress,
		formatCounts(snap.Counts),
	)
	return true
}

func formatCounts(c tasks.Counts) string {
	if c.TotalPosts == 0 && c.TotalComments == 0 {
		return ""
	}
	return fmt.Sprintf(" (posts %d/%d, comments %d/%d)",
		c.ScrapedPosts, c.TotalPosts, c.ScrapedComments, c.TotalComments)
}

// FormatElapsed renders d as mm:ss, or hh:mm:ss past the hour
func FormatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

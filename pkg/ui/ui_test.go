package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"redditanalyzer/pkg/tasks"
)

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	PrintError("Failed to load configuration", "bad port")
	PrintWarning("No profile stored")
	PrintInfo("Task", "abc")
	PrintSuccess("Report saved")

	out := buf.String()
	assert.Contains(t, out, "Failed to load configuration: bad port")
	assert.Contains(t, out, "No profile stored")
	assert.Contains(t, out, "Task:")
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "Report saved")
}

func TestProgressPrinterSkipsDuplicates(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressPrinter(&buf)

	snap := tasks.Snapshot{ID: "t1", Status: tasks.InProgress, Progress: "Scraping Reddit data..."}
	assert.True(t, p.Observe(snap))
	assert.False(t, p.Observe(snap))

	snap.Counts = tasks.Counts{TotalPosts: 3, ScrapedPosts: 1, TotalComments: 2}
	assert.True(t, p.Observe(snap))

	snap.Status = tasks.Completed
	snap.Progress = "Report generated successfully."
	assert.True(t, p.Observe(snap))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "(posts 1/3, comments 0/2)")
	assert.Contains(t, lines[2], "Completed")
	assert.NotContains(t, lines[0], "posts")
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00:05", FormatElapsed(5*time.Second))
	assert.Equal(t, "02:03", FormatElapsed(2*time.Minute+3*time.Second))
	assert.Equal(t, "01:00:01", FormatElapsed(time.Hour+time.Second))
}

package tasks

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"redditanalyzer/pkg/logger"
)

// Status is the lifecycle position of a task
type Status int

const (
	Pending Status = iota
	InProgress
	Processing
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case InProgress:
		return "In Progress"
	case Processing:
		return "Processing"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether no further mutation is allowed
func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

var transitions = map[Status][]Status{
	Pending:    {InProgress, Failed},
	InProgress: {Processing, Failed},
	Processing: {Completed, Failed},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTerminal           = errors.New("task already finished")
	ErrInvalidCounts      = errors.New("invalid progress counts")
	ErrNotReady           = errors.New("report is not ready yet")
	ErrDeliveryInProgress = errors.New("report download already in progress")
	ErrNotFound           = errors.New("task not found")
)

// Counts tracks collection progress for posts and comments
type Counts struct {
	TotalPosts      int `json:"total_posts"`
	ScrapedPosts    int `json:"scraped_posts"`
	TotalComments   int `json:"total_comments"`
	ScrapedComments int `json:"scraped_comments"`
}

// Snapshot is an immutable copy of a task handed to readers
type Snapshot struct {
	ID         string
	Username   string
	Status     Status
	Progress   string
	Counts     Counts
	ReportPath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Task is the mutable state of one analysis request. Its worker is the only
// writer; pollers read through Snapshot.
type Task struct {
	mu sync.Mutex

	id         string
	username   string
	status     Status
	progress   string
	counts     Counts
	reportPath string
	delivering bool
	createdAt  time.Time
	updatedAt  time.Time

	log logger.Logger
}

func newTask(id, username string, log logger.Logger) *Task {
	now := time.Now()
	return &Task{
		id:        id,
		username:  username,
		status:    Pending,
		createdAt: now,
		updatedAt: now,
		log:       log,
	}
}

// ID returns the task identifier
func (t *Task) ID() string {
	return t.id
}

// Snapshot returns a consistent copy of the task state
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         t.id,
		Username:   t.username,
		Status:     t.status,
		Progress:   t.progress,
		Counts:     t.counts,
		ReportPath: t.reportPath,
		CreatedAt:  t.createdAt,
		UpdatedAt:  t.updatedAt,
	}
}

// mutate runs fn under the task lock unless the task is terminal
func (t *Task) mutate(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, t.status)
	}
	if err := fn(); err != nil {
		return err
	}
	t.updatedAt = time.Now()
	return nil
}

// transitionLocked moves the task to next. Caller holds t.mu.
func (t *Task) transitionLocked(next Status, msg string) error {
	if !canTransition(t.status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.status, next)
	}
	logger.LogTaskTransition(t.log, t.id, t.status.String(), next.String(), msg)
	t.status = next
	t.progress = msg
	return nil
}

// SetProgress overwrites the progress message
func (t *Task) SetProgress(msg string) error {
	return t.mutate(func() error {
		t.progress = msg
		return nil
	})
}

// Start moves a pending task to InProgress
func (t *Task) Start(msg string) error {
	return t.mutate(func() error { return t.transitionLocked(InProgress, msg) })
}

// MarkProcessing moves a collecting task to Processing
func (t *Task) MarkProcessing(msg string) error {
	return t.mutate(func() error { return t.transitionLocked(Processing, msg) })
}

// Complete finishes the task and records the report location
func (t *Task) Complete(reportPath, msg string) error {
	if reportPath == "" {
		return fmt.Errorf("%w: empty report path", ErrInvalidTransition)
	}
	return t.mutate(func() error {
		if err := t.transitionLocked(Completed, msg); err != nil {
			return err
		}
		t.reportPath = reportPath
		return nil
	})
}

// Fail moves the task to Failed from any non-terminal state
func (t *Task) Fail(msg string) error {
	return t.mutate(func() error { return t.transitionLocked(Failed, msg) })
}

// SetTotals records the number of posts and comments to collect. Totals never
// decrease and never drop below what was already collected.
func (t *Task) SetTotals(posts, comments int) error {
	return t.mutate(func() error {
		if posts < t.counts.TotalPosts || comments < t.counts.TotalComments {
			return fmt.Errorf("%w: totals cannot decrease", ErrInvalidCounts)
		}
		t.counts.TotalPosts = posts
		t.counts.TotalComments = comments
		return nil
	})
}

// PostScraped increments the collected post counter
func (t *Task) PostScraped() error {
	return t.mutate(func() error {
		if t.counts.ScrapedPosts >= t.counts.TotalPosts {
			return fmt.Errorf("%w: scraped posts would exceed total %d", ErrInvalidCounts, t.counts.TotalPosts)
		}
		t.counts.ScrapedPosts++
		return nil
	})
}

// CommentScraped increments the collected comment counter
func (t *Task) CommentScraped() error {
	return t.mutate(func() error {
		if t.counts.ScrapedComments >= t.counts.TotalComments {
			return fmt.Errorf("%w: scraped comments would exceed total %d", ErrInvalidCounts, t.counts.TotalComments)
		}
		t.counts.ScrapedComments++
		return nil
	})
}

// BeginDelivery claims a completed task for streaming. Only one claim can be
// held at a time.
func (t *Task) BeginDelivery() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != Completed {
		return t.snapshotLocked(), ErrNotReady
	}
	if t.delivering {
		return t.snapshotLocked(), ErrDeliveryInProgress
	}
	t.delivering = true
	return t.snapshotLocked(), nil
}

// ReleaseDelivery drops a delivery claim after an interrupted download
func (t *Task) ReleaseDelivery() {
	t.mu.Lock()
	t.delivering = false
	t.mu.Unlock()
}

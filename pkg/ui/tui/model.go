package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"redditanalyzer/pkg/tasks"
)

// Log levels understood by the monitor
const (
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
	LevelSuccess = "SUCCESS"
)

const maxLogMessages = 50

// Source resolves a task id to its current state
type Source interface {
	Lookup(id string) (tasks.Snapshot, error)
}

// taskView is what the monitor last saw of one task
type taskView struct {
	snap    tasks.Snapshot
	gone    bool
	bar     progress.Model
	started time.Time
}

// LogMessage is one line of the monitor's activity log
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of the task monitor
type Model struct {
	source   Source
	interval time.Duration

	spinner spinner.Model
	order   []string
	views   map[string]*taskView

	logMessages []LogMessage
	started     time.Time

	width    int
	height   int
	showHelp bool
	done     bool
}

// NewModel creates a monitor for ids, refreshed from source every interval
func NewModel(source Source, interval time.Duration, ids ...string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	m := Model{
		source:   source,
		interval: interval,
		spinner:  s,
		views:    make(map[string]*taskView, len(ids)),
		started:  time.Now(),
	}
	for _, id := range ids {
		if _, dup := m.views[id]; dup {
			continue
		}
		bar := progress.New(progress.WithDefaultGradient())
		bar.Width = 40
		m.order = append(m.order, id)
		m.views[id] = &taskView{bar: bar, started: time.Now()}
	}
	return m
}

// Init starts the spinner and the first poll
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// addLog appends a log line, keeping only the newest entries
func (m *Model) addLog(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(m.logMessages) > maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-maxLogMessages:]
	}
}

// refresh polls the source for every watched task and logs what changed
func (m *Model) refresh() {
	for _, id := range m.order {
		view := m.views[id]
		if view.gone {
			continue
		}

		snap, err := m.source.Lookup(id)
		if err != nil {
			view.gone = true
			m.addLog(LevelWarn, "task "+shortID(id)+" is no longer tracked")
			continue
		}

		prev := view.snap
		view.snap = snap
		if prev.Status == snap.Status && prev.Progress == snap.Progress {
			continue
		}

		switch snap.Status {
		case tasks.Failed:
			m.addLog(LevelError, snap.Username+": "+snap.Progress)
		case tasks.Completed:
			m.addLog(LevelSuccess, snap.Username+": "+snap.Progress)
		default:
			if snap.Progress != "" {
				m.addLog(LevelInfo, snap.Username+": "+snap.Progress)
			}
		}
	}
}

// finished reports whether no watched task can change any more
func (m Model) finished() bool {
	for _, id := range m.order {
		view := m.views[id]
		if !view.gone && !view.snap.Status.Terminal() {
			return false
		}
	}
	return true
}

// Snapshot returns the last state seen for id
func (m Model) Snapshot(id string) (tasks.Snapshot, bool) {
	view, ok := m.views[id]
	if !ok || view.gone {
		return tasks.Snapshot{}, false
	}
	return view.snap, true
}

// Done reports whether every watched task reached a final state
func (m Model) Done() bool {
	return m.done
}

// Logs returns the activity log, oldest first
func (m Model) Logs() []LogMessage {
	return m.logMessages
}

// percent estimates completion of a task from its status and counters
func percent(snap tasks.Snapshot) float64 {
	switch snap.Status {
	case tasks.Pending:
		return 0
	case tasks.Processing:
		return 0.9
	case tasks.Completed:
		return 1
	}

	c := snap.Counts
	total := c.TotalPosts + c.TotalComments
	if total == 0 {
		return 0.05
	}
	done := c.ScrapedPosts + c.ScrapedComments
	return 0.05 + 0.85*float64(done)/float64(total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"imgpress/internal/processor"
)

const recentLines = 6

type Model struct {
	updates  <-chan processor.ProgressUpdate
	heading  string
	started  time.Time
	width    int
	total    int
	index    int
	current  string
	summary  processor.Summary
	recent   []string
	ready    chan<- struct{}
	quitting bool
}

type doneMsg struct{}

type updateMsg processor.ProgressUpdate

// NewModel renders a run of total files fed through updates. The program
// quits once updates is closed.
func NewModel(heading string, total int, updates <-chan processor.ProgressUpdate) Model {
	return Model{updates: updates, heading: heading, total: total, started: time.Now()}
}

// WithReady makes the model close ready once the program is rendering.
func (m Model) WithReady(ready chan<- struct{}) Model {
	m.ready = ready
	return m
}

func (m Model) Init() tea.Cmd {
	if m.ready == nil {
		return listenForUpdates(m.updates)
	}
	// Commands only run after the renderer has started.
	ready := m.ready
	return tea.Batch(listenForUpdates(m.updates), func() tea.Msg {
		close(ready)
		return nil
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m = m.apply(processor.ProgressUpdate(msg))
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) apply(u processor.ProgressUpdate) Model {
	if u.Total > 0 {
		m.total = u.Total
	}
	switch u.Kind {
	case processor.EventStarted:
		m.index = u.Index
		m.current = u.Name
		return m
	case processor.EventSkipped:
		m.summary.Skipped++
	case processor.EventDone:
		m.summary.Successful++
		m.summary.BytesIn += u.BytesIn
		m.summary.BytesOut += u.BytesOut
	case processor.EventFailed:
		m.summary.Failed++
	case processor.EventFinished:
		m.summary = u.Summary
		m.current = ""
		return m
	}

	m.recent = append(m.recent, Outcome(u))
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
	return m
}

func (m Model) View() string {
	lines := []string{titleStyle.Render(m.heading), ""}
	lines = append(lines, m.recent...)

	if m.quitting {
		return strings.Join(lines, "\n") + "\n"
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(50, float64(m.width-24)))
		if barWidth < 10 {
			barWidth = 10
		}
	}

	done := m.summary.Total()
	elapsed := time.Since(m.started).Round(time.Second)

	if m.current != "" {
		lines = append(lines, "", labelStyle.Render(fmt.Sprintf("Processing: %s", m.current)))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines,
		ProgressBar(barWidth, done, m.total),
		dimStyle.Render(fmt.Sprintf("ok:%d  skipped:%d  failed:%d  elapsed:%s",
			m.summary.Successful, m.summary.Skipped, m.summary.Failed, elapsed)),
	)

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan processor.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

// ProgressBar renders "[███░░░]  50.0% (1/2)".
func ProgressBar(width, current, total int) string {
	ratio := 0.0
	if total > 0 {
		ratio = float64(current) / float64(total)
		if ratio > 1 {
			ratio = 1
		}
	}
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
	return barStyle.Render(fmt.Sprintf("%s %5.1f%% (%d/%d)", bar, ratio*100, current, total))
}

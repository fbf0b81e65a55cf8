// Package tui implements a live terminal view of lock file states.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/lockrun/internal/config"
	"github.com/twiced-technology-gmbh/lockrun/internal/lockset"
	"github.com/twiced-technology-gmbh/lockrun/internal/watcher"
)

// Board is the top-level bubbletea model: one row per configured lock,
// re-probed on a timer and whenever the file watcher reports changes.
type Board struct {
	cfg      *config.Config
	entries  []lockset.Entry
	statuses []lockset.Status
	width    int
	height   int
	now      func() time.Time // clock for probes; defaults to time.Now
}

// Key bindings.
var keys = struct {
	Quit    key.Binding
	Refresh key.Binding
}{
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
	Refresh: key.NewBinding(key.WithKeys("r")),
}

// NewBoard creates a Board model from a config.
func NewBoard(cfg *config.Config) *Board {
	b := &Board{cfg: cfg, entries: cfg.Entries(), now: time.Now}
	b.probe()
	return b
}

// SetNow overrides the clock function used for probes (for testing).
func (b *Board) SetNow(fn func() time.Time) {
	b.now = fn
}

// WatchPaths returns the directories that should be watched for lock
// file changes.
func (b *Board) WatchPaths() []string {
	paths := make([]string, len(b.entries))
	for i, e := range b.entries {
		paths[i] = e.Path
	}
	return watcher.DirsOf(paths)
}

// ReloadMsg is sent by the file watcher to trigger a re-probe.
type ReloadMsg struct{}

// TickMsg is sent periodically: lock transitions produce no file events,
// so the board re-probes on a timer.
type TickMsg struct{}

func (b *Board) tickCmd() tea.Cmd {
	return tea.Tick(b.cfg.RefreshIntervalDuration(), func(time.Time) tea.Msg { return TickMsg{} })
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return b.tickCmd()
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return b, tea.Quit
		case key.Matches(msg, keys.Refresh):
			b.probe()
		}
		return b, nil
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil
	case ReloadMsg:
		b.probe()
		return b, nil
	case TickMsg:
		b.probe()
		return b, b.tickCmd()
	}
	return b, nil
}

func (b *Board) probe() {
	b.statuses = lockset.ProbeAll(b.entries, b.now())
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if len(b.statuses) == 0 {
		return "No locks configured.\n\n" + statusBarStyle.Render("q quit")
	}

	rows := b.renderRows()
	statusBar := b.renderStatusBar()

	view := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("lockrun"), "", rows, "", statusBar)

	// Clamp from the bottom at very small terminal sizes.
	if b.height > 0 {
		lines := strings.Split(view, "\n")
		if len(lines) > b.height {
			view = strings.Join(lines[:b.height], "\n")
		}
	}
	return view
}

func (b *Board) renderRows() string {
	nameW, stateW := 6, 7
	for _, s := range b.statuses {
		nameW = max(nameW, len(s.Name)+2)
		stateW = max(stateW, len(s.State)+3)
	}

	header := fmt.Sprintf("%-*s %-*s %-6s %s", nameW, "NAME", stateW, "STATE", "PID", "PATH")
	lines := []string{headerStyle.Render(strings.TrimRight(header, " "))}

	for _, s := range b.statuses {
		lines = append(lines, b.renderRow(s, nameW, stateW))
	}
	return strings.Join(lines, "\n")
}

func (b *Board) renderRow(s lockset.Status, nameW, stateW int) string {
	state := string(s.State)
	if st, ok := stateStyles[s.State]; ok {
		state = st.Render(state)
	}
	if s.Missing {
		state += dimStyle.Render("*")
	}

	pid := "--"
	if s.HolderPID != 0 {
		pid = strconv.Itoa(s.HolderPID)
	}

	row := fmt.Sprintf("%s %s %s %s",
		padRight(s.Name, nameW),
		padRight(state, stateW),
		padRight(pid, 6), //nolint:mnd // PID column width
		dimStyle.Render(s.Path))

	if s.Error != "" {
		row += "\n  " + errorStyle.Render("error: "+s.Error)
	}
	return row
}

func (b *Board) renderStatusBar() string {
	held := 0
	for _, s := range b.statuses {
		if s.State != lockset.StateFree {
			held++
		}
	}

	noun := "locks"
	if len(b.statuses) == 1 {
		noun = "lock"
	}
	status := fmt.Sprintf("%d %s, %d held · checked %s · r refresh · q quit",
		len(b.statuses), noun, held, b.lastChecked().Format("15:04:05"))
	return statusBarStyle.Render(status)
}

func (b *Board) lastChecked() time.Time {
	if len(b.statuses) == 0 {
		return b.now()
	}
	return b.statuses[0].CheckedAt
}

// padRight pads s with spaces to the given visible width, accounting for
// ANSI escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	// Lock state colors, aligned with the table output palette.
	stateStyles = map[lockset.State]lipgloss.Style{
		lockset.StateFree:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		lockset.StateRead:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		lockset.StateWrite: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

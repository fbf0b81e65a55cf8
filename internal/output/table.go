package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/twiced-technology-gmbh/lockrun/internal/lockset"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Lock state colors, shared with the watch TUI palette.
	stateStyles = map[string]lipgloss.Style{
		string(lockset.StateFree):  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		string(lockset.StateRead):  lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		string(lockset.StateWrite): lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// DisableColor strips all styling from table output and forces lipgloss
// to the plain-ASCII profile so the TUI renders uncolored too.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	stateStyles = map[string]lipgloss.Style{}
	errStyle = lipgloss.NewStyle()
}

// LockTable renders probed lock statuses as a formatted table.
func LockTable(w io.Writer, statuses []lockset.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No locks configured.")
		return
	}

	// Calculate column widths.
	const pad = 2
	nameW, stateW, pidW, pathW := 6, 7, 5, 6
	for _, s := range statuses {
		nameW = max(nameW, len(s.Name)+pad)
		stateW = max(stateW, len(stateDisplay(s))+pad)
		pidW = max(pidW, len(pidDisplay(s))+pad)
		pathW = max(pathW, len(s.Path)+pad)
	}

	// Print header.
	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		nameW, "NAME", stateW, "STATE", pidW, "PID", pathW, "PATH")
	fmt.Fprintln(w, headerStyle.Render(strings.TrimRight(header, " ")))

	// Print rows.
	for _, s := range statuses {
		row := fmt.Sprintf("%s %s %s %s",
			padRight(s.Name, nameW),
			padRight(styledState(s), stateW),
			padRight(pidDisplay(s), pidW),
			s.Path)
		fmt.Fprintln(w, strings.TrimRight(row, " "))

		if s.Error != "" {
			fmt.Fprintln(w, "  "+errStyle.Render("error: "+s.Error))
		}
	}
}

// Messagef writes a formatted one-line message.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

// stateDisplay returns the unstyled state cell text.
func stateDisplay(s lockset.Status) string {
	if s.Missing {
		return string(s.State) + "*"
	}
	return string(s.State)
}

// styledState renders the state cell with its color. Missing lock files
// are marked with a dimmed asterisk: no file means no holder.
func styledState(s lockset.Status) string {
	text := string(s.State)
	if st, ok := stateStyles[text]; ok {
		text = st.Render(text)
	}
	if s.Missing {
		text += dimStyle.Render("*")
	}
	return text
}

// pidDisplay returns the holder PID cell, "--" when there is no holder or
// the platform cannot report one.
func pidDisplay(s lockset.Status) string {
	if s.HolderPID == 0 {
		return "--"
	}
	return strconv.Itoa(s.HolderPID)
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

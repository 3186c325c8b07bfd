// Package picker is the interactive backup chooser used by
// "tagwarden backup restore --pick".
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tagwarden/internal/backup"
)

// ErrCancelled indicates the operator quit without choosing a backup.
var ErrCancelled = errors.New("no backup selected")

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle     = lipgloss.NewStyle().Faint(true)
)

// Model lists snapshots newest first. Implements tea.Model with value
// semantics.
type Model struct {
	snapshots []backup.Snapshot
	selected  int
	chosen    *backup.Snapshot
}

// New builds a model over snapshots given oldest first, as backup.List
// returns them.
func New(snapshots []backup.Snapshot) Model {
	ordered := make([]backup.Snapshot, len(snapshots))
	for i, snap := range snapshots {
		ordered[len(snapshots)-1-i] = snap
	}
	return Model{snapshots: ordered}
}

// Init returns nil; no commands needed at startup.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation, selection and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.snapshots)-1 {
			m.selected++
		}
	case "enter":
		if len(m.snapshots) == 0 {
			return m, nil
		}
		snap := m.snapshots[m.selected]
		m.chosen = &snap
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// View renders the list with the cursor on the selected snapshot.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select a Tags backup to restore"))
	b.WriteString("\n\n")
	if len(m.snapshots) == 0 {
		b.WriteString("  No backups found\n")
	}
	for i, snap := range m.snapshots {
		detail := detailStyle.Render(fmt.Sprintf("%s  %d files", snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.Files))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> "+snap.Name) + "  " + detail + "\n")
			continue
		}
		b.WriteString("  " + snap.Name + "  " + detail + "\n")
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("j/k or arrows to move, enter to restore, q to quit"))
	b.WriteString("\n")
	return b.String()
}

// Chosen returns the selected snapshot once enter was pressed.
func (m Model) Chosen() (backup.Snapshot, bool) {
	if m.chosen == nil {
		return backup.Snapshot{}, false
	}
	return *m.chosen, true
}

// Pick runs the chooser on the given terminal streams and returns the chosen
// snapshot, or ErrCancelled.
func Pick(ctx context.Context, snapshots []backup.Snapshot, in io.Reader, out io.Writer) (backup.Snapshot, error) {
	if len(snapshots) == 0 {
		return backup.Snapshot{}, backup.ErrNoBackups
	}
	program := tea.NewProgram(New(snapshots),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := program.Run()
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("backup picker: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return backup.Snapshot{}, ErrCancelled
	}
	snap, ok := model.Chosen()
	if !ok {
		return backup.Snapshot{}, ErrCancelled
	}
	return snap, nil
}

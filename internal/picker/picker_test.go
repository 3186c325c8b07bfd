package picker

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tagwarden/internal/backup"
)

var _ tea.Model = Model{}

func testSnapshots() []backup.Snapshot {
	base := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []backup.Snapshot{
		{Name: "Tags-backup-20260301093000", CreatedAt: base, Files: 3},
		{Name: "Tags-backup-20260302093000", CreatedAt: base.Add(24 * time.Hour), Files: 4},
		{Name: "Tags-backup-20260303093000", CreatedAt: base.Add(48 * time.Hour), Files: 5},
	}
}

func press(m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, key := range keys {
		var updated tea.Model
		updated, cmd = m.Update(key)
		m = updated.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelListsNewestFirst(t *testing.T) {
	m := New(testSnapshots())
	view := m.View()
	newest := strings.Index(view, "20260303")
	oldest := strings.Index(view, "20260301")
	if newest < 0 || oldest < 0 || newest > oldest {
		t.Fatalf("expected newest first:\n%s", view)
	}
}

func TestModelNavigation(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want string
	}{
		{"enter picks newest", nil, "Tags-backup-20260303093000"},
		{"j moves down", []tea.KeyMsg{runes("j")}, "Tags-backup-20260302093000"},
		{"arrow down twice", []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyDown}}, "Tags-backup-20260301093000"},
		{"stops at bottom", []tea.KeyMsg{runes("j"), runes("j"), runes("j")}, "Tags-backup-20260301093000"},
		{"k moves back up", []tea.KeyMsg{runes("j"), runes("k")}, "Tags-backup-20260303093000"},
		{"stops at top", []tea.KeyMsg{{Type: tea.KeyUp}}, "Tags-backup-20260303093000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := press(New(testSnapshots()), tc.keys...)
			m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
			if cmd == nil {
				t.Fatal("enter should quit the program")
			}
			snap, ok := m.Chosen()
			if !ok || snap.Name != tc.want {
				t.Fatalf("chosen = %q (%v), want %q", snap.Name, ok, tc.want)
			}
		})
	}
}

func TestModelQuitWithoutChoice(t *testing.T) {
	for _, key := range []tea.KeyMsg{runes("q"), {Type: tea.KeyEsc}} {
		m, cmd := press(New(testSnapshots()), key)
		if cmd == nil {
			t.Fatalf("%s should quit", key.String())
		}
		if _, ok := m.Chosen(); ok {
			t.Fatalf("%s should not choose a backup", key.String())
		}
	}
}

func TestModelEmpty(t *testing.T) {
	m, cmd := press(New(nil), tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("enter on an empty list should do nothing")
	}
	if !strings.Contains(m.View(), "No backups found") {
		t.Fatalf("unexpected view:\n%s", m.View())
	}
}

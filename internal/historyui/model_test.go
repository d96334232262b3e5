package historyui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuibeat/internal/model"
)

type fakeHistory struct {
	logs    []model.ExerciseLog
	err     error
	filters []model.HistoryFilter
}

func (f *fakeHistory) ListExerciseLogs(_ context.Context, filter model.HistoryFilter) ([]model.ExerciseLog, error) {
	f.filters = append(f.filters, filter)
	return f.logs, f.err
}

func sampleLogs() []model.ExerciseLog {
	end := time.Date(2024, 7, 1, 8, 0, 0, 0, time.Local)
	return []model.ExerciseLog{
		{ID: "a", EndedAt: end, DurationSeconds: 300, BPM: 80, SoundType: model.SoundBell},
		{ID: "b", EndedAt: end.Add(24 * time.Hour), DurationSeconds: 600, BPM: 120, SoundType: model.SoundBell},
	}
}

func TestOverviewShowsSummary(t *testing.T) {
	m := NewModel(&fakeHistory{logs: sampleLogs()}, model.HistoryFilter{}, 0)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	out := m.View()
	for _, want := range []string{"Overview", "Sessions", "15:00", "100.0", "bell", "moving average of 5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestSessionsTabListsNewestFirst(t *testing.T) {
	m := NewModel(&fakeHistory{logs: sampleLogs()}, model.HistoryFilter{}, 3)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSessions {
		t.Fatalf("expected sessions tab, got %d", m.activeTab)
	}
	rows := m.sessionTable.Rows()
	if len(rows) != 2 || !strings.HasPrefix(rows[0][0], "2024-07-02") {
		t.Fatalf("unexpected rows: %v", rows)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabSounds {
		t.Fatalf("tabs should wrap, got %d", m.activeTab)
	}
}

func TestWindowKeys(t *testing.T) {
	m := NewModel(&fakeHistory{logs: sampleLogs()}, model.HistoryFilter{}, 3)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	if m.window != 5 {
		t.Fatalf("expected window 5, got %d", m.window)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	if m.window != 10 {
		t.Fatalf("expected window 10, got %d", m.window)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.window != 1 {
		t.Fatalf("expected window 1, got %d", m.window)
	}
}

func TestFilterForm(t *testing.T) {
	src := &fakeHistory{logs: sampleLogs()}
	m := NewModel(src, model.HistoryFilter{}, 5)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[0].SetValue("2024-07-02")
	m.filterInputs[1].SetValue("1")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("filter should close on apply")
	}
	last := src.filters[len(src.filters)-1]
	if last.Last != 1 || last.Since == nil || last.Since.Day() != 2 {
		t.Fatalf("filter not passed to source: %+v", last)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m.filterInputs[1].SetValue("-3")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || m.filterError == "" {
		t.Fatalf("invalid filter should keep the form open with an error")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("esc should close the form")
	}
}

func TestLoadErrorShown(t *testing.T) {
	m := NewModel(&fakeHistory{err: errors.New("disk gone")}, model.HistoryFilter{}, 5)
	m.Update(tea.WindowSizeMsg{Width: 90, Height: 20})
	if !strings.Contains(m.View(), "disk gone") {
		t.Fatalf("expected error in footer")
	}
}

package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tuibeat/internal/model"
	"github.com/verte-zerg/tuibeat/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tuibeat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
		entry := model.ExerciseLog{
			ID:              fmt.Sprintf("log-%d", i),
			StartedAt:       start,
			EndedAt:         start.Add(time.Duration(i+1) * time.Minute),
			DurationSeconds: (i + 1) * 60,
			BPM:             60 + 30*i,
			SoundType:       model.SoundBeep,
		}
		if err := st.AppendExerciseLog(ctx, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	report, err := BuildReport(ctx, st, model.HistoryFilter{Last: 2}, 2)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(report.Logs))
	}
	if report.Logs[0].ID != "log-1" || report.Logs[1].ID != "log-2" {
		t.Fatalf("unexpected logs: %+v", report.Logs)
	}
	if report.Summary.Sessions != 2 || report.Summary.TotalSeconds != 300 || report.Summary.AverageBPM != 105 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if len(report.Trend) != 2 || report.Trend[0] != 2 || report.Trend[1] != 2.5 {
		t.Fatalf("unexpected trend: %v", report.Trend)
	}
	if len(report.Sounds) != 1 || report.Sounds[0].Sessions != 2 {
		t.Fatalf("unexpected sounds: %+v", report.Sounds)
	}
}

package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/verte-zerg/tuibeat/internal/model"
)

func TestSummarize(t *testing.T) {
	logs := []model.ExerciseLog{
		{DurationSeconds: 120, BPM: 60, SoundType: model.SoundBeep},
		{DurationSeconds: 300, BPM: 120, SoundType: model.SoundVoice},
		{DurationSeconds: 60, BPM: 90, SoundType: model.SoundVoice},
	}
	sum := Summarize(logs)
	if sum.Sessions != 3 || sum.TotalSeconds != 480 || sum.LongestSeconds != 300 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if sum.AverageSeconds != 160 || sum.AverageBPM != 90 {
		t.Fatalf("unexpected averages: %+v", sum)
	}
	if sum.FavoriteSound != model.SoundVoice {
		t.Fatalf("expected voice as favorite, got %s", sum.FavoriteSound)
	}
	if (Summarize(nil) != Summary{}) {
		t.Fatalf("expected zero summary for no logs")
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4}, 2)
	want := []float64{1, 1.5, 2.5, 3.5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestMovingAverageStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Float64Range(0, 120), 1, 50).Draw(t, "values")
		window := rapid.IntRange(0, 10).Draw(t, "window")
		out := MovingAverage(values, window)
		if len(out) != len(values) {
			t.Fatalf("length changed: %d -> %d", len(values), len(out))
		}
		for i, v := range out {
			if v < -1e-9 || v > 120+1e-9 {
				t.Fatalf("index %d out of range: %v", i, v)
			}
		}
	})
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 5, 10}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3}); got != "++" {
		t.Fatalf("flat series should render mid glyphs, got %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:    "0:00",
		59:   "0:59",
		61:   "1:01",
		3600: "1:00:00",
		3725: "1:02:05",
		-5:   "0:00",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderHistory(t *testing.T) {
	end := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)
	logs := []model.ExerciseLog{
		{EndedAt: end, DurationSeconds: 90, BPM: 60, SoundType: model.SoundBeep},
		{EndedAt: end.Add(time.Hour), DurationSeconds: 600, BPM: 128, SoundType: model.SoundClap, EnableCount: true, CountMax: 8, Preset: "run"},
	}
	var buf bytes.Buffer
	if err := RenderSummary(&buf, logs); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if err := RenderTrend(&buf, logs, 3); err != nil {
		t.Fatalf("trend: %v", err)
	}
	if err := RenderHistoryTable(&buf, logs); err != nil {
		t.Fatalf("table: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Total time: 11:30", "Avg BPM: 94.0", "Duration trend", "1-8", "run"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	lines := strings.Split(out, "\n")
	var tableStart int
	for i, l := range lines {
		if strings.HasPrefix(l, "Ended") {
			tableStart = i
		}
	}
	if !strings.Contains(lines[tableStart+1], "2024-06-01 10:00") {
		t.Fatalf("newest log should be listed first: %q", lines[tableStart+1])
	}

	buf.Reset()
	if err := RenderSummary(&buf, nil); err != nil || !strings.Contains(buf.String(), "No sessions") {
		t.Fatalf("expected empty message, got %q (%v)", buf.String(), err)
	}
}

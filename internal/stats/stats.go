// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/tuibeat/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of exercise logs.
type Summary struct {
	Sessions       int
	TotalSeconds   int
	AverageSeconds float64
	AverageBPM     float64
	LongestSeconds int
	FavoriteSound  model.SoundType
}

// Summarize computes aggregate figures for logs.
func Summarize(logs []model.ExerciseLog) Summary {
	if len(logs) == 0 {
		return Summary{}
	}
	var sum Summary
	var bpmSum int
	for _, l := range logs {
		sum.TotalSeconds += l.DurationSeconds
		bpmSum += l.BPM
		if l.DurationSeconds > sum.LongestSeconds {
			sum.LongestSeconds = l.DurationSeconds
		}
	}
	sum.Sessions = len(logs)
	sum.AverageSeconds = float64(sum.TotalSeconds) / float64(len(logs))
	sum.AverageBPM = float64(bpmSum) / float64(len(logs))
	if usage := SoundUsage(logs, 1); len(usage) > 0 {
		sum.FavoriteSound = usage[0].Sound
	}
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Durations returns session lengths in minutes.
func Durations(logs []model.ExerciseLog) []float64 {
	out := make([]float64, len(logs))
	for i, l := range logs {
		out[i] = float64(l.DurationSeconds) / 60
	}
	return out
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// RenderSummary prints a summary block for logs.
func RenderSummary(w io.Writer, logs []model.ExerciseLog) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(logs)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Total time: %s", FormatDuration(sum.TotalSeconds)),
		fmt.Sprintf("Avg duration: %s", FormatDuration(int(math.Round(sum.AverageSeconds)))),
		fmt.Sprintf("Longest: %s", FormatDuration(sum.LongestSeconds)),
		fmt.Sprintf("Avg BPM: %.1f", sum.AverageBPM),
		fmt.Sprintf("Favorite sound: %s", sum.FavoriteSound),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints the smoothed duration sparkline.
func RenderTrend(w io.Writer, logs []model.ExerciseLog, window int) error {
	if len(logs) < 2 {
		return nil
	}
	line := Sparkline(MovingAverage(Durations(logs), window))
	_, err := fmt.Fprintf(w, "Duration trend (avg of %d): [%s]\n\n", max(window, 1), line)
	return err
}

// HistoryRows formats logs newest first for table display.
func HistoryRows(logs []model.ExerciseLog) [][]string {
	rows := make([][]string, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		count := "off"
		if l.EnableCount {
			count = fmt.Sprintf("1-%d", l.CountMax)
		}
		preset := l.Preset
		if preset == "" {
			preset = "-"
		}
		rows = append(rows, []string{
			l.EndedAt.Local().Format("2006-01-02 15:04"),
			FormatDuration(l.DurationSeconds),
			fmt.Sprintf("%d", l.BPM),
			string(l.SoundType),
			count,
			preset,
		})
	}
	return rows
}

// HistoryHeaders are the column titles for HistoryRows.
var HistoryHeaders = []string{"Ended", "Duration", "BPM", "Sound", "Count", "Preset"}

// RenderHistoryTable prints logs as an aligned table.
func RenderHistoryTable(w io.Writer, logs []model.ExerciseLog) error {
	if len(logs) == 0 {
		return nil
	}
	rightAlign := map[int]bool{1: true, 2: true}
	for _, line := range FormatTable(HistoryHeaders, HistoryRows(logs), rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

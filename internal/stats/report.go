package stats

import (
	"context"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// HistorySource lists recorded exercise logs.
type HistorySource interface {
	ListExerciseLogs(ctx context.Context, filter model.HistoryFilter) ([]model.ExerciseLog, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Logs    []model.ExerciseLog
	Summary Summary
	Sounds  []SoundCount
	Trend   []float64
}

// BuildReport loads and prepares data for history rendering. The trend is
// session duration in minutes smoothed over window sessions.
func BuildReport(ctx context.Context, src HistorySource, filter model.HistoryFilter, window int) (Report, error) {
	logs, err := src.ListExerciseLogs(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	if filter.Last > 0 && len(logs) > filter.Last {
		logs = logs[len(logs)-filter.Last:]
	}
	return Report{
		Logs:    logs,
		Summary: Summarize(logs),
		Sounds:  SoundUsage(logs, 0),
		Trend:   MovingAverage(Durations(logs), window),
	}, nil
}

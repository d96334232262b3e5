package stats

import (
	"testing"

	"github.com/verte-zerg/tuibeat/internal/model"
)

func TestSoundUsage(t *testing.T) {
	logs := []model.ExerciseLog{
		{SoundType: model.SoundBell, DurationSeconds: 60},
		{SoundType: model.SoundClap, DurationSeconds: 30},
		{SoundType: model.SoundBell, DurationSeconds: 10},
		{SoundType: model.SoundClap, DurationSeconds: 90},
		{SoundType: model.SoundTick, DurationSeconds: 500},
	}
	top := SoundUsage(logs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 sounds, got %d", len(top))
	}
	if top[0].Sound != model.SoundClap || top[1].Sound != model.SoundBell {
		t.Fatalf("unexpected order: %+v", top)
	}
	if top[0].Sessions != 2 || top[0].Seconds != 120 {
		t.Fatalf("unexpected clap totals: %+v", top[0])
	}
	if all := SoundUsage(logs, 0); len(all) != 3 {
		t.Fatalf("expected all 3 sounds, got %d", len(all))
	}
	if SoundUsage(nil, 3) != nil {
		t.Fatalf("expected nil for no logs")
	}
}

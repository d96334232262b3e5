package stats

import (
	"sort"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// SoundCount is how often a beat sound was used.
type SoundCount struct {
	Sound    model.SoundType
	Sessions int
	Seconds  int
}

// SoundUsage returns the top n sounds by session count, ties broken by
// total time and then name. n <= 0 returns all.
func SoundUsage(logs []model.ExerciseLog, n int) []SoundCount {
	if len(logs) == 0 {
		return nil
	}
	byName := map[model.SoundType]*SoundCount{}
	for _, l := range logs {
		sc, ok := byName[l.SoundType]
		if !ok {
			sc = &SoundCount{Sound: l.SoundType}
			byName[l.SoundType] = sc
		}
		sc.Sessions++
		sc.Seconds += l.DurationSeconds
	}
	items := make([]SoundCount, 0, len(byName))
	for _, sc := range byName {
		items = append(items, *sc)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sessions != items[j].Sessions {
			return items[i].Sessions > items[j].Sessions
		}
		if items[i].Seconds != items[j].Seconds {
			return items[i].Seconds > items[j].Seconds
		}
		return items[i].Sound < items[j].Sound
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

package speech

import (
	"strconv"
	"testing"

	"pgregory.net/rapid"

	"github.com/verte-zerg/tuibeat/internal/model"
)

func TestNumberTextWords(t *testing.T) {
	cases := []struct {
		n    int
		lang model.VoiceLanguage
		want string
	}{
		{1, model.LangEN, "One"},
		{8, model.LangEN, "Eight"},
		{20, model.LangEN, "Twenty"},
		{1, model.LangZH, "一"},
		{10, model.LangZH, "十"},
		{11, model.LangZH, "十一"},
		{20, model.LangZH, "二十"},
		{21, model.LangEN, "21"},
		{21, model.LangZH, "21"},
	}
	for _, tc := range cases {
		if got := NumberText(tc.n, tc.lang); got != tc.want {
			t.Fatalf("NumberText(%d, %s) = %q, want %q", tc.n, tc.lang, got, tc.want)
		}
	}
}

func TestNumberTextAboveTwentyIsDigits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(21, 100000).Draw(t, "n")
		lang := rapid.SampledFrom([]model.VoiceLanguage{model.LangEN, model.LangZH}).Draw(t, "lang")
		if got := NumberText(n, lang); got != strconv.Itoa(n) {
			t.Fatalf("NumberText(%d) = %q", n, got)
		}
	})
}

func TestNumberTextWordsAreDistinct(t *testing.T) {
	for _, lang := range []model.VoiceLanguage{model.LangEN, model.LangZH} {
		seen := map[string]bool{}
		for n := 1; n <= 20; n++ {
			w := NumberText(n, lang)
			if seen[w] || w == strconv.Itoa(n) {
				t.Fatalf("%s: bad word %q for %d", lang, w, n)
			}
			seen[w] = true
		}
	}
}

func TestSpeechRateClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bpm := rapid.IntRange(-100, 1000).Draw(t, "bpm")
		rate := SpeechRate(bpm)
		if rate < 0.5 || rate > 2.5 {
			t.Fatalf("SpeechRate(%d) = %v out of range", bpm, rate)
		}
		if bpm >= 30 && bpm <= 150 && rate != float64(bpm)/60 {
			t.Fatalf("SpeechRate(%d) = %v, want %v", bpm, rate, float64(bpm)/60)
		}
	})
	if got := SpeechRate(60); got != 1 {
		t.Fatalf("expected rate 1 at 60 BPM, got %v", got)
	}
	if got := SpeechRate(200); got != 2.5 {
		t.Fatalf("expected rate 2.5 at 200 BPM, got %v", got)
	}
}

func TestLangTagAndPitch(t *testing.T) {
	if LangTag(model.LangZH) != "zh-CN" || LangTag(model.LangEN) != "en-US" {
		t.Fatalf("unexpected language tags")
	}
	if Pitch(model.GenderMale) != 0.8 || Pitch(model.GenderFemale) != 1.2 {
		t.Fatalf("unexpected pitch values")
	}
}

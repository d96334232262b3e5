package speech

import (
	"strings"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// Voice is a voice reported by a backend.
type Voice struct {
	// ID is what the backend accepts to select the voice.
	ID   string
	Name string
	// Lang is the primary language tag; Aliases lists other tags it serves.
	Lang    string
	Aliases []string
	// Gender is "male", "female", or empty when unknown.
	Gender string
}

var (
	maleKeywords   = []string{"male", "david", "daniel", "james", "google male"}
	femaleKeywords = []string{"female", "zira", "karen", "samantha", "google female", "huihui", "yaoyao", "ting-ting", "mei-jia"}
)

func (v Voice) speaks(code string) bool {
	if strings.HasPrefix(strings.ToLower(v.Lang), code) {
		return true
	}
	for _, a := range v.Aliases {
		if strings.HasPrefix(strings.ToLower(a), code) {
			return true
		}
	}
	return false
}

func (v Voice) matchesGender(gender model.VoiceGender) bool {
	name := strings.ToLower(v.Name)
	keywords := femaleKeywords
	if gender == model.GenderMale {
		keywords = maleKeywords
		// "female" contains "male"
		if strings.Contains(name, "female") {
			return false
		}
	}
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return v.Gender == string(gender)
}

// SelectVoice picks a voice for lang, preferring one that matches gender.
// It falls back to the first voice for the language and reports false when
// none speaks it.
func SelectVoice(voices []Voice, lang model.VoiceLanguage, gender model.VoiceGender) (Voice, bool) {
	code := string(model.LangEN)
	if lang == model.LangZH {
		code = string(model.LangZH)
	}
	var matches []Voice
	for _, v := range voices {
		if v.speaks(code) {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return Voice{}, false
	}
	for _, v := range matches {
		if v.matchesGender(gender) {
			return v, true
		}
	}
	return matches[0], true
}

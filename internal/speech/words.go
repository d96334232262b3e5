// Package speech speaks counting cues through a text-to-speech backend.
package speech

import (
	"strconv"

	"github.com/verte-zerg/tuibeat/internal/model"
)

var (
	chineseNumbers = []string{
		"一", "二", "三", "四", "五", "六", "七", "八", "九", "十",
		"十一", "十二", "十三", "十四", "十五", "十六", "十七", "十八", "十九", "二十",
	}
	englishNumbers = []string{
		"One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine", "Ten",
		"Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen",
		"Sixteen", "Seventeen", "Eighteen", "Nineteen", "Twenty",
	}
)

// NumberText returns the spoken word for n. Only 1..20 have words; other
// values render as decimal digits.
func NumberText(n int, lang model.VoiceLanguage) string {
	words := englishNumbers
	if lang == model.LangZH {
		words = chineseNumbers
	}
	if n >= 1 && n <= len(words) {
		return words[n-1]
	}
	return strconv.Itoa(n)
}

// SpeechRate maps a tempo to a speaking rate, 1.0 at 60 BPM.
func SpeechRate(bpm int) float64 {
	rate := float64(bpm) / 60
	if rate < 0.5 {
		return 0.5
	}
	if rate > 2.5 {
		return 2.5
	}
	return rate
}

// LangTag returns the BCP 47 tag used for lang.
func LangTag(lang model.VoiceLanguage) string {
	if lang == model.LangZH {
		return "zh-CN"
	}
	return "en-US"
}

// Pitch returns the pitch multiplier for gender.
func Pitch(gender model.VoiceGender) float64 {
	if gender == model.GenderMale {
		return 0.8
	}
	return 1.2
}

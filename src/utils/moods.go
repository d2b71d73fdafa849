package utils

import (
	"strings"

	"github.com/enescakir/emoji"
)

// MoodMeta is the display metadata of a mood code.
type MoodMeta struct {
	Code  string
	Emoji string
	Label string
}

// TopLimit caps how many top moods are displayed.
const TopLimit = 5

var moodEmoji = map[string]emoji.Emoji{
	"HAPPY":     emoji.SmilingFaceWithSmilingEyes,
	"SAD":       emoji.CryingFace,
	"TIRED":     emoji.SleepingFace,
	"ANGRY":     emoji.AngryFace,
	"CALM":      emoji.RelievedFace,
	"EXCITED":   emoji.StarStruck,
	"NEUTRAL":   emoji.NeutralFace,
	"POSITIVE":  emoji.SlightlySmilingFace,
	"ENERGETIC": emoji.HighVoltage,
}

var moodLabels = map[string]map[string]string{
	"en": {
		"HAPPY": "Happy", "SAD": "Sad", "TIRED": "Tired", "ANGRY": "Angry", "CALM": "Calm",
		"EXCITED": "Excited", "NEUTRAL": "Neutral", "POSITIVE": "Positive", "ENERGETIC": "Energetic",
	},
	"ru": {
		"HAPPY": "Счастлив", "SAD": "Грустно", "TIRED": "Устал", "ANGRY": "Злой", "CALM": "Спокоен",
		"EXCITED": "Воодушевлён", "NEUTRAL": "Нейтрально", "POSITIVE": "Позитивно", "ENERGETIC": "Энергичен",
	},
	"uz": {
		"HAPPY": "Baxtli", "SAD": "Xafa", "TIRED": "Charchagan", "ANGRY": "Jahldor", "CALM": "Xotirjam",
		"EXCITED": "Hayajonlangan", "NEUTRAL": "Neytral", "POSITIVE": "Ijobiy", "ENERGETIC": "G'ayratli",
	},
}

// -----------------------------------------------------------------------------

// GetMoodMeta returns the emoji and localized label of a mood code.
// Unknown codes keep their code as label and have no emoji.
func GetMoodMeta(code, locale string) MoodMeta {
	c := strings.ToUpper(strings.TrimSpace(code))
	meta := MoodMeta{Code: c, Label: c}
	if e, ok := moodEmoji[c]; ok {
		meta.Emoji = string(e)
	}
	if label, ok := moodLabels[NormalizeLocale(locale)][c]; ok {
		meta.Label = label
	}
	return meta
}

// -----------------------------------------------------------------------------

// MapTop resolves at most TopLimit mood codes for display.
func MapTop(codes []string, locale string) []MoodMeta {
	if len(codes) > TopLimit {
		codes = codes[:TopLimit]
	}
	out := make([]MoodMeta, 0, len(codes))
	for _, c := range codes {
		out = append(out, GetMoodMeta(c, locale))
	}
	return out
}

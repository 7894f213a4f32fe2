package tts

import (
	"math"
	"strings"
)

// WordsPerMinute is the assumed speaking rate for duration estimates.
const WordsPerMinute = 150

// EstimateDuration returns the expected playback length of text in seconds,
// rounded to one decimal place. Words are maximal runs of non-whitespace.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	seconds := float64(words) / WordsPerMinute * 60
	return math.Round(seconds*10) / 10
}

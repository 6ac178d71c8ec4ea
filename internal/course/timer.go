package course

import (
	"time"

	"github.com/nlavrov/studium/internal/model"
)

// minutesPerQuestion is the time allowance per test question. Easier
// questions get more time because they are answered in prose by weaker
// students; hard tests are deliberately tight.
var minutesPerQuestion = map[model.Difficulty]int{
	model.DifficultyEasy:   8,
	model.DifficultyMedium: 5,
	model.DifficultyHard:   3,
}

// MinutesPerQuestion returns the per-question time allowance for a level.
func MinutesPerQuestion(d model.Difficulty) int {
	if m, ok := minutesPerQuestion[d]; ok {
		return m
	}
	return minutesPerQuestion[model.DifficultyMedium]
}

// TestDuration is the total time allowed for a test.
func TestDuration(d model.Difficulty, questionCount int) time.Duration {
	return time.Duration(MinutesPerQuestion(d)*questionCount) * time.Minute
}

// RemainingSeconds computes how much test time is left at now. Pure: the
// caller supplies the clock. Negative results clamp to zero.
func RemainingSeconds(start, now time.Time, d model.Difficulty, questionCount int) int {
	total := int(TestDuration(d, questionCount).Seconds())
	elapsed := int(now.Sub(start).Seconds())
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

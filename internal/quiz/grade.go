package quiz

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/nlavrov/studium/internal/llm/prompts"
	"github.com/nlavrov/studium/internal/model"
	"github.com/nlavrov/studium/internal/parse"
)

// gradingTemperature keeps rubric grading near-deterministic.
const gradingTemperature = 0.2

// MCScore values for a multiple-choice answer.
const (
	MCScoreCorrect = 10.0
	MCScoreWrong   = 0.0
)

// GradeMC scores a multiple-choice answer. Deterministic: correct letter
// scores 10, anything else (including blank) scores 0.
func GradeMC(q model.MCQuestion, answer string) model.Grade {
	answer = strings.TrimSpace(answer)
	if answer == q.Correct {
		return model.Grade{
			Score:    MCScoreCorrect,
			Feedback: "Correct! " + q.Explanation,
		}
	}
	return model.Grade{
		Score: MCScoreWrong,
		Feedback: fmt.Sprintf("Incorrect. The correct answer is %s: %s. %s",
			q.Correct, q.Options[q.Correct], q.Explanation),
	}
}

// GradeOpen scores an open-ended answer against its rubric focus. A blank
// answer short-circuits to zero with canned feedback and no model call.
func GradeOpen(ctx context.Context, g Generator, q model.OpenQuestion, answer, material string) (model.Grade, error) {
	if grade, blank := blankGrade(answer); blank {
		return grade, nil
	}

	prompt := prompts.RubricGrade(q.Question, q.RubricFocus, answer, material)
	raw, err := g.Generate(ctx, prompt, gradingTemperature)
	if err != nil {
		return model.Grade{}, fmt.Errorf("grade answer: %w", err)
	}
	return parse.RubricBlock(raw), nil
}

// GradeOpenSimple scores an open-ended answer with the short score and
// feedback format used for practice drills, where the full rubric
// breakdown is more than the student needs. Blank answers short-circuit
// exactly like GradeOpen.
func GradeOpenSimple(ctx context.Context, g Generator, q model.OpenQuestion, answer, material string) (model.Grade, error) {
	if grade, blank := blankGrade(answer); blank {
		return grade, nil
	}

	raw, err := g.Generate(ctx, prompts.SimpleGrade(q.Question, answer, material), gradingTemperature)
	if err != nil {
		return model.Grade{}, fmt.Errorf("grade answer: %w", err)
	}
	return parse.ScoreFeedback(raw), nil
}

func blankGrade(answer string) (model.Grade, bool) {
	if strings.TrimSpace(answer) != "" {
		return model.Grade{}, false
	}
	return model.Grade{
		Score:      0,
		Feedback:   "No answer provided.",
		Weaknesses: "Answer was blank.",
		Revision:   "Attempt the question using the study material.",
	}, true
}

// ScoreSummary reduces a set of grades to an average (rounded to one
// decimal) and a verdict label. No grades means nothing was attempted.
func ScoreSummary(grades []model.Grade) (float64, string) {
	if len(grades) == 0 {
		return 0, "Not attempted"
	}

	var total float64
	for _, g := range grades {
		total += g.Score
	}
	avg := math.Round(total/float64(len(grades))*10) / 10

	switch {
	case avg >= 8.5:
		return avg, "🏆 Excellent"
	case avg >= 7.0:
		return avg, "✅ Good"
	case avg >= 5.0:
		return avg, "⚠️ Moderate"
	default:
		return avg, "❌ Needs Improvement"
	}
}

// Package quiz generates and grades practice questions. Generation goes
// through the gateway and the lenient parser; grading of multiple choice
// is deterministic and never touches the model.
package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/nlavrov/studium/internal/llm/prompts"
	"github.com/nlavrov/studium/internal/model"
	"github.com/nlavrov/studium/internal/parse"
)

// Generator is the slice of the AI gateway the quiz engine needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// generationTemperature keeps question wording varied without drifting
// from the material.
const generationTemperature = 0.3

var optionLetters = []string{"A", "B", "C", "D"}

// GenerateMC produces a batch of multiple-choice questions grounded in
// the given context, with options shuffled. An unparseable response
// yields an error and no questions.
func GenerateMC(ctx context.Context, g Generator, material string, count int, difficulty model.Difficulty) ([]model.Question, error) {
	raw, err := g.Generate(ctx, prompts.MCQuestions(material, count, difficulty), generationTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	parsed := parse.MCQuestions(raw)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no usable questions in model response")
	}

	questions := make([]model.Question, 0, len(parsed))
	for i := range parsed {
		q := parsed[i]
		ShuffleOptions(&q)
		questions = append(questions, model.Question{Kind: model.KindMultipleChoice, MC: &q})
	}
	return questions, nil
}

// GenerateOpen produces a batch of open-ended questions. timedTest selects
// the stricter conceptual-to-integrative progression.
func GenerateOpen(ctx context.Context, g Generator, material string, count int, difficulty model.Difficulty, timedTest bool) ([]model.Question, error) {
	raw, err := g.Generate(ctx, prompts.OpenQuestions(material, count, difficulty, timedTest), generationTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	parsed := parse.OpenQuestions(raw)
	if len(parsed) == 0 {
		// Some models answer with numbered prose instead of JSON;
		// recover what we can.
		for _, text := range parse.NumberedQuestions(raw) {
			parsed = append(parsed, model.OpenQuestion{Question: text, Type: "Conceptual"})
		}
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("no usable questions in model response")
	}

	questions := make([]model.Question, 0, len(parsed))
	for i := range parsed {
		q := parsed[i]
		questions = append(questions, model.Question{Kind: model.KindOpenEnded, Open: &q})
	}
	return questions, nil
}

// ShuffleOptions permutes a question's four options and recomputes the
// correct letter by tracking where the original correct letter's entry
// lands. Tracking by letter rather than by option text keeps duplicate
// option texts from mislabeling the answer.
func ShuffleOptions(q *model.MCQuestion) {
	perm := rand.Perm(len(optionLetters))

	shuffled := make(map[string]string, len(optionLetters))
	newCorrect := q.Correct
	for newPos, oldPos := range perm {
		oldLetter := optionLetters[oldPos]
		shuffled[optionLetters[newPos]] = q.Options[oldLetter]
		if oldLetter == q.Correct {
			newCorrect = optionLetters[newPos]
		}
	}

	q.Options = shuffled
	q.Correct = newCorrect
}

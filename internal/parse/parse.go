// Package parse recovers structured data from model output. Every function
// here is total: malformed input yields an empty result, never an error or
// a panic, so a bad generation can cost the user a retry but nothing else.
package parse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/nlavrov/studium/internal/model"
)

var (
	fenceRegex    = regexp.MustCompile("```(?:json)?")
	questionStart = regexp.MustCompile(`(?i)^\s*(\d+[.)]|question\s+\d+)`)

	scoreRegex      = regexp.MustCompile(`SCORE:\s*(\d+)`)
	strengthsRegex  = regexp.MustCompile(`(?s)STRENGTHS:\s*(.*?)(?:WEAKNESSES:|$)`)
	weaknessesRegex = regexp.MustCompile(`(?s)WEAKNESSES:\s*(.*?)(?:REVISION:|$)`)
	revisionRegex   = regexp.MustCompile(`(?s)REVISION:\s*(.*)`)
	feedbackRegex   = regexp.MustCompile(`(?s)FEEDBACK:\s*(.*)`)
)

// stripFences removes markdown code fences so fenced JSON still parses.
func stripFences(raw string) string {
	return strings.TrimSpace(fenceRegex.ReplaceAllString(raw, ""))
}

// Flashcards decodes a flashcard list from raw model output. Elements
// missing front or back are dropped.
func Flashcards(raw string) []model.Flashcard {
	var cards []model.Flashcard
	if err := json.Unmarshal([]byte(stripFences(raw)), &cards); err != nil {
		return nil
	}
	valid := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Front) != "" && strings.TrimSpace(c.Back) != "" {
			valid = append(valid, c)
		}
	}
	return valid
}

// mcLetters are the only option keys a well-formed question may carry.
var mcLetters = []string{"A", "B", "C", "D"}

// MCQuestions decodes a multiple-choice question list from raw model
// output. Elements missing the question text are dropped, as are elements
// whose options are not exactly the keys A through D or whose correct
// letter is not one of those keys: everything downstream (shuffling,
// grading, feedback) relies on the correct letter naming a real option.
func MCQuestions(raw string) []model.MCQuestion {
	var qs []model.MCQuestion
	if err := json.Unmarshal([]byte(stripFences(raw)), &qs); err != nil {
		return nil
	}
	valid := qs[:0]
	for _, q := range qs {
		if strings.TrimSpace(q.Question) == "" || !validMCOptions(q) {
			continue
		}
		valid = append(valid, q)
	}
	return valid
}

func validMCOptions(q model.MCQuestion) bool {
	if len(q.Options) != len(mcLetters) {
		return false
	}
	for _, letter := range mcLetters {
		if strings.TrimSpace(q.Options[letter]) == "" {
			return false
		}
	}
	_, ok := q.Options[q.Correct]
	return ok
}

// OpenQuestions decodes an open-ended question list from raw model output.
// Elements without question text are dropped.
func OpenQuestions(raw string) []model.OpenQuestion {
	var qs []model.OpenQuestion
	if err := json.Unmarshal([]byte(stripFences(raw)), &qs); err != nil {
		return nil
	}
	valid := qs[:0]
	for _, q := range qs {
		if strings.TrimSpace(q.Question) != "" {
			valid = append(valid, q)
		}
	}
	return valid
}

// NumberedQuestions recovers questions from free-form numbered text, the
// fallback when the model ignores the JSON contract. A line starting with
// "1." / "2)" / "Question 3" opens a new question; other non-blank lines
// continue the current one. Fragments of 10 characters or fewer are noise
// and get dropped.
func NumberedQuestions(text string) []string {
	var questions []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		q := strings.TrimSpace(strings.Join(current, " "))
		if len(q) > 10 {
			questions = append(questions, q)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if questionStart.MatchString(line) {
			flush()
			current = []string{trimmed}
		} else if len(current) > 0 {
			current = append(current, trimmed)
		}
	}
	flush()

	return questions
}

// RubricBlock extracts the labeled grading sections from raw model output.
// A missing score reads as 0; scores clamp to [0,10]; missing sections
// default to empty strings.
func RubricBlock(raw string) model.Grade {
	var g model.Grade
	g.Score = extractScore(raw)
	if m := strengthsRegex.FindStringSubmatch(raw); m != nil {
		g.Strengths = strings.TrimSpace(m[1])
	}
	if m := weaknessesRegex.FindStringSubmatch(raw); m != nil {
		g.Weaknesses = strings.TrimSpace(m[1])
	}
	if m := revisionRegex.FindStringSubmatch(raw); m != nil {
		g.Revision = strings.TrimSpace(m[1])
	}
	return g
}

// ScoreFeedback extracts the simple SCORE/FEEDBACK grading format. When
// the FEEDBACK label is absent the whole raw text serves as feedback.
func ScoreFeedback(raw string) model.Grade {
	g := model.Grade{Score: extractScore(raw)}
	if m := feedbackRegex.FindStringSubmatch(raw); m != nil {
		g.Feedback = strings.TrimSpace(m[1])
	} else {
		g.Feedback = strings.TrimSpace(raw)
	}
	return g
}

func extractScore(raw string) float64 {
	m := scoreRegex.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return float64(n)
}

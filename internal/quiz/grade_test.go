package quiz

import (
	"context"
	"strings"
	"testing"

	"github.com/nlavrov/studium/internal/model"
)

func TestGradeMC(t *testing.T) {
	q := newMCQuestion(t)

	tests := []struct {
		name      string
		answer    string
		wantScore float64
	}{
		{"correct letter", "A", MCScoreCorrect},
		{"wrong letter", "B", MCScoreWrong},
		{"blank answer", "", MCScoreWrong},
		{"whitespace answer", "  ", MCScoreWrong},
		{"correct with spaces", " A ", MCScoreCorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := GradeMC(q, tt.answer)
			if g.Score != tt.wantScore {
				t.Errorf("score: got %v, want %v", g.Score, tt.wantScore)
			}
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		first := GradeMC(q, "B")
		for range 10 {
			if got := GradeMC(q, "B"); got != first {
				t.Fatal("grading is not deterministic")
			}
		}
	})

	t.Run("wrong answer names the correct one", func(t *testing.T) {
		g := GradeMC(q, "C")
		if !strings.Contains(g.Feedback, "A") || !strings.Contains(g.Feedback, "read.csv") {
			t.Errorf("feedback %q does not name the correct answer", g.Feedback)
		}
	})
}

func TestGradeOpenBlankShortCircuit(t *testing.T) {
	g := &fakeGenerator{response: "SCORE: 9"}
	q := model.OpenQuestion{Question: "Explain closures.", RubricFocus: "capture semantics"}

	for _, answer := range []string{"", "   ", "\n\t"} {
		grade, err := GradeOpen(context.Background(), g, q, answer, "material")
		if err != nil {
			t.Fatalf("GradeOpen(%q): %v", answer, err)
		}
		if grade.Score != 0 {
			t.Errorf("blank answer scored %v", grade.Score)
		}
		if grade.Feedback != "No answer provided." {
			t.Errorf("feedback: got %q", grade.Feedback)
		}
	}

	if len(g.prompts) != 0 {
		t.Errorf("blank answers made %d model calls, want 0", len(g.prompts))
	}
}

func TestGradeOpen(t *testing.T) {
	g := &fakeGenerator{response: "SCORE: 7\nSTRENGTHS: Clear.\nWEAKNESSES: Shallow.\nREVISION: Add an example."}
	q := model.OpenQuestion{Question: "Explain closures.", RubricFocus: "capture semantics"}

	grade, err := GradeOpen(context.Background(), g, q, "A closure captures its environment.", "material")
	if err != nil {
		t.Fatalf("GradeOpen: %v", err)
	}
	if grade.Score != 7 || grade.Strengths != "Clear." || grade.Revision != "Add an example." {
		t.Errorf("got %+v", grade)
	}

	if len(g.prompts) != 1 || !strings.Contains(g.prompts[0], "capture semantics") {
		t.Errorf("rubric focus missing from grading prompt")
	}
}

func TestGradeOpenSimple(t *testing.T) {
	q := model.OpenQuestion{Question: "Explain closures."}

	t.Run("parses score and feedback", func(t *testing.T) {
		g := &fakeGenerator{response: "SCORE: 6\nFEEDBACK: Decent but thin."}
		grade, err := GradeOpenSimple(context.Background(), g, q, "They capture scope.", "material")
		if err != nil {
			t.Fatalf("GradeOpenSimple: %v", err)
		}
		if grade.Score != 6 || grade.Feedback != "Decent but thin." {
			t.Errorf("got %+v", grade)
		}
		if grade.Strengths != "" || grade.Revision != "" {
			t.Errorf("rubric fields should stay empty: %+v", grade)
		}
		if len(g.prompts) != 1 || !strings.Contains(g.prompts[0], "FEEDBACK: <one or two sentences>") {
			t.Error("grading prompt is not the short format")
		}
	})

	t.Run("blank short-circuits without model call", func(t *testing.T) {
		g := &fakeGenerator{response: "SCORE: 9"}
		grade, err := GradeOpenSimple(context.Background(), g, q, "   ", "material")
		if err != nil {
			t.Fatal(err)
		}
		if grade.Score != 0 || grade.Feedback != "No answer provided." {
			t.Errorf("got %+v", grade)
		}
		if len(g.prompts) != 0 {
			t.Errorf("blank answer made %d model calls, want 0", len(g.prompts))
		}
	})
}

func TestScoreSummary(t *testing.T) {
	grades := func(scores ...float64) []model.Grade {
		var gs []model.Grade
		for _, s := range scores {
			gs = append(gs, model.Grade{Score: s})
		}
		return gs
	}

	tests := []struct {
		name      string
		grades    []model.Grade
		wantAvg   float64
		wantLabel string
	}{
		{"empty", nil, 0, "Not attempted"},
		{"excellent", grades(9, 8.5, 10), 9.2, "🏆 Excellent"},
		{"good", grades(7, 7.5), 7.3, "✅ Good"},
		{"moderate", grades(5, 6), 5.5, "⚠️ Moderate"},
		{"needs improvement", grades(2, 3), 2.5, "❌ Needs Improvement"},
		{"boundary excellent", grades(8.5), 8.5, "🏆 Excellent"},
		{"boundary good", grades(7), 7, "✅ Good"},
		{"rounds to one decimal", grades(7, 8, 8), 7.7, "✅ Good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, label := ScoreSummary(tt.grades)
			if avg != tt.wantAvg {
				t.Errorf("avg: got %v, want %v", avg, tt.wantAvg)
			}
			if label != tt.wantLabel {
				t.Errorf("label: got %q, want %q", label, tt.wantLabel)
			}
		})
	}
}

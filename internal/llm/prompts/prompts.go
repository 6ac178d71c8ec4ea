// Package prompts builds the task prompts sent to the language model.
// Builders are pure functions of their inputs; the grounding contract
// (use only the supplied material, add nothing external) is embedded in
// every prompt rather than enforced after the fact.
package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nlavrov/studium/internal/model"
)

// SystemInstruction frames every conversation with the model.
const SystemInstruction = "You are an expert educational AI assistant. " +
	"Base your responses strictly on the provided course material. " +
	"Never add external information that is not supported by the material."

// FlashcardCount is the fixed deck size requested per generation.
const FlashcardCount = 8

// guideExcerptLimit caps how much of the study guide feeds the flashcard prompt.
const guideExcerptLimit = 800

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// difficultyFraming tells the model how to pitch questions at each level.
var difficultyFraming = map[model.Difficulty]string{
	model.DifficultyEasy: "Easy: test recall and recognition of key terms and definitions. " +
		"Distractors should be clearly distinguishable from the correct answer.",
	model.DifficultyMedium: "Medium: test understanding and application of concepts. " +
		"Distractors should be plausible but incorrect on closer reading.",
	model.DifficultyHard: "Hard: test analysis, synthesis, and subtle distinctions. " +
		"Distractors should reflect common misconceptions and near-misses.",
}

// DifficultyFraming returns the question-writing guidance for a level.
func DifficultyFraming(d model.Difficulty) string {
	if f, ok := difficultyFraming[d]; ok {
		return f
	}
	return difficultyFraming[model.DifficultyMedium]
}

func toneLine(t model.Tone) string {
	switch t {
	case model.ToneSimple:
		return "Explain in plain, simple language a newcomer can follow."
	case model.ToneCoaching:
		return "Write in an encouraging coaching voice, addressing the student directly."
	default:
		return "Write in a precise academic register."
	}
}

func depthLine(d model.Depth) string {
	switch d {
	case model.DepthConcise:
		return "Keep it concise: only the essentials."
	case model.DepthExhaustive:
		return "Be exhaustive: cover every topic present in the material."
	default:
		return "Cover the main topics at a standard level of detail."
	}
}

func formatLine(f model.Format) string {
	switch f {
	case model.FormatNarrative:
		return "Structure the guide as flowing narrative prose with section headings."
	case model.FormatQA:
		return "Structure the guide as a sequence of questions and answers."
	default:
		return "Structure the guide as a hierarchical outline with bullet points."
	}
}

// StudyGuide builds the study guide generation prompt.
func StudyGuide(context string, tone model.Tone, depth model.Depth, format model.Format) string {
	var sb strings.Builder
	sb.WriteString("Create a study guide from the course material below.\n\n")
	sb.WriteString(toneLine(tone) + "\n")
	sb.WriteString(depthLine(depth) + "\n")
	sb.WriteString(formatLine(format) + "\n\n")
	sb.WriteString("Use only the course material. Do not introduce outside facts.\n\n")
	sb.WriteString("COURSE MATERIAL:\n" + context + "\n")
	return sb.String()
}

// Flashcards builds the flashcard generation prompt from a study guide
// excerpt. The response contract is a strict JSON list.
func Flashcards(guide string) string {
	excerpt := guide
	if utf8.RuneCountInString(excerpt) > guideExcerptLimit {
		excerpt = string([]rune(excerpt)[:guideExcerptLimit])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create exactly %d flashcards from the study guide excerpt below.\n\n", FlashcardCount)
	sb.WriteString("Each front is a question or term of at most 15 words.\n")
	sb.WriteString("Each back is the answer or definition of at most 40 words.\n")
	sb.WriteString("Use only the study guide content.\n\n")
	sb.WriteString("Respond ONLY with a JSON array, no prose, no code fences:\n")
	sb.WriteString(`[{"front": "...", "back": "..."}]`)
	sb.WriteString("\n\nSTUDY GUIDE:\n" + excerpt + "\n")
	return sb.String()
}

// MCQuestions builds the multiple-choice generation prompt.
func MCQuestions(context string, count int, difficulty model.Difficulty) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create %d multiple-choice questions from the course material below.\n\n", count)
	sb.WriteString("DIFFICULTY: " + DifficultyFraming(difficulty) + "\n\n")
	sb.WriteString("Each question has exactly four options labeled A, B, C, D, ")
	sb.WriteString("one correct answer, and a short explanation of why it is correct.\n")
	sb.WriteString("Use only the course material.\n\n")
	sb.WriteString("Respond ONLY with a JSON array, no prose, no code fences:\n")
	sb.WriteString(`[{"question": "...", "options": {"A": "...", "B": "...", "C": "...", "D": "..."}, "correct": "A", "explanation": "..."}]`)
	sb.WriteString("\n\nCOURSE MATERIAL:\n" + context + "\n")
	return sb.String()
}

// OpenQuestions builds the open-ended generation prompt. Timed tests get a
// fixed progression from conceptual to integrative; practice sets stay
// mostly conceptual with applied questions at the end.
func OpenQuestions(context string, count int, difficulty model.Difficulty, timedTest bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create %d open-ended questions from the course material below.\n\n", count)
	sb.WriteString("DIFFICULTY: " + DifficultyFraming(difficulty) + "\n\n")
	if timedTest {
		sb.WriteString("STRUCTURE:\n")
		sb.WriteString("- Questions 1-2: Conceptual (define, explain)\n")
		sb.WriteString("- Question 3: Applied (use a concept on a concrete case)\n")
		sb.WriteString("- Question 4: Analysis (compare, contrast, reason about trade-offs)\n")
		sb.WriteString("- Question 5: Integrative (combine multiple topics)\n\n")
	} else {
		sb.WriteString("STRUCTURE:\n")
		sb.WriteString("- Questions 1-4: Conceptual (define, explain)\n")
		sb.WriteString("- Remaining questions: Applied (use a concept on a concrete case)\n\n")
	}
	sb.WriteString("For each question include its type and a rubric_focus naming what a strong answer must cover.\n")
	sb.WriteString("Use only the course material.\n\n")
	sb.WriteString("Respond ONLY with a JSON array, no prose, no code fences:\n")
	sb.WriteString(`[{"question": "...", "type": "Conceptual", "rubric_focus": "..."}]`)
	sb.WriteString("\n\nCOURSE MATERIAL:\n" + context + "\n")
	return sb.String()
}

// RubricGrade builds the detailed grading prompt for an open-ended answer.
// The response contract is the labeled SCORE/STRENGTHS/WEAKNESSES/REVISION
// block.
func RubricGrade(question, rubricFocus, answer, context string) string {
	var sb strings.Builder
	sb.WriteString("Grade the student's answer to the question below against the course material.\n\n")
	sb.WriteString("QUESTION: " + question + "\n\n")
	if rubricFocus != "" {
		sb.WriteString("A strong answer must cover: " + rubricFocus + "\n\n")
	}
	sb.WriteString("STUDENT ANSWER:\n" + SanitizeAnswer(answer) + "\n\n")
	sb.WriteString("COURSE MATERIAL:\n" + context + "\n\n")
	sb.WriteString("Respond EXACTLY in this format:\n")
	sb.WriteString("SCORE: <integer 0-10>\n")
	sb.WriteString("STRENGTHS: <what the answer does well>\n")
	sb.WriteString("WEAKNESSES: <what is missing or wrong>\n")
	sb.WriteString("REVISION: <one concrete suggestion to improve the answer>\n")
	return sb.String()
}

// SimpleGrade builds the short grading prompt used where only a score and
// one line of feedback are needed.
func SimpleGrade(question, answer, context string) string {
	var sb strings.Builder
	sb.WriteString("Grade the student's answer to the question below against the course material.\n\n")
	sb.WriteString("QUESTION: " + question + "\n\n")
	sb.WriteString("STUDENT ANSWER:\n" + SanitizeAnswer(answer) + "\n\n")
	sb.WriteString("COURSE MATERIAL:\n" + context + "\n\n")
	sb.WriteString("Respond EXACTLY in this format:\n")
	sb.WriteString("SCORE: <integer 0-10>\n")
	sb.WriteString("FEEDBACK: <one or two sentences>\n")
	return sb.String()
}

// Diagnostic builds the performance diagnostic prompt from a per-question
// performance summary. The five headings are a fixed contract the caller
// renders directly.
func Diagnostic(performance string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the student's graded performance below and write a diagnostic report.\n\n")
	sb.WriteString("PERFORMANCE DATA:\n" + performance + "\n\n")
	sb.WriteString("Respond in markdown with EXACTLY these five headings, in order:\n")
	sb.WriteString("## Performance Overview\n")
	sb.WriteString("## Knowledge Gaps\n")
	sb.WriteString("## Strengths\n")
	sb.WriteString("## Recommended Actions\n")
	sb.WriteString("## Focus for Next Session\n")
	return sb.String()
}

// Chat builds the general tutoring chat prompt with rolling history.
func Chat(context string, history []model.ChatMessage, message string) string {
	var sb strings.Builder
	sb.WriteString("You are tutoring a student on their course material. ")
	sb.WriteString("Answer their question using only the material below.\n\n")
	sb.WriteString("COURSE MATERIAL:\n" + context + "\n\n")
	writeHistory(&sb, history)
	sb.WriteString("Student: " + SanitizeAnswer(message) + "\nTeacher:")
	return sb.String()
}

// ContextualChat builds the chat prompt for a question about a highlighted
// passage of the material.
func ContextualChat(context, highlighted string, history []model.ChatMessage, message string) string {
	var sb strings.Builder
	sb.WriteString("You are tutoring a student on their course material. ")
	sb.WriteString("The student highlighted a passage and is asking about it. ")
	sb.WriteString("Answer using only the material below, focusing on the highlighted passage.\n\n")
	sb.WriteString("HIGHLIGHTED PASSAGE:\n" + highlighted + "\n\n")
	sb.WriteString("COURSE MATERIAL:\n" + context + "\n\n")
	writeHistory(&sb, history)
	sb.WriteString("Student: " + SanitizeAnswer(message) + "\nTeacher:")
	return sb.String()
}

func writeHistory(sb *strings.Builder, history []model.ChatMessage) {
	if len(history) == 0 {
		return
	}
	sb.WriteString("CONVERSATION SO FAR:\n")
	for _, m := range history {
		role := "Student"
		if m.Role == model.RoleTeacher {
			role = "Teacher"
		}
		sb.WriteString(role + ": " + m.Content + "\n")
	}
	sb.WriteString("\n")
}

// SanitizeAnswer strips tag-injection attempts from student-supplied text
// and truncates pathologically long input.
func SanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > 10000 {
		runes := []rune(answer)
		answer = string(runes[:10000]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}

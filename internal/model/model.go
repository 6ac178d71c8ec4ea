package model

import "time"

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty normalizes a difficulty string, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// QuestionKind distinguishes the two question families a course can hold.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "mc"
	KindOpenEnded      QuestionKind = "open"
)

// Tone represents the explanation style of a study guide.
type Tone string

const (
	ToneSimple   Tone = "simple"
	ToneAcademic Tone = "academic"
	ToneCoaching Tone = "coaching"
)

// Depth represents how detailed a study guide should be.
type Depth string

const (
	DepthConcise    Depth = "concise"
	DepthStandard   Depth = "standard"
	DepthExhaustive Depth = "exhaustive"
)

// Format represents the layout of a study guide.
type Format string

const (
	FormatOutline   Format = "outline"
	FormatNarrative Format = "narrative"
	FormatQA        Format = "qa"
)

// ChatRole represents a chat message author.
type ChatRole string

const (
	RoleStudent ChatRole = "student"
	RoleTeacher ChatRole = "teacher"
)

// ChatMessage is one turn in a tutoring conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Flashcard is a front/back study card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// MCQuestion is a four-option multiple-choice question. Options are keyed
// by the letters A through D and Correct names one of those letters.
type MCQuestion struct {
	Question    string            `json:"question"`
	Options     map[string]string `json:"options"`
	Correct     string            `json:"correct"`
	Explanation string            `json:"explanation"`
}

// OpenQuestion is an open-ended question with a rubric hint for grading.
type OpenQuestion struct {
	Question    string `json:"question"`
	Type        string `json:"type"`
	RubricFocus string `json:"rubric_focus"`
}

// Question is a tagged union: exactly one of MC or Open is set, matching Kind.
type Question struct {
	Kind QuestionKind  `json:"kind"`
	MC   *MCQuestion   `json:"mc,omitempty"`
	Open *OpenQuestion `json:"open,omitempty"`
}

// Grade is the assessment of one answered question.
type Grade struct {
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
	Strengths  string  `json:"strengths,omitempty"`
	Weaknesses string  `json:"weaknesses,omitempty"`
	Revision   string  `json:"revision,omitempty"`
}

// NotebookSession is one dated entry in a course notebook.
type NotebookSession struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// QuestionSet holds a generated batch of questions together with the
// student's answers and grades. Answers and Grades are keyed by question
// index; a missing key means not answered or not graded yet.
type QuestionSet struct {
	Questions  []Question     `json:"questions"`
	Answers    map[int]string `json:"answers"`
	Grades     map[int]Grade  `json:"grades"`
	Kind       QuestionKind   `json:"kind"`
	Difficulty Difficulty     `json:"difficulty"`
}

// NewQuestionSet creates an empty answer/grade state for a question batch.
func NewQuestionSet(qs []Question, kind QuestionKind, diff Difficulty) *QuestionSet {
	return &QuestionSet{
		Questions:  qs,
		Answers:    make(map[int]string),
		Grades:     make(map[int]Grade),
		Kind:       kind,
		Difficulty: diff,
	}
}

// TestState tracks the timed-test lifecycle for a course.
type TestState struct {
	Set       *QuestionSet `json:"set,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	Submitted bool         `json:"submitted"`
}

// Course is the full per-course session state. All generated artifacts
// hang off the course; nothing is persisted outside this structure.
type Course struct {
	Name       string            `json:"name"`
	FileNames  []string          `json:"file_names"`
	Chunks     []string          `json:"chunks"`
	StudyGuide string            `json:"study_guide"`
	Flashcards []Flashcard       `json:"flashcards"`
	Exercises  *QuestionSet      `json:"exercises,omitempty"`
	Test       TestState         `json:"test"`
	Diagnostic string            `json:"diagnostic"`
	Notebook   []NotebookSession `json:"notebook"`
	Chat       []ChatMessage     `json:"chat"`
}

// HasMaterial reports whether course files have been processed.
func (c *Course) HasMaterial() bool {
	return len(c.Chunks) > 0
}

// Package course implements the study workflow over in-memory course
// state: process material, generate a guide, drill with flashcards and
// exercises, sit a timed test, and review a diagnostic. Generation
// failures never mutate stored state; the previous artifact survives a
// bad model response.
package course

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/nlavrov/studium/internal/ingest"
	"github.com/nlavrov/studium/internal/llm/prompts"
	"github.com/nlavrov/studium/internal/model"
	"github.com/nlavrov/studium/internal/parse"
	"github.com/nlavrov/studium/internal/quiz"
)

// Workflow preconditions and state errors.
var (
	ErrNoMaterial    = errors.New("course: no material processed yet")
	ErrNoGuide       = errors.New("course: no study guide generated yet")
	ErrNoExercises   = errors.New("course: no exercises generated yet")
	ErrNoTest        = errors.New("course: no test in progress")
	ErrTestSubmitted = errors.New("course: test already submitted")
	ErrNoQuestion    = errors.New("course: no such question")
	ErrNoSession     = errors.New("course: no such notebook session")
	ErrNothingGraded = errors.New("course: nothing graded yet")
)

const (
	guideTemperature = 0.3
	chatTemperature  = 0.7

	// DefaultQuestionCount is the batch size for exercises and tests.
	DefaultQuestionCount = 5
)

// Gateway is the slice of the AI client the workflow needs.
type Gateway interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateLong(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Service runs the study workflow. All course mutation goes through one
// lock; the LLM is slow enough that finer granularity buys nothing.
type Service struct {
	manager *Manager
	gw      Gateway

	mu  sync.Mutex
	now func() time.Time
}

// NewService creates a workflow service over the given course manager
// and gateway.
func NewService(m *Manager, gw Gateway) *Service {
	return &Service{manager: m, gw: gw, now: time.Now}
}

// ProcessStats summarizes a material-processing run.
type ProcessStats struct {
	Files  int `json:"files"`
	Chunks int `json:"chunks"`
	Words  int `json:"words"`
}

// ProcessDocuments ingests extracted documents into a course: merge,
// chunk, and reset every generated artifact. New material invalidates
// everything built from the old material.
func (s *Service) ProcessDocuments(name string, docs []ingest.Document) (ProcessStats, error) {
	if len(docs) == 0 {
		return ProcessStats{}, fmt.Errorf("no documents to process")
	}

	merged := ingest.MergeDocuments(docs)
	chunks := ingest.ChunkWords(merged, ingest.DefaultChunkSize)
	if len(chunks) == 0 {
		return ProcessStats{}, fmt.Errorf("no extractable text in uploaded files")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.manager.Get(name)
	c.Chunks = chunks
	c.FileNames = c.FileNames[:0]
	for _, d := range docs {
		c.FileNames = append(c.FileNames, d.Name)
	}
	c.StudyGuide = ""
	c.Flashcards = nil
	c.Exercises = nil
	c.Test = model.TestState{}
	c.Diagnostic = ""

	words := 0
	for _, ch := range chunks {
		words += len(strings.Fields(ch))
	}
	return ProcessStats{Files: len(docs), Chunks: len(chunks), Words: words}, nil
}

// GenerateGuide builds a study guide from the course material. A new
// guide invalidates the flashcard deck derived from the old one.
func (s *Service) GenerateGuide(ctx context.Context, name string, tone model.Tone, depth model.Depth, format model.Format) (string, error) {
	material, err := s.material(name)
	if err != nil {
		return "", err
	}

	guide, err := s.gw.GenerateLong(ctx, prompts.StudyGuide(material, tone, depth, format), guideTemperature)
	if err != nil {
		return "", fmt.Errorf("generate study guide: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	c.StudyGuide = guide
	c.Flashcards = nil
	return guide, nil
}

// GenerateFlashcards builds the flashcard deck from the current study guide.
func (s *Service) GenerateFlashcards(ctx context.Context, name string) ([]model.Flashcard, error) {
	s.mu.Lock()
	guide := s.manager.Get(name).StudyGuide
	s.mu.Unlock()
	if guide == "" {
		return nil, ErrNoGuide
	}

	raw, err := s.gw.Generate(ctx, prompts.Flashcards(guide), guideTemperature)
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}
	cards := parse.Flashcards(raw)
	if len(cards) == 0 {
		return nil, fmt.Errorf("no usable flashcards in model response")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager.Get(name).Flashcards = cards
	return cards, nil
}

// ShuffleFlashcards randomizes the deck order for review.
func (s *Service) ShuffleFlashcards(name string) ([]model.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.manager.Get(name)
	if len(c.Flashcards) == 0 {
		return nil, fmt.Errorf("no flashcards to shuffle")
	}
	rand.Shuffle(len(c.Flashcards), func(i, j int) {
		c.Flashcards[i], c.Flashcards[j] = c.Flashcards[j], c.Flashcards[i]
	})
	return c.Flashcards, nil
}

// GenerateExercises builds a practice question set, replacing any prior
// set together with its answers and grades.
func (s *Service) GenerateExercises(ctx context.Context, name string, kind model.QuestionKind, count int, difficulty model.Difficulty) ([]model.Question, error) {
	material, err := s.material(name)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = DefaultQuestionCount
	}

	var questions []model.Question
	switch kind {
	case model.KindMultipleChoice:
		questions, err = quiz.GenerateMC(ctx, s.gw, material, count, difficulty)
	default:
		kind = model.KindOpenEnded
		questions, err = quiz.GenerateOpen(ctx, s.gw, material, count, difficulty, false)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager.Get(name).Exercises = model.NewQuestionSet(questions, kind, difficulty)
	return questions, nil
}

// AnswerExercise records the student's answer to one practice question.
func (s *Service) AnswerExercise(name string, index int, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.manager.Get(name)
	if c.Exercises == nil {
		return ErrNoExercises
	}
	if index < 0 || index >= len(c.Exercises.Questions) {
		return ErrNoQuestion
	}
	c.Exercises.Answers[index] = answer
	return nil
}

// GradeExercise grades one practice question from its recorded answer.
// Multiple choice grades locally; open-ended goes through the model with
// the short score-and-feedback format (the timed test uses the full
// rubric).
func (s *Service) GradeExercise(ctx context.Context, name string, index int) (model.Grade, error) {
	s.mu.Lock()
	c := s.manager.Get(name)
	if c.Exercises == nil {
		s.mu.Unlock()
		return model.Grade{}, ErrNoExercises
	}
	if index < 0 || index >= len(c.Exercises.Questions) {
		s.mu.Unlock()
		return model.Grade{}, ErrNoQuestion
	}
	set := c.Exercises
	q := set.Questions[index]
	answer := set.Answers[index]
	material := ingest.SelectContext(c.Chunks, ingest.DefaultMaxChunks)
	s.mu.Unlock()

	grade, err := s.gradeQuestion(ctx, q, answer, material, simpleFeedback)
	if err != nil {
		return model.Grade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The set may have been regenerated while grading; only record the
	// grade if the question is still the one we graded.
	if c.Exercises == set {
		set.Grades[index] = grade
	}
	return grade, nil
}

// ExerciseSummary reduces the graded exercises to an average and verdict.
func (s *Service) ExerciseSummary(name string) (float64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	if c.Exercises == nil {
		return quiz.ScoreSummary(nil)
	}
	return quiz.ScoreSummary(gradesInOrder(c.Exercises))
}

// StartTest generates a timed open-ended test and starts the clock.
func (s *Service) StartTest(ctx context.Context, name string, difficulty model.Difficulty, count int) ([]model.Question, error) {
	material, err := s.material(name)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = DefaultQuestionCount
	}

	questions, err := quiz.GenerateOpen(ctx, s.gw, material, count, difficulty, true)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	c.Test = model.TestState{
		Set:       model.NewQuestionSet(questions, model.KindOpenEnded, difficulty),
		StartedAt: s.now(),
	}
	return questions, nil
}

// TestPhase is the observable lifecycle state of a course test.
type TestPhase string

const (
	TestNotStarted TestPhase = "not_started"
	TestInProgress TestPhase = "in_progress"
	TestSubmitted  TestPhase = "submitted"
)

// TestStatus is a snapshot of the test clock and lifecycle.
type TestStatus struct {
	Phase            TestPhase `json:"phase"`
	RemainingSeconds int       `json:"remaining_seconds"`
	QuestionCount    int       `json:"question_count"`
	AverageScore     float64   `json:"average_score,omitempty"`
	Verdict          string    `json:"verdict,omitempty"`
}

// CheckTest reports the test status, auto-submitting when the clock has
// run out. The auto-submit grades answers exactly like an explicit
// submit; unanswered questions grade as blank.
func (s *Service) CheckTest(ctx context.Context, name string) (TestStatus, error) {
	s.mu.Lock()
	c := s.manager.Get(name)
	t := c.Test
	s.mu.Unlock()

	if t.Set == nil {
		return TestStatus{Phase: TestNotStarted}, nil
	}
	if t.Submitted {
		avg, verdict := quiz.ScoreSummary(gradesInOrder(t.Set))
		return TestStatus{
			Phase:         TestSubmitted,
			QuestionCount: len(t.Set.Questions),
			AverageScore:  avg,
			Verdict:       verdict,
		}, nil
	}

	remaining := RemainingSeconds(t.StartedAt, s.now(), t.Set.Difficulty, len(t.Set.Questions))
	if remaining <= 0 {
		if err := s.SubmitTest(ctx, name); err != nil {
			return TestStatus{}, fmt.Errorf("auto-submit expired test: %w", err)
		}
		return s.CheckTest(ctx, name)
	}

	return TestStatus{
		Phase:            TestInProgress,
		RemainingSeconds: remaining,
		QuestionCount:    len(t.Set.Questions),
	}, nil
}

// AnswerTest records an answer to a test question. Rejected once the
// test is submitted.
func (s *Service) AnswerTest(name string, index int, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.manager.Get(name)
	if c.Test.Set == nil {
		return ErrNoTest
	}
	if c.Test.Submitted {
		return ErrTestSubmitted
	}
	if index < 0 || index >= len(c.Test.Set.Questions) {
		return ErrNoQuestion
	}
	c.Test.Set.Answers[index] = answer
	return nil
}

// SubmitTest grades every test question and marks the test submitted.
// All grades are computed before any state changes; a grading failure
// leaves the test untouched so submission can be retried.
func (s *Service) SubmitTest(ctx context.Context, name string) error {
	s.mu.Lock()
	c := s.manager.Get(name)
	if c.Test.Set == nil {
		s.mu.Unlock()
		return ErrNoTest
	}
	if c.Test.Submitted {
		s.mu.Unlock()
		return ErrTestSubmitted
	}
	set := c.Test.Set
	questions := set.Questions
	answers := make(map[int]string, len(set.Answers))
	for k, v := range set.Answers {
		answers[k] = v
	}
	material := ingest.SelectContext(c.Chunks, ingest.DefaultMaxChunks)
	s.mu.Unlock()

	grades := make(map[int]model.Grade, len(questions))
	for i, q := range questions {
		grade, err := s.gradeQuestion(ctx, q, answers[i], material, rubricFeedback)
		if err != nil {
			return fmt.Errorf("grade question %d: %w", i+1, err)
		}
		grades[i] = grade
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Test.Set != set {
		// A new test replaced this one while grading; drop the result.
		return ErrNoTest
	}
	for i, g := range grades {
		set.Grades[i] = g
	}
	c.Test.Submitted = true
	return nil
}

// GenerateDiagnostic analyzes all graded work into a study diagnostic.
func (s *Service) GenerateDiagnostic(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	c := s.manager.Get(name)
	performance := performanceSummary(c)
	s.mu.Unlock()

	if performance == "" {
		return "", ErrNothingGraded
	}

	diagnostic, err := s.gw.GenerateLong(ctx, prompts.Diagnostic(performance), guideTemperature)
	if err != nil {
		return "", fmt.Errorf("generate diagnostic: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager.Get(name).Diagnostic = diagnostic
	return diagnostic, nil
}

// Chat answers a general question about the course material, keeping a
// rolling conversation history.
func (s *Service) Chat(ctx context.Context, name, message string) (string, error) {
	return s.chat(ctx, name, "", message)
}

// ChatAboutSelection answers a question about a highlighted passage of
// the material.
func (s *Service) ChatAboutSelection(ctx context.Context, name, highlighted, message string) (string, error) {
	return s.chat(ctx, name, highlighted, message)
}

func (s *Service) chat(ctx context.Context, name, highlighted, message string) (string, error) {
	material, err := s.material(name)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	c := s.manager.Get(name)
	history := make([]model.ChatMessage, len(c.Chat))
	copy(history, c.Chat)
	s.mu.Unlock()

	var prompt string
	if highlighted == "" {
		prompt = prompts.Chat(material, history, message)
	} else {
		prompt = prompts.ContextualChat(material, highlighted, history, message)
	}

	reply, err := s.gw.Generate(ctx, prompt, chatTemperature)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.Chat = append(c.Chat,
		model.ChatMessage{Role: model.RoleStudent, Content: message},
		model.ChatMessage{Role: model.RoleTeacher, Content: reply},
	)
	return reply, nil
}

// NotebookSessions lists the course notebook, seeded examples included.
func (s *Service) NotebookSessions(name string) []model.NotebookSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	sessions := make([]model.NotebookSession, len(c.Notebook))
	copy(sessions, c.Notebook)
	return sessions
}

// AddNotebookSession appends a fresh, empty notebook session.
func (s *Service) AddNotebookSession(name string) model.NotebookSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	session := newUserSession(c.Notebook, s.now())
	c.Notebook = append(c.Notebook, session)
	return session
}

// UpdateNotebookSession updates a session's title and content by id.
func (s *Service) UpdateNotebookSession(name, id, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	for i := range c.Notebook {
		if c.Notebook[i].ID == id {
			if title != "" {
				c.Notebook[i].Title = title
			}
			c.Notebook[i].Content = content
			return nil
		}
	}
	return ErrNoSession
}

// Progress summarizes how far a course has moved through the workflow.
type Progress struct {
	HasMaterial   bool      `json:"has_material"`
	Files         int       `json:"files"`
	HasGuide      bool      `json:"has_guide"`
	Flashcards    int       `json:"flashcards"`
	Exercises     int       `json:"exercises"`
	ExercisesDone int       `json:"exercises_graded"`
	ExerciseAvg   float64   `json:"exercise_average"`
	TestPhase     TestPhase `json:"test_phase"`
	TestAvg       float64   `json:"test_average,omitempty"`
	HasDiagnostic bool      `json:"has_diagnostic"`
	NotebookWords int       `json:"notebook_words"`
}

// CourseProgress reports the workflow checklist for one course.
func (s *Service) CourseProgress(name string) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)

	p := Progress{
		HasMaterial:   c.HasMaterial(),
		Files:         len(c.FileNames),
		HasGuide:      c.StudyGuide != "",
		Flashcards:    len(c.Flashcards),
		TestPhase:     TestNotStarted,
		HasDiagnostic: c.Diagnostic != "",
		NotebookWords: notebookWordCount(c.Notebook),
	}
	if c.Exercises != nil {
		p.Exercises = len(c.Exercises.Questions)
		p.ExercisesDone = len(c.Exercises.Grades)
		p.ExerciseAvg, _ = quiz.ScoreSummary(gradesInOrder(c.Exercises))
	}
	if c.Test.Set != nil {
		p.TestPhase = TestInProgress
		if c.Test.Submitted {
			p.TestPhase = TestSubmitted
			p.TestAvg, _ = quiz.ScoreSummary(gradesInOrder(c.Test.Set))
		}
	}
	return p
}

// StudyGuide returns the stored guide, for display or download.
func (s *Service) StudyGuide(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guide := s.manager.Get(name).StudyGuide
	if guide == "" {
		return "", ErrNoGuide
	}
	return guide, nil
}

// Diagnostic returns the stored diagnostic, for display or download.
func (s *Service) Diagnostic(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.manager.Get(name).Diagnostic
	if d == "" {
		return "", ErrNothingGraded
	}
	return d, nil
}

// Flashcards returns the stored deck.
func (s *Service) Flashcards(name string) []model.Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	cards := make([]model.Flashcard, len(c.Flashcards))
	copy(cards, c.Flashcards)
	return cards
}

// Exercises returns the stored practice set, or nil.
func (s *Service) Exercises(name string) *model.QuestionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Get(name).Exercises
}

// Test returns the stored test state.
func (s *Service) Test(name string) model.TestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Get(name).Test
}

// NotebookText renders the user's notebook sessions as plain text for
// download. Seeded examples are skipped.
func (s *Service) NotebookText(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)

	var sb strings.Builder
	for _, session := range c.Notebook {
		if !strings.HasPrefix(session.ID, userSessionPrefix) {
			continue
		}
		sb.WriteString(session.Title + " (" + session.Date + ")\n")
		sb.WriteString(strings.Repeat("=", len(session.Title)+len(session.Date)+3) + "\n\n")
		sb.WriteString(session.Content + "\n\n")
	}
	return sb.String()
}

func (s *Service) material(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.manager.Get(name)
	if !c.HasMaterial() {
		return "", ErrNoMaterial
	}
	return ingest.SelectContext(c.Chunks, ingest.DefaultMaxChunks), nil
}

// feedbackStyle picks between the short practice grading format and the
// full rubric used for the timed test.
type feedbackStyle int

const (
	simpleFeedback feedbackStyle = iota
	rubricFeedback
)

func (s *Service) gradeQuestion(ctx context.Context, q model.Question, answer, material string, style feedbackStyle) (model.Grade, error) {
	switch q.Kind {
	case model.KindMultipleChoice:
		return quiz.GradeMC(*q.MC, answer), nil
	case model.KindOpenEnded:
		if style == simpleFeedback {
			return quiz.GradeOpenSimple(ctx, s.gw, *q.Open, answer, material)
		}
		return quiz.GradeOpen(ctx, s.gw, *q.Open, answer, material)
	default:
		return model.Grade{}, fmt.Errorf("unknown question kind %q", q.Kind)
	}
}

// gradesInOrder flattens a set's grade map into question order.
func gradesInOrder(set *model.QuestionSet) []model.Grade {
	var grades []model.Grade
	for i := range set.Questions {
		if g, ok := set.Grades[i]; ok {
			grades = append(grades, g)
		}
	}
	return grades
}

// performanceSummary renders every graded question into the text block
// the diagnostic prompt analyzes. Empty when nothing is graded.
func performanceSummary(c *model.Course) string {
	var sb strings.Builder

	writeSet := func(label string, set *model.QuestionSet) {
		if set == nil || len(set.Grades) == 0 {
			return
		}
		sb.WriteString(label + ":\n")
		for i, q := range set.Questions {
			g, ok := set.Grades[i]
			if !ok {
				continue
			}
			switch q.Kind {
			case model.KindMultipleChoice:
				fmt.Fprintf(&sb, "Q%d (multiple choice): %q, answered %q, correct %s, score %.0f/10\n",
					i+1, q.MC.Question, set.Answers[i], q.MC.Correct, g.Score)
			case model.KindOpenEnded:
				fmt.Fprintf(&sb, "Q%d (open): %q, score %.0f/10, weaknesses: %s\n",
					i+1, q.Open.Question, g.Score, g.Weaknesses)
			}
		}
		sb.WriteString("\n")
	}

	writeSet("PRACTICE EXERCISES", c.Exercises)
	if c.Test.Submitted {
		writeSet("TIMED TEST", c.Test.Set)
	}
	return strings.TrimSpace(sb.String())
}

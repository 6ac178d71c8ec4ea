package course

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nlavrov/studium/internal/model"
)

const (
	exampleSessionPrefix = "example-"
	userSessionPrefix    = "user-"
)

// exampleNotebook seeds every new course so the notebook never opens
// empty. Example ids live in their own namespace so progress checks can
// ignore them.
var exampleNotebook = []model.NotebookSession{
	{
		ID:    exampleSessionPrefix + "1",
		Date:  "2026-02-10",
		Title: "Session 1: Getting oriented",
		Content: "Skimmed the first two chapters and wrote down every term I could not " +
			"define from memory. Vectors recycle silently; that will bite me later. " +
			"Next time: redo the subsetting examples without looking.",
	},
	{
		ID:    exampleSessionPrefix + "2",
		Date:  "2026-02-17",
		Title: "Session 2: Practice problems",
		Content: "Worked through the end-of-chapter exercises. Got the data frame " +
			"questions right but confused apply and sapply twice. Flashcards helped " +
			"more than rereading.",
	},
}

// seedNotebook returns a fresh copy of the example sessions.
func seedNotebook() []model.NotebookSession {
	sessions := make([]model.NotebookSession, len(exampleNotebook))
	copy(sessions, exampleNotebook)
	return sessions
}

// newUserSession creates an empty notebook session numbered after the
// existing ones.
func newUserSession(existing []model.NotebookSession, date time.Time) model.NotebookSession {
	userCount := 0
	for _, s := range existing {
		if strings.HasPrefix(s.ID, userSessionPrefix) {
			userCount++
		}
	}
	day := date.Format("2006-01-02")
	return model.NotebookSession{
		ID:    userSessionPrefix + uuid.NewString(),
		Date:  day,
		Title: fmt.Sprintf("Session %d: %s", userCount+1, day),
	}
}

// notebookWordCount counts the words the student has written, excluding
// the seeded examples.
func notebookWordCount(sessions []model.NotebookSession) int {
	total := 0
	for _, s := range sessions {
		if strings.HasPrefix(s.ID, userSessionPrefix) {
			total += len(strings.Fields(s.Content))
		}
	}
	return total
}

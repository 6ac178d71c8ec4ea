// Package handler exposes the study workflow as a JSON API. Handlers are
// thin: decode, call the service, encode. All domain rules live below.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nlavrov/studium/internal/course"
	"github.com/nlavrov/studium/internal/ingest"
	"github.com/nlavrov/studium/internal/llm"
	"github.com/nlavrov/studium/internal/model"
)

// maxUploadBytes caps a single multipart upload.
const maxUploadBytes = 64 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	svc *course.Service
}

// New creates a new Handler over the workflow service.
func New(svc *course.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/courses/{course}", func(r chi.Router) {
		r.Post("/files", h.handleUploadFiles)

		r.Post("/guide", h.handleGenerateGuide)
		r.Get("/guide", h.handleGetGuide)
		r.Get("/guide/download", h.handleDownloadGuide)

		r.Post("/flashcards", h.handleGenerateFlashcards)
		r.Get("/flashcards", h.handleGetFlashcards)
		r.Post("/flashcards/shuffle", h.handleShuffleFlashcards)

		r.Post("/exercises", h.handleGenerateExercises)
		r.Get("/exercises", h.handleGetExercises)
		r.Post("/exercises/{index}/answer", h.handleAnswerExercise)
		r.Post("/exercises/{index}/grade", h.handleGradeExercise)
		r.Get("/exercises/summary", h.handleExerciseSummary)

		r.Post("/test", h.handleStartTest)
		r.Get("/test", h.handleTestStatus)
		r.Post("/test/{index}/answer", h.handleAnswerTest)
		r.Post("/test/submit", h.handleSubmitTest)

		r.Post("/diagnostic", h.handleGenerateDiagnostic)
		r.Get("/diagnostic/download", h.handleDownloadDiagnostic)

		r.Post("/chat", h.handleChat)

		r.Get("/notebook", h.handleListNotebook)
		r.Post("/notebook", h.handleAddNotebookSession)
		r.Put("/notebook/{id}", h.handleUpdateNotebookSession)
		r.Get("/notebook/download", h.handleDownloadNotebook)

		r.Get("/progress", h.handleProgress)
	})
}

func courseName(r *http.Request) string {
	return chi.URLParam(r, "course")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps service and gateway errors onto HTTP statuses and a
// remediation hint the caller can show verbatim.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, course.ErrNoMaterial),
		errors.Is(err, course.ErrNoGuide),
		errors.Is(err, course.ErrNoExercises),
		errors.Is(err, course.ErrNoTest),
		errors.Is(err, course.ErrNothingGraded):
		status = http.StatusConflict
	case errors.Is(err, course.ErrTestSubmitted):
		status = http.StatusConflict
	case errors.Is(err, course.ErrNoQuestion), errors.Is(err, course.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, llm.ErrMissingCredential), errors.Is(err, llm.ErrInvalidCredential):
		status = http.StatusBadGateway
	case errors.Is(err, llm.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, llm.ErrUnavailable):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"hint":  llm.Remediation(err),
	})
}

func (h *Handler) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	var docs []ingest.Document
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, fmt.Sprintf("open %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, fmt.Sprintf("read %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}

		text, err := ingest.ExtractPDF(data)
		if err != nil {
			http.Error(w, fmt.Sprintf("extract %s: %v", fh.Filename, err), http.StatusUnprocessableEntity)
			return
		}
		docs = append(docs, ingest.Document{Name: fh.Filename, Text: text})
	}

	stats, err := h.svc.ProcessDocuments(courseName(r), docs)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("processed course files", "course", courseName(r), "files", stats.Files, "words", stats.Words)
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGenerateGuide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tone   string `json:"tone"`
		Depth  string `json:"depth"`
		Format string `json:"format"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	guide, err := h.svc.GenerateGuide(r.Context(), courseName(r),
		model.Tone(req.Tone), model.Depth(req.Depth), model.Format(req.Format))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"guide": guide})
}

func (h *Handler) handleGetGuide(w http.ResponseWriter, r *http.Request) {
	guide, err := h.svc.StudyGuide(courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"guide": guide})
}

func (h *Handler) handleDownloadGuide(w http.ResponseWriter, r *http.Request) {
	guide, err := h.svc.StudyGuide(courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	serveDownload(w, courseName(r)+"_study_guide.md", "text/markdown; charset=utf-8", guide)
}

func (h *Handler) handleGenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.GenerateFlashcards(r.Context(), courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": cards})
}

func (h *Handler) handleGetFlashcards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": h.svc.Flashcards(courseName(r))})
}

func (h *Handler) handleShuffleFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ShuffleFlashcards(courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": cards})
}

func (h *Handler) handleGenerateExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind       string `json:"kind"`
		Count      int    `json:"count"`
		Difficulty string `json:"difficulty"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind := model.QuestionKind(req.Kind)
	if kind != model.KindMultipleChoice {
		kind = model.KindOpenEnded
	}
	qs, err := h.svc.GenerateExercises(r.Context(), courseName(r), kind, req.Count, model.ParseDifficulty(req.Difficulty))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (h *Handler) handleGetExercises(w http.ResponseWriter, r *http.Request) {
	set := h.svc.Exercises(courseName(r))
	if set == nil {
		writeError(w, course.ErrNoExercises)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *Handler) handleAnswerExercise(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.AnswerExercise(courseName(r), index, req.Answer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) handleGradeExercise(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	grade, err := h.svc.GradeExercise(r.Context(), courseName(r), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grade)
}

func (h *Handler) handleExerciseSummary(w http.ResponseWriter, r *http.Request) {
	avg, verdict := h.svc.ExerciseSummary(courseName(r))
	writeJSON(w, http.StatusOK, map[string]any{"average": avg, "verdict": verdict})
}

func (h *Handler) handleStartTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Difficulty string `json:"difficulty"`
		Count      int    `json:"count"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	qs, err := h.svc.StartTest(r.Context(), courseName(r), model.ParseDifficulty(req.Difficulty), req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
}

func (h *Handler) handleTestStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.CheckTest(r.Context(), courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleAnswerTest(w http.ResponseWriter, r *http.Request) {
	index, ok := questionIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.AnswerTest(courseName(r), index, req.Answer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (h *Handler) handleSubmitTest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.SubmitTest(r.Context(), courseName(r)); err != nil {
		writeError(w, err)
		return
	}
	status, err := h.svc.CheckTest(r.Context(), courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleGenerateDiagnostic(w http.ResponseWriter, r *http.Request) {
	diagnostic, err := h.svc.GenerateDiagnostic(r.Context(), courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"diagnostic": diagnostic})
}

func (h *Handler) handleDownloadDiagnostic(w http.ResponseWriter, r *http.Request) {
	diagnostic, err := h.svc.Diagnostic(courseName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	serveDownload(w, courseName(r)+"_diagnostic.md", "text/markdown; charset=utf-8", diagnostic)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message     string `json:"message"`
		Highlighted string `json:"highlighted"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	var reply string
	var err error
	if req.Highlighted == "" {
		reply, err = h.svc.Chat(r.Context(), courseName(r), req.Message)
	} else {
		reply, err = h.svc.ChatAboutSelection(r.Context(), courseName(r), req.Highlighted, req.Message)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleListNotebook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.svc.NotebookSessions(courseName(r))})
}

func (h *Handler) handleAddNotebookSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.AddNotebookSession(courseName(r)))
}

func (h *Handler) handleUpdateNotebookSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateNotebookSession(courseName(r), chi.URLParam(r, "id"), req.Title, req.Content); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) handleDownloadNotebook(w http.ResponseWriter, r *http.Request) {
	serveDownload(w, courseName(r)+"_notes.txt", "text/plain; charset=utf-8", h.svc.NotebookText(courseName(r)))
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CourseProgress(courseName(r)))
}

func questionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid question index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func serveDownload(w http.ResponseWriter, filename, contentType, content string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := io.WriteString(w, content); err != nil {
		slog.Error("write download", "error", err)
	}
}

// Package handler exposes the viva session commands as a JSON API for
// external drivers (web UI, CLI loop, or test harness).
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/evalumate/evalumate/internal/bank"
	"github.com/evalumate/evalumate/internal/content"
	"github.com/evalumate/evalumate/internal/grader"
	"github.com/evalumate/evalumate/internal/model"
	"github.com/evalumate/evalumate/internal/report"
	"github.com/evalumate/evalumate/internal/session"
	"github.com/evalumate/evalumate/internal/store"
)

// LLM is the pair of model collaborators a viva session needs.
type LLM interface {
	session.Generator
	grader.Evaluator
}

// Config holds runtime handler parameters set via CLI flags.
type Config struct {
	SecureCookies   bool   // Set Secure flag on cookies (disable for local dev)
	ResultsCSV      string // Path of the CSV results log ("" disables it)
	MaxContextChars int    // Rune cap on uploaded content (0 = default)
}

// Handler holds shared dependencies for HTTP handlers. Each viva
// session is keyed by a random token; commands on one session are
// serialized with a per-session mutex.
type Handler struct {
	store  *store.Store
	llm    LLM
	sink   *report.CSVSink
	config Config

	mu       sync.Mutex
	sessions map[string]*viva
}

type viva struct {
	mu       sync.Mutex
	ctrl     *session.Controller
	reportID int64
	saved    bool
}

// New creates a new Handler.
func New(s *store.Store, llmClient LLM, cfg Config) *Handler {
	h := &Handler{
		store:    s,
		llm:      llmClient,
		config:   cfg,
		sessions: make(map[string]*viva),
	}
	if cfg.ResultsCSV != "" {
		h.sink = report.NewCSVSink(cfg.ResultsCSV)
	}
	return h
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/viva", h.handleStartViva)
	r.Get("/viva/{token}", h.handleStatus)
	r.Get("/viva/{token}/question", h.handleQuestion)
	r.Post("/viva/{token}/answer", h.handleAnswer)
	r.Post("/viva/{token}/stop", h.handleStop)
	r.Get("/viva/{token}/report", h.handleSessionReport)

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAuth)
		pr.Get("/reports", h.handleListReports)
		pr.Get("/reports/{id}", h.handleGetReport)
		pr.With(requireRole(model.UserRoleAdmin)).Get("/reports/export", h.handleExportReports)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *Handler) lookup(token string) *viva {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[token]
}

type startRequest struct {
	Student model.StudentInfo `json:"student"`
	Pages   map[string]string `json:"pages"`
}

func (h *Handler) handleStartViva(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Student.Complete() {
		writeError(w, http.StatusBadRequest, "name, grade, subject, and book title are required")
		return
	}

	cs := content.NewStoreWithLimit(h.config.MaxContextChars)
	for pageStr, text := range req.Pages {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page number: "+pageStr)
			return
		}
		if err := cs.Put(page, text); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if cs.Len() == 0 {
		writeError(w, http.StatusBadRequest, "no readable pages in upload")
		return
	}

	ctrl := session.New(h.llm, grader.New(h.llm))
	if err := ctrl.Start(r.Context(), req.Student, cs.All()); err != nil {
		slog.Error("viva start failed", "error", err)
		if errors.Is(err, bank.ErrEmptyGeneration) {
			writeError(w, http.StatusBadGateway, "question generation produced no questions")
			return
		}
		writeError(w, http.StatusBadGateway, "question generation failed: "+err.Error())
		return
	}

	token, err := newSessionToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.mu.Lock()
	h.sessions[token] = &viva{ctrl: ctrl}
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":     token,
		"phase":     ctrl.Phase(),
		"questions": len(ctrl.Questions()),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := h.lookup(chi.URLParam(r, "token"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":     v.ctrl.Phase(),
		"asked":     v.ctrl.Asked(),
		"correct":   v.ctrl.Correct(),
		"incorrect": v.ctrl.Incorrect(),
	})
}

func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	v := h.lookup(chi.URLParam(r, "token"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	q, err := v.ctrl.CurrentQuestion()
	if err != nil {
		if errors.Is(err, session.ErrPhase) || errors.Is(err, bank.ErrNoQuestion) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"number":   v.ctrl.Asked() + 1,
		"tier":     q.Tier,
		"question": q.Text,
	})
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	v := h.lookup(chi.URLParam(r, "token"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Answer == "" {
		writeError(w, http.StatusBadRequest, "answer cannot be empty")
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	outcome, err := v.ctrl.SubmitAnswer(r.Context(), req.Answer)
	if err != nil {
		if errors.Is(err, session.ErrPhase) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("answer evaluation failed", "error", err)
		writeError(w, http.StatusBadGateway, "evaluation failed: "+err.Error())
		return
	}

	if v.ctrl.Phase() == model.PhaseFinished {
		h.finalize(v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"score":   outcome.Score,
		"correct": outcome.Correct(),
		"phase":   v.ctrl.Phase(),
	})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	v := h.lookup(chi.URLParam(r, "token"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.ctrl.Stop(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.finalize(v)

	sum := v.ctrl.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"phase":     v.ctrl.Phase(),
		"report_id": v.reportID,
		"asked":     sum.QuestionsAsked,
		"correct":   sum.Correct,
		"incorrect": sum.Incorrect,
	})
}

// finalize renders and persists a finished session exactly once.
// Persistence failures are logged and retried on the next finalize
// attempt; the session itself keeps its transcript either way.
func (h *Handler) finalize(v *viva) {
	if v.saved {
		return
	}
	sum := v.ctrl.Summary()
	body := report.Build(v.ctrl.Student(), v.ctrl.Questions())

	id, err := h.store.SaveReport(model.Report{
		Student:        sum.Student,
		QuestionsAsked: sum.QuestionsAsked,
		Correct:        sum.Correct,
		Incorrect:      sum.Incorrect,
		ScoreSum:       sum.ScoreSum,
		Body:           body,
	}, v.ctrl.Outcomes())
	if err != nil {
		slog.Error("save report", "error", err)
		return
	}
	v.reportID = id

	if h.sink != nil {
		if err := h.sink.Append(sum); err != nil {
			slog.Error("append results log", "error", err)
		}
	}
	v.saved = true
	slog.Info("report persisted", "report_id", id, "student", sum.Student.Name)
}

func (h *Handler) handleSessionReport(w http.ResponseWriter, r *http.Request) {
	v := h.lookup(chi.URLParam(r, "token"))
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ctrl.Phase() != model.PhaseFinished {
		writeError(w, http.StatusConflict, "session not finished")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(report.Build(v.ctrl.Student(), v.ctrl.Questions())))
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListReports()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report ID")
		return
	}
	rep, err := h.store.GetReport(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	outcomes, err := h.store.GetOutcomes(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":   rep,
		"outcomes": outcomes,
	})
}

func (h *Handler) handleExportReports(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.ExportAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	info, err := h.store.GetExamInfo()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.ReportExport{
		ExamID:  info.ExamID,
		Subject: info.Subject,
		Date:    info.Date,
		Results: results,
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/reportcard/internal/docx"
	apperrors "github.com/pavelanni/reportcard/internal/errors"
	appI18n "github.com/pavelanni/reportcard/internal/i18n"
	"github.com/pavelanni/reportcard/internal/llm"
	"github.com/pavelanni/reportcard/internal/model"
	"github.com/pavelanni/reportcard/internal/report"
	"github.com/pavelanni/reportcard/internal/store"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	synth   *docx.Synthesizer
	drafter llm.Drafter
	config  model.ReportConfig
	now     func() time.Time
}

// New creates a new Handler. Templates are looked up in the store first,
// then in templates if it is not nil. A nil drafter disables feedback drafting.
func New(s *store.Store, templates docx.TemplateSource, d llm.Drafter, cfg model.ReportConfig) *Handler {
	var src docx.TemplateSource = s
	if templates != nil {
		src = docx.FallbackTemplates{s, templates}
	}
	return &Handler{
		store:   s,
		synth:   docx.NewSynthesizer(src, cfg.TemplateName, cfg.OutputDir),
		drafter: d,
		config:  cfg,
		now:     time.Now,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/students/{studentID}/fields", h.handleFields)
	r.Get("/students/{studentID}/report", h.handleReport)
	r.Get("/grades/{level}/final", h.handleGradeFinal)
	r.Post("/courses/{courseID}/marks", h.handleMarks)
	r.Post("/courses/{courseID}/feedback/draft", h.handleDraftFeedback)
	r.Route("/admin", func(r chi.Router) {
		r.Post("/import", h.handleImport)
		r.Put("/templates/{name}", h.handlePutTemplate)
		r.Get("/templates", h.handleListTemplates)
	})
}

// loader returns a report loader labelling subjects in the request language
// and filling the school fields from metadata.
func (h *Handler) loader(r *http.Request) (*report.Loader, error) {
	info, err := h.store.GetSchoolInfo()
	if err != nil {
		return nil, fmt.Errorf("school info: %w", err)
	}
	ctx := r.Context()
	b := report.NewBuilder()
	b.Now = h.now
	b.Extra = report.SchoolFields(info)
	b.Label = func(s report.Subject) string { return appI18n.SubjectLabel(ctx, s.Key) }
	return report.NewLoader(h.store, b), nil
}

func (h *Handler) studentMapping(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid student ID", http.StatusBadRequest)
		return nil, false
	}
	l, err := h.loader(r)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	fields, err := l.StudentMapping(studentID)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return fields, true
}

func (h *Handler) handleFields(w http.ResponseWriter, r *http.Request) {
	fields, ok := h.studentMapping(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	fields, ok := h.studentMapping(w, r)
	if !ok {
		return
	}

	path, err := h.synth.Generate(r.Context(), fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove served report", "path", path, "error", err)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		h.writeError(w, r, apperrors.Wrap(apperrors.CodeIOFailure, "open generated report", err))
		return
	}
	defer f.Close()

	name := fmt.Sprintf("report-%s-%s.docx", fields[report.FieldLastName], fields[report.FieldFirstName])
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, filepath.Base(path), h.now(), f)
}

func (h *Handler) handleGradeFinal(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil {
		http.Error(w, "invalid grade level", http.StatusBadRequest)
		return
	}
	l, err := h.loader(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	reports, courses, err := l.GradeReport(level)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	info, err := h.store.GetSchoolInfo()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	year := info.Year
	if year == "" {
		year = strconv.Itoa(h.now().Year())
	}
	writeJSON(w, http.StatusOK, report.Export(level, year, reports, courses))
}

type markEntry struct {
	StudentID    int64  `json:"student_id"`
	AssignmentID int64  `json:"assignment_id"`
	Mark         string `json:"mark"` // "" clears the mark
}

// handleMarks records a batch of raw marks for one course. Every entry is
// checked before anything is written and the batch is saved in one
// transaction, so a single invalid mark or unenrolled student rejects the
// whole batch.
func (h *Handler) handleMarks(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid course ID", http.StatusBadRequest)
		return
	}

	var entries []markEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&entries); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	assignments, err := h.store.AssignmentsByCourse(courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	byID := make(map[int64]model.Assignment, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a
	}
	students, err := h.store.StudentsByCourse(courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	enrolled := make(map[int64]bool, len(students))
	for _, st := range students {
		enrolled[st.ID] = true
	}

	changes := make([]store.MarkChange, len(entries))
	for i, e := range entries {
		a, ok := byID[e.AssignmentID]
		if !ok {
			h.writeError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidMark,
				fmt.Sprintf("assignment %d is not part of course %d", e.AssignmentID, courseID),
				map[string]string{"Value": e.Mark, "Max": "0"}))
			return
		}
		if !enrolled[e.StudentID] {
			h.writeError(w, r, apperrors.WithMetadata(apperrors.CodeInvalidMark,
				fmt.Sprintf("student %d is not enrolled in course %d", e.StudentID, courseID),
				map[string]string{"Value": e.Mark, "Max": strconv.Itoa(a.MaxMarks)}))
			return
		}
		changes[i] = store.MarkChange{StudentID: e.StudentID, AssignmentID: e.AssignmentID}
		if e.Mark == "" {
			continue
		}
		mark, err := model.ParseMark(e.Mark, a)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		changes[i].Mark = &mark
	}

	if err := h.store.SetMarks(courseID, changes); err != nil {
		slog.Error("failed to save marks", "course_id", courseID, "error", err)
		h.writeError(w, r, err)
		return
	}

	slog.Info("saved marks", "course_id", courseID, "count", len(entries))
	writeJSON(w, http.StatusOK, map[string]any{
		"saved":   len(entries),
		"message": appI18n.Tp(r.Context(), "MarksSaved", len(entries)),
	})
}

func (h *Handler) handleDraftFeedback(w http.ResponseWriter, r *http.Request) {
	if h.drafter == nil {
		http.Error(w, "feedback drafting is not configured", http.StatusNotImplemented)
		return
	}
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid course ID", http.StatusBadRequest)
		return
	}
	n, err := llm.DraftCourseFeedback(r.Context(), h.drafter, h.store, courseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"drafted": n})
}

// writeError maps err to a status code and writes a localized JSON body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, report.ErrStudentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"code":    "NOT_FOUND",
			"message": appI18n.T(r.Context(), "ErrStudentNotFound"),
		})
		return
	case apperrors.IsCode(err, apperrors.CodeInvalidMark):
		status = http.StatusBadRequest
	case apperrors.IsCode(err, apperrors.CodeTemplateMissing):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"code":    string(apperrors.GetCode(err)),
		"message": appI18n.ErrorMessage(r.Context(), err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

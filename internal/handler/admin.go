package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/reportcard/internal/docx"
	"github.com/pavelanni/reportcard/internal/model"
)

const maxUpload = 20 << 20

// handleImport loads a school data file uploaded as "school_file". A file
// whose name and content were already imported is skipped.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("school_file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	storedHash, err := h.store.GetImportedFileHash(header.Filename)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if storedHash == hash {
		writeJSON(w, http.StatusOK, map[string]any{"skipped": true})
		return
	}

	var school model.SchoolImport
	if err := json.Unmarshal(data, &school); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	sum, err := h.store.ImportSchool(school)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.store.SetImportedFileHash(header.Filename, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}

	slog.Info("imported school data via admin", "filename", header.Filename,
		"students", sum.Students, "courses", sum.Courses, "marks", sum.Marks)
	writeJSON(w, http.StatusOK, sum)
}

// handlePutTemplate stores the request body as the named DOCX template.
func (h *Handler) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}
	if err := docx.CheckTemplate(data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.store.PutTemplate(name, data); err != nil {
		h.writeError(w, r, err)
		return
	}
	slog.Info("stored template", "name", name, "bytes", len(data))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListTemplates()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

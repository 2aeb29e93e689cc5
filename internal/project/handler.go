package project

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/graphif/stagecore/internal/auth"
	"github.com/graphif/stagecore/internal/store"
)

const maxDocumentSize = 32 << 20 // 32MB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Sample bool `json:"sample"`
}

// Create handles POST /api/projects. The body is optional.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	project, err := h.service.Create(r.Context(), req.Sample)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("project created", "projectId", project.ID, "subject", auth.SubjectFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetDocument handles GET /api/projects/{projectId}/document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context(), mux.Vars(r)["projectId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// PutDocument handles PUT /api/projects/{projectId}/document.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
		return
	}

	project, err := h.service.Replace(r.Context(), projectID, data)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("project document replaced", "projectId", projectID, "subject", auth.SubjectFromContext(r.Context()))
	writeJSON(w, http.StatusOK, project)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidDocument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project id"})
	case errors.Is(err, ErrLive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

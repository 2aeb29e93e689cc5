package attachment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const maxUploadSize = 10 << 20 // 10MB

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", MIMESVG}

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Size   int    `json:"size"`
}

// Handler serves attachment upload and retrieval endpoints.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Upload handles POST /api/projects/{projectId}/attachments (multipart form with "file" field).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file: " + err.Error()})
		return
	}

	// The declared type is not trusted; the bytes decide.
	mime := Sniff(data)
	if !isAllowed(mime) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported attachment type " + mime})
		return
	}

	id, err := h.store.Put(r.Context(), mime, data)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	info := Describe(mime, data)

	slog.Info("attachment stored", "attachmentId", id, "projectId", mux.Vars(r)["projectId"], "size", info.Size)
	writeJSON(w, http.StatusOK, UploadResponse{
		ID:     id,
		URL:    fmt.Sprintf("/api/attachments/%s", id),
		Width:  info.Width,
		Height: info.Height,
		Type:   info.MIME,
		Name:   header.Filename,
		Size:   info.Size,
	})
}

// Serve handles GET /api/attachments/{attachmentId}.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	blob, err := h.store.Get(r.Context(), mux.Vars(r)["attachmentId"])
	if err != nil {
		handleStoreError(w, err)
		return
	}
	// Attachment ids are bound to their content, so responses never change.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Content-Type", blob.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("ETag", `"`+blob.Hash+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(blob.Data)
}

// List handles GET /api/attachments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.List(r.Context())
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// Delete handles DELETE /api/attachments/{attachmentId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), mux.Vars(r)["attachmentId"]); err != nil {
		handleStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isAllowed(mime string) bool {
	for _, t := range allowedTypes {
		if strings.HasPrefix(mime, t) {
			return true
		}
	}
	return false
}

func handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrEmpty):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty file"})
	default:
		slog.Error("attachment store error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

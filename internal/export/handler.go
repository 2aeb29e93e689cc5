package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/stage"
	"github.com/graphif/stagecore/internal/store"
	"github.com/graphif/stagecore/internal/typeid"
)

const maxScale = 8

// Loader returns the stored document JSON of a project.
type Loader interface {
	Load(ctx context.Context, projectID string) ([]byte, error)
}

type Handler struct {
	docs        Loader
	attachments attachment.Store
	opts        Options
}

// NewHandler serves exports of stored documents. opts supplies the tile and pixel
// limits; its Attachments field is replaced by attachments.
func NewHandler(docs Loader, attachments attachment.Store, opts Options) *Handler {
	opts.Attachments = attachments
	return &Handler{docs: docs, attachments: attachments, opts: opts}
}

// Export handles POST /api/projects/{projectId}/export?format=png|svg&scale=1.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "png"
	}
	if format != "png" && format != "svg" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid format: must be png or svg"})
		return
	}

	opts := h.opts
	if s := r.URL.Query().Get("scale"); s != "" {
		scale, err := strconv.ParseFloat(s, 64)
		if err != nil || scale <= 0 || scale > maxScale {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid scale"})
			return
		}
		opts.Scale = scale
	}

	m, err := h.load(r.Context(), projectID)
	if err != nil {
		handleExportError(w, err)
		return
	}

	exportID := typeid.NewExportID()
	start := time.Now()
	slog.Info("export started", "exportId", exportID, "projectId", projectID, "format", format)

	switch format {
	case "png":
		img, err := PNG(r.Context(), m, opts, func(done, total int) {
			slog.Debug("export progress", "exportId", exportID, "done", done, "total", total)
		})
		if err != nil {
			handleExportError(w, err)
			return
		}
		setAttachmentHeaders(w, "image/png", exportID+".png")
		if err := png.Encode(w, img); err != nil {
			slog.Error("encode png", "exportId", exportID, "error", err)
			return
		}
	case "svg":
		if _, err := Bounds(m, DefaultPadding); err != nil {
			handleExportError(w, err)
			return
		}
		setAttachmentHeaders(w, "image/svg+xml", exportID+".svg")
		err := SVG(w, m, SVGOptions{AttachmentURL: func(id string) string {
			return "/api/attachments/" + id
		}})
		if err != nil {
			slog.Error("write svg", "exportId", exportID, "error", err)
			return
		}
	}

	exportDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	slog.Info("export complete", "exportId", exportID, "duration", time.Since(start))
}

func (h *Handler) load(ctx context.Context, projectID string) (*stage.Manager, error) {
	data, err := h.docs.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse project %s: %w", projectID, err)
	}
	var checker stage.AttachmentChecker
	if h.attachments != nil {
		checker = attachment.Checker{Store: h.attachments}
	}
	return stage.FromDocument(doc, checker)
}

func setAttachmentHeaders(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
}

func handleExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
	case errors.Is(err, ErrEmptyStage):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("export canceled", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "export canceled"})
	default:
		slog.Error("export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

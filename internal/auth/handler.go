package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type Handler struct {
	service     *Service
	issueSecret string
}

// NewHandler serves the token endpoint. An empty issueSecret disables it.
func NewHandler(service *Service, issueSecret string) *Handler {
	return &Handler{service: service, issueSecret: issueSecret}
}

type tokenRequest struct {
	Subject string `json:"subject"`
	Secret  string `json:"secret"`
}

// Token handles POST /api/token. It is a development aid: anyone holding the shared
// secret may mint a token for any subject.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if h.issueSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "token issuing disabled"})
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.issueSecret)) != 1 {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid secret"})
		return
	}

	token, err := h.service.Issue(req.Subject)
	if err != nil {
		if errors.Is(err, ErrNoSubject) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject is required"})
			return
		}
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	slog.Info("token issued", "subject", token.Subject, "expiresAt", token.ExpiresAt)
	writeJSON(w, http.StatusCreated, token)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

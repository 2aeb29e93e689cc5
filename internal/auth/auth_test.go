package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueValidate(t *testing.T) {
	s := NewService("secret", time.Hour)
	tok, err := s.Issue("user_1")
	require.NoError(t, err)
	assert.Equal(t, "user_1", tok.Subject)

	sub, err := s.Validate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", sub)

	_, err = s.Issue("")
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestValidateRejects(t *testing.T) {
	s := NewService("secret", time.Hour)
	tok, err := s.Issue("user_1")
	require.NoError(t, err)

	_, err = NewService("other", time.Hour).Validate(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Validate(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user_1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewService("secret", time.Hour).Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	s := NewService("secret", time.Hour)
	var seen string
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, header := range []string{"", "Token abc", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}

	tok, err := s.Issue("user_2")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user_2", seen)
}

func TestTokenEndpoint(t *testing.T) {
	s := NewService("secret", time.Hour)

	post := func(h *Handler, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Token(rec, httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusNotFound, post(NewHandler(s, ""), `{"subject":"a","secret":""}`).Code)

	h := NewHandler(s, "shh")
	assert.Equal(t, http.StatusBadRequest, post(h, `{`).Code)
	assert.Equal(t, http.StatusForbidden, post(h, `{"subject":"a","secret":"wrong"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"subject":"","secret":"shh"}`).Code)

	rec := post(h, `{"subject":"a","secret":"shh"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject":"a"`)
}

package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/store"
)

type fakeLive map[string][]byte

func (f fakeLive) Document(projectID string) ([]byte, int64, bool) {
	data, ok := f[projectID]
	return data, 3, ok
}

func router(s *Service) *mux.Router {
	h := NewHandler(s)
	r := mux.NewRouter()
	r.HandleFunc("/api/projects", h.List).Methods("GET")
	r.HandleFunc("/api/projects", h.Create).Methods("POST")
	r.HandleFunc("/api/projects/{projectId}", h.Get).Methods("GET")
	r.HandleFunc("/api/projects/{projectId}/document", h.GetDocument).Methods("GET")
	r.HandleFunc("/api/projects/{projectId}/document", h.PutDocument).Methods("PUT")
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCreateGetList(t *testing.T) {
	s := NewService(store.NewMemory(), nil)
	r := router(s)

	rec := do(r, http.MethodPost, "/api/projects", `{"sample":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.ID, "proj_"))
	assert.Equal(t, len(document.NewSampleDocument().Entities), created.Entities)

	rec = do(r, http.MethodPost, "/api/projects", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(r, http.MethodGet, "/api/projects/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.Entities, got.Entities)
	assert.False(t, got.Live)

	rec = do(r, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/projects/proj_missing", "").Code)
}

func TestReplaceDocument(t *testing.T) {
	s := NewService(store.NewMemory(), nil)
	r := router(s)

	doc := `{"version":17,"entities":[{"uuid":"a","type":"core:text_node","location":[0,0],"text":"hi"}],"associations":[],"tags":[]}`
	rec := do(r, http.MethodPut, "/api/projects/proj_x/document", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/projects/proj_x/document", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, doc, rec.Body.String())

	bad := `{"version":17,"entities":[{"uuid":"a","type":"core:text_node","location":[0,0]}]}`
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/projects/proj_x/document", bad).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/projects/bad.id/document", doc).Code)
}

func TestLiveRoomWins(t *testing.T) {
	docs := store.NewMemory()
	require.NoError(t, docs.Save(context.Background(), "proj_live", []byte(`{"version":17}`)))
	live := fakeLive{"proj_live": []byte(`{"version":17,"entities":[{"uuid":"a","type":"core:section","location":[0,0]}]}`)}
	s := NewService(docs, live)

	p, err := s.Get(context.Background(), "proj_live")
	require.NoError(t, err)
	assert.True(t, p.Live)
	assert.Equal(t, 1, p.Entities)

	_, err = s.Replace(context.Background(), "proj_live", []byte(`{"version":17}`))
	assert.ErrorIs(t, err, ErrLive)
	assert.Equal(t, http.StatusConflict, do(router(s), http.MethodPut, "/api/projects/proj_live/document", `{"version":17}`).Code)
}

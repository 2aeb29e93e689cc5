package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphif/stagecore/internal/camera"
	"github.com/graphif/stagecore/internal/geom"
	"github.com/graphif/stagecore/internal/stage"
	"github.com/graphif/stagecore/internal/store"
)

const oneNode = `{"version":17,"entities":[{"uuid":"a","type":"core:text_node","location":[0,0],"text":"hello"}],"associations":[],"tags":[]}`

func newStage(t *testing.T) *stage.Manager {
	t.Helper()
	m := stage.NewManager()
	require.NoError(t, m.Add(stage.NewTextNode("a", "hello", geom.V(0, 0))))
	require.NoError(t, m.Add(stage.NewTextNode("b", "world", geom.V(300, 200))))
	return m
}

func TestPNGCoversPaddedBounds(t *testing.T) {
	m := newStage(t)
	b, err := Bounds(m, DefaultPadding)
	require.NoError(t, err)

	img, err := PNG(context.Background(), m, Options{Scale: 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, int(math.Ceil(b.Width()*0.5)), img.Bounds().Dx())
	assert.Equal(t, int(math.Ceil(b.Height()*0.5)), img.Bounds().Dy())

	bg := Background
	drawn := false
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y && !drawn; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			if !sameColor(img, x, y, bg) {
				drawn = true
				break
			}
		}
	}
	assert.True(t, drawn, "expected something besides the background")
}

func sameColor(img image.Image, x, y int, c color.Color) bool {
	r1, g1, b1, a1 := img.At(x, y).RGBA()
	r2, g2, b2, a2 := c.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func TestScaleFollowsCameraRange(t *testing.T) {
	assert.Equal(t, camera.MaxScale, Options{Scale: 1000}.withDefaults().Scale)
	assert.Equal(t, camera.MinScale, Options{Scale: 0.0001}.withDefaults().Scale)
	assert.Equal(t, 1.0, Options{}.withDefaults().Scale)

	m := newStage(t)
	b, err := Bounds(m, DefaultPadding)
	require.NoError(t, err)
	img, err := PNG(context.Background(), m, Options{Scale: 0.0001}, nil)
	require.NoError(t, err)
	assert.Equal(t, int(math.Ceil(b.Width()*camera.MinScale)), img.Bounds().Dx())
	assert.Equal(t, int(math.Ceil(b.Height()*camera.MinScale)), img.Bounds().Dy())
}

func TestPNGReportsProgressPerTile(t *testing.T) {
	m := newStage(t)
	var calls [][2]int
	img, err := PNG(context.Background(), m, Options{TileWidth: 128, TileHeight: 96}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)

	cols := (img.Bounds().Dx() + 127) / 128
	rows := (img.Bounds().Dy() + 95) / 96
	require.Len(t, calls, cols*rows)
	for i, c := range calls {
		assert.Equal(t, [2]int{i + 1, cols * rows}, c)
	}
}

func TestPNGStopsWhenCanceled(t *testing.T) {
	m := newStage(t)
	ctx, cancel := context.WithCancel(context.Background())
	tiles := 0
	_, err := PNG(ctx, m, Options{TileWidth: 64, TileHeight: 64}, func(done, total int) {
		tiles = done
		if done == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, tiles)
}

func TestPNGLimits(t *testing.T) {
	_, err := PNG(context.Background(), stage.NewManager(), Options{}, nil)
	assert.ErrorIs(t, err, ErrEmptyStage)

	_, err = PNG(context.Background(), newStage(t), Options{MaxPixels: 100}, nil)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	err := SVG(&buf, newStage(t), SVGOptions{Background: "#1e1e1e"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "matrix(")
	assert.Contains(t, out, ">hello</text>")
	assert.Contains(t, out, ">world</text>")
	assert.Contains(t, out, "fill:#1e1e1e")

	assert.ErrorIs(t, SVG(&buf, stage.NewManager(), SVGOptions{}), ErrEmptyStage)
}

func TestParseColor(t *testing.T) {
	c, ok := parseColor("#ff8000", 1)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 255, G: 128, B: 0, A: 255}, c)

	c, ok = parseColor("rgba(10,20,30,0.5)", 0.5)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 64}, c)

	_, ok = parseColor("", 1)
	assert.False(t, ok)
	_, ok = parseColor("blue", 1)
	assert.False(t, ok)
}

func exportRouter(t *testing.T, docs map[string]string) *mux.Router {
	t.Helper()
	mem := store.NewMemory()
	for id, doc := range docs {
		require.NoError(t, mem.Save(context.Background(), id, []byte(doc)))
	}
	h := NewHandler(mem, nil, Options{})
	r := mux.NewRouter()
	r.HandleFunc("/api/projects/{projectId}/export", h.Export).Methods("POST")
	return r
}

func post(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec
}

func TestHandlerExports(t *testing.T) {
	r := exportRouter(t, map[string]string{
		"proj_one":   oneNode,
		"proj_empty": `{"version":17}`,
	})

	rec := post(r, "/api/projects/proj_one/export?format=png&scale=0.5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="exp_`)
	_, err := png.Decode(rec.Body)
	require.NoError(t, err)

	rec = post(r, "/api/projects/proj_one/export?format=svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "hello")

	assert.Equal(t, http.StatusBadRequest, post(r, "/api/projects/proj_one/export?format=gif").Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/api/projects/proj_one/export?scale=-1").Code)
	assert.Equal(t, http.StatusNotFound, post(r, "/api/projects/proj_none/export").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, post(r, "/api/projects/proj_empty/export").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, post(r, "/api/projects/proj_empty/export?format=svg").Code)
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chazu/whitedwarf/internal/catalog"
	"github.com/chazu/whitedwarf/internal/pool"
	"github.com/chazu/whitedwarf/pkg/export"
	"github.com/chazu/whitedwarf/pkg/inference"
	"github.com/chazu/whitedwarf/pkg/kernel"
	"github.com/chazu/whitedwarf/pkg/kernel/sdfx"
	"github.com/chazu/whitedwarf/pkg/pipeline"
	"github.com/chazu/whitedwarf/pkg/stability"
)

const cubeOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
v 0 0 1
v 1 0 1
v 0 1 1
v 1 1 1
f 1 3 4 2
f 5 6 8 7
f 1 2 6 5
f 3 7 8 4
f 1 5 7 3
f 2 4 8 6
`

type httpRecorder struct {
	mu     sync.Mutex
	routes []string
}

func (r *httpRecorder) ObserveHTTP(method, route string, code int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, fmt.Sprintf("%s %s %d", method, route, code))
}

type env struct {
	handler http.Handler
	dir     string
	rec     *httpRecorder
}

func newEnv(t *testing.T, opts ...pipeline.Option) *env {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cafe0001_mesh.obj"), []byte(cubeOBJ), 0o644))

	p := pool.New(1, 4, nil)
	t.Cleanup(p.Close)
	svc, err := pipeline.New(pipeline.Config{
		OutputsDir:      dir,
		DepthResolution: 32,
		Formats:         export.DefaultFormats,
	}, p, stability.New(sdfx.New()), export.New(), opts...)
	require.NoError(t, err)

	rec := &httpRecorder{}
	h := NewRouter(RouterConfig{
		Handlers:    NewHandlers(svc, catalog.Default(), Options{PublicURL: "http://localhost:8000/"}, nil),
		OutputsDir:  dir,
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		Recorder:    rec,
		CORSOrigins: []string{"http://localhost:5173"},
	})
	return &env{handler: h, dir: dir, rec: rec}
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPhysics(t *testing.T) {
	e := newEnv(t)
	rec := e.do("POST", "/api/physics", `{"mesh_url":"/outputs/cafe0001_mesh.obj"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["is_stable"])
	assert.InDelta(t, 0.5, body["center_of_mass_y"], 1e-6)
	assert.Greater(t, body["base_support_ratio"], 0.9)
	assert.Len(t, body["bounding_box"], 3)
	assert.Contains(t, body["verdict"], "Stable")

	assert.Contains(t, e.rec.routes, "POST /api/physics 200")
}

func TestPhysicsErrors(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "broken.obj"), []byte("f 1 2 3\n"), 0o644))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing file", `{"mesh_url":"/outputs/ghost.obj"}`, http.StatusNotFound},
		{"missing field", `{}`, http.StatusUnprocessableEntity},
		{"not json", `mesh`, http.StatusUnprocessableEntity},
		{"bad geometry", `{"mesh_url":"/outputs/broken.obj"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do("POST", "/api/physics", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["detail"])
		})
	}
}

func TestExport(t *testing.T) {
	e := newEnv(t)
	rec := e.do("POST", "/api/export", `{"mesh_url":"/outputs/cafe0001_mesh.obj"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "/outputs/cafe0001_mesh.glb", body["glb_url"])
	assert.Equal(t, "/outputs/cafe0001_mesh.usdz", body["usdz_url"])
	assert.Equal(t, "http://localhost:8000/outputs/cafe0001_mesh.glb", body["public_url"])
	assert.NotContains(t, body, "stl_url")

	served := e.do("GET", "/outputs/cafe0001_mesh.glb", "")
	assert.Equal(t, http.StatusOK, served.Code)
	assert.True(t, bytes.HasPrefix(served.Body.Bytes(), []byte("glTF")))
}

func TestExportUnknownFormat(t *testing.T) {
	e := newEnv(t)
	rec := e.do("POST", "/api/export", `{"mesh_url":"/outputs/cafe0001_mesh.obj","formats":["fbx"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInferenceRoutesWithoutProvider(t *testing.T) {
	e := newEnv(t)
	rec := e.do("POST", "/api/texture", `{"mesh_url":"/outputs/cafe0001_mesh.obj","material_prompt":"oak"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prompt", "a stool"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", "/api/generate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	gen := httptest.NewRecorder()
	e.handler.ServeHTTP(gen, req)
	assert.Equal(t, http.StatusServiceUnavailable, gen.Code)
}

func TestGenerateRequiresPrompt(t *testing.T) {
	e := newEnv(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", "/api/generate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCatalog(t *testing.T) {
	e := newEnv(t)

	body := decodeBody(t, e.do("GET", "/api/catalog", ""))
	assert.EqualValues(t, 12, body["total"])

	body = decodeBody(t, e.do("GET", "/api/catalog?category=lighting", ""))
	assert.EqualValues(t, 2, body["total"])

	item := decodeBody(t, e.do("GET", "/api/catalog/bookcase", ""))
	assert.Equal(t, "Industrial Bookcase", item["name"])

	missing := e.do("GET", "/api/catalog/throne", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "Item 'throne' not found", decodeBody(t, missing)["detail"])
}

func TestRootHealthMetrics(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, "ok", decodeBody(t, e.do("GET", "/health", ""))["status"])
	assert.Equal(t, "White Dwarf", decodeBody(t, e.do("GET", "/", ""))["name"])
	assert.Equal(t, "# metrics", e.do("GET", "/metrics", "").Body.String())
	assert.Equal(t, http.StatusNotFound, e.do("GET", "/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, e.do("GET", "/outputs/", "").Code)
}

func TestCORS(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest("OPTIONS", "/api/physics", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest("OPTIONS", "/api/physics", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{kernel.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", kernel.ErrUnsupportedGeometry), http.StatusBadRequest},
		{kernel.ErrDegenerateGeometry, http.StatusUnprocessableEntity},
		{inference.ErrNotConfigured, http.StatusServiceUnavailable},
		{inference.ErrJobTimeout, http.StatusGatewayTimeout},
		{inference.ErrJobFailed, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			e := classify(tt.err, "Export")
			assert.Equal(t, tt.code, e.Status)
			assert.ErrorIs(t, e, tt.err)
		})
	}
	assert.Equal(t, "Export failed", classify(errors.New("disk on fire"), "Export").Detail)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("oops") }), Recovery(nopLogger()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func nopLogger() *zap.Logger { return zap.NewNop() }

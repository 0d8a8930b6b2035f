package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/tomz197/fabric/internal/cloth"
	"github.com/tomz197/fabric/internal/loop/server"
)

func newTestMux(t *testing.T) (*server.Server, http.Handler) {
	t.Helper()
	cfg := cloth.DefaultConfig()
	cfg.Width, cfg.Height = 4, 3
	s, err := server.NewServer(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s, newMux(s, "<html>page</html>", log.New(io.Discard))
}

func TestMeshEndpoint(t *testing.T) {
	_, mux := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mesh", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got meshResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Width != 4 || got.Height != 3 {
		t.Fatalf("dims = %dx%d", got.Width, got.Height)
	}
	if len(got.Vertices) != 3*12 || len(got.Normals) != 3*12 {
		t.Fatalf("buffers %d vertices %d normals", len(got.Vertices), len(got.Normals))
	}
	if len(got.Indices) != cloth.IndexCount(4, 3) {
		t.Fatalf("indices = %d", len(got.Indices))
	}
	// Particle (1, 2) sits at x = 5, z = 10 on the flat grid.
	i := 3 * cloth.Index(1, 2, 3)
	if got.Vertices[i] != 5 || got.Vertices[i+1] != 0 || got.Vertices[i+2] != 10 {
		t.Fatalf("vertex = %v", got.Vertices[i:i+3])
	}
	if got.Sphere == nil || got.Sphere.Radius != 2.5 {
		t.Fatalf("sphere = %+v", got.Sphere)
	}
}

func TestCommandEndpoint(t *testing.T) {
	s, mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/toggle-pause", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !s.GetSnapshot().Paused {
		t.Fatalf("pause command not applied")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/explode", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown command status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/command/rebuild", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET command status = %d", rec.Code)
	}
}

func TestIndexPage(t *testing.T) {
	_, mux := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "page") {
		t.Fatalf("index = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
}

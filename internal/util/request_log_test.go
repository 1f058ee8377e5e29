package util

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestWithRequestLogEmitsAccessLine(t *testing.T) {
	buf := captureLog(t)
	handler := WithRequestLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"t1"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/topicos", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	line := buf.String()
	for _, want := range []string{`"path":"/topicos"`, `"status":201`, `"bytes":11`} {
		if !strings.Contains(line, want) {
			t.Fatalf("access line missing %s: %s", want, line)
		}
	}
}

func TestWithRequestLogSkipsHealthProbes(t *testing.T) {
	buf := captureLog(t)
	handler := WithRequestLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if buf.Len() != 0 {
		t.Fatalf("expected no access line for health probe, got %s", buf.String())
	}
}

func TestWithRequestLogDefaultsImplicitStatus(t *testing.T) {
	buf := captureLog(t)
	handler := WithRequestLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/cursos", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("expected implicit 200 in access line: %s", buf.String())
	}
}

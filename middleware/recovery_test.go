package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

func TestRecoveryProcessor(t *testing.T) {
	var buf bytes.Buffer
	h := endpoint.Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		panic("kaboom")
	}, NewRecoveryProcessor(jsonLogger(&buf)))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "internal server error" {
		t.Errorf("got body %q", got)
	}
	if !strings.Contains(buf.String(), "kaboom") || !strings.Contains(buf.String(), "stack") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestRecoveryProcessor_PassesThrough(t *testing.T) {
	h := endpoint.Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		return &endpoint.StringRenderer{Body: "fine"}, nil
	}, NewRecoveryProcessor(nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != "fine" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestRecoveryProcessor_RepanicsAbortHandler(t *testing.T) {
	p := NewRecoveryProcessor(nil)
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Fatal("expected http.ErrAbortHandler to propagate")
		}
	}()
	_ = p.Process(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), func(http.ResponseWriter, *http.Request) error {
		panic(http.ErrAbortHandler)
	})
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

func nextOK(called *bool) func(http.ResponseWriter, *http.Request) error {
	return func(http.ResponseWriter, *http.Request) error {
		*called = true
		return nil
	}
}

func TestNewAPISecurityHeadersProcessor(t *testing.T) {
	p := NewAPISecurityHeadersProcessor()
	if p.ReferrerPolicy != "no-referrer" {
		t.Errorf("ReferrerPolicy: got %q, want %q", p.ReferrerPolicy, "no-referrer")
	}
	if p.FrameOptions != "DENY" {
		t.Errorf("FrameOptions: got %q, want %q", p.FrameOptions, "DENY")
	}
	if !p.ContentTypeOptions {
		t.Error("ContentTypeOptions should be true by default")
	}
	if p.CORS != nil {
		t.Error("CORS should be nil by default")
	}
}

func TestSecurityHeadersProcessor_DefaultHeaders(t *testing.T) {
	p := NewAPISecurityHeadersProcessor()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/json_rpc", nil)

	nextCalled := false
	if err := p.Process(w, r, nextOK(&nextCalled)); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !nextCalled {
		t.Fatal("next was not called")
	}

	want := map[string]string{
		"Referrer-Policy":              "no-referrer",
		"X-Frame-Options":              "DENY",
		"X-Content-Type-Options":       "nosniff",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected CORS header %q", got)
	}
}

func TestSecurityHeadersProcessor_Options(t *testing.T) {
	p := NewAPISecurityHeadersProcessor(
		WithReferrerPolicy(""),
		WithFrameOptions("SAMEORIGIN"),
		WithCSP("default-src 'self'"),
	)
	w := httptest.NewRecorder()
	var called bool
	if err := p.Process(w, httptest.NewRequest("GET", "/", nil), nextOK(&called)); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Header()["Referrer-Policy"]; ok {
		t.Error("empty ReferrerPolicy should omit the header")
	}
	if got := w.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options: got %q", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); got != "default-src 'self'" {
		t.Errorf("Content-Security-Policy: got %q", got)
	}
}

func TestWithCORS_EmptyOriginsDisables(t *testing.T) {
	if p := NewAPISecurityHeadersProcessor(WithCORS(DefaultRPCCORS(nil))); p.CORS != nil {
		t.Error("CORS without origins should stay disabled")
	}
	if p := NewAPISecurityHeadersProcessor(WithCORS(nil)); p.CORS != nil {
		t.Error("nil CORS should stay disabled")
	}
}

func TestSecurityHeadersProcessor_CORS(t *testing.T) {
	tests := []struct {
		name        string
		cors        *CORSConfig
		method      string
		origin      string
		preflight   bool
		wantOrigin  string
		wantNext    bool
		wantStatus  int
		wantMethods string
	}{
		{
			name:       "allowed origin",
			cors:       DefaultRPCCORS([]string{"https://app.example"}),
			method:     http.MethodPost,
			origin:     "https://app.example",
			wantOrigin: "https://app.example",
			wantNext:   true,
		},
		{
			name:     "other origin",
			cors:     DefaultRPCCORS([]string{"https://app.example"}),
			method:   http.MethodPost,
			origin:   "https://evil.example",
			wantNext: true,
		},
		{
			name:       "wildcard",
			cors:       DefaultRPCCORS([]string{"*"}),
			method:     http.MethodPost,
			origin:     "https://any.example",
			wantOrigin: "*",
			wantNext:   true,
		},
		{
			name: "wildcard ignored with credentials",
			cors: &CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowCredentials: true,
			},
			method:   http.MethodPost,
			origin:   "https://any.example",
			wantNext: true,
		},
		{
			name:        "preflight",
			cors:        DefaultRPCCORS([]string{"https://app.example"}),
			method:      http.MethodOptions,
			origin:      "https://app.example",
			preflight:   true,
			wantOrigin:  "https://app.example",
			wantStatus:  http.StatusNoContent,
			wantMethods: "POST, OPTIONS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewAPISecurityHeadersProcessor(WithCORS(tt.cors))
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, "/json_rpc", nil)
			r.Header.Set("Origin", tt.origin)
			if tt.preflight {
				r.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}

			var called bool
			err := p.Process(w, r, nextOK(&called))
			if called != tt.wantNext {
				t.Errorf("next called: got %v, want %v", called, tt.wantNext)
			}
			if tt.wantStatus != 0 {
				var ee *endpoint.EndpointError
				if !errors.As(err, &ee) || ee.Status != tt.wantStatus {
					t.Fatalf("got err %v, want status %d", err, tt.wantStatus)
				}
			} else if err != nil {
				t.Fatalf("Process returned error: %v", err)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin: got %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Methods"); got != tt.wantMethods {
				t.Errorf("Access-Control-Allow-Methods: got %q, want %q", got, tt.wantMethods)
			}
			if !strings.Contains(w.Header().Get("Vary"), "Origin") {
				t.Error("Vary: Origin missing")
			}
		})
	}
}

func TestSecurityHeadersProcessor_PreflightThroughHandler(t *testing.T) {
	h := endpoint.Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		t.Fatal("endpoint must not run for a preflight")
		return nil, nil
	}, NewAPISecurityHeadersProcessor(WithCORS(DefaultRPCCORS([]string{"https://app.example"}))))

	r := httptest.NewRequest(http.MethodOptions, "/json_rpc", nil)
	r.Header.Set("Origin", "https://app.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "3600" {
		t.Errorf("Access-Control-Max-Age: got %q", got)
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied ids; longer ones are replaced.
const maxRequestIDLength = 128

type requestIDKey struct{}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by RequestLogProcessor.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// RequestLogProcessor assigns each request an id and logs one line per
// request once the rest of the chain has returned.
//
// A client-supplied X-Request-ID is kept when it is at most 128 bytes;
// otherwise a random UUID is used. The id is echoed in the response.
type RequestLogProcessor struct {
	log *slog.Logger
}

// NewRequestLogProcessor returns a processor logging to l (slog.Default() if nil).
func NewRequestLogProcessor(l *slog.Logger) *RequestLogProcessor {
	if l == nil {
		l = slog.Default()
	}
	return &RequestLogProcessor{log: l}
}

// statusRecorder remembers the status written by the renderer.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	if sr.status == 0 {
		sr.status = status
	}
	sr.ResponseWriter.WriteHeader(status)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Process implements endpoint.Processor.
func (p *RequestLogProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	id := r.Header.Get(RequestIDHeader)
	if id == "" || len(id) > maxRequestIDLength {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	ctx := WithRequestID(r.Context(), id)
	r = r.WithContext(ctx)
	if r.Header.Get(RequestIDHeader) != id {
		// Endpoints read the id from the header; the caller's map stays untouched.
		h := r.Header.Clone()
		if h == nil {
			h = http.Header{}
		}
		h.Set(RequestIDHeader, id)
		r.Header = h
	}

	rec := &statusRecorder{ResponseWriter: w}
	start := time.Now()
	err := next(rec, r)

	status := rec.status
	if err != nil {
		status = endpoint.StatusOf(err)
	} else if status == 0 {
		status = http.StatusOK
	}
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("request_id", id),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote", r.RemoteAddr),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	p.log.LogAttrs(ctx, level, "http request", attrs...)
	return err
}

var _ endpoint.Processor = (*RequestLogProcessor)(nil)

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

// RecoveryProcessor turns a panic further down the chain into a 500 and
// logs the stack. Place it first so it covers every other processor.
type RecoveryProcessor struct {
	log *slog.Logger
}

// NewRecoveryProcessor returns a processor logging to l (slog.Default() if nil).
func NewRecoveryProcessor(l *slog.Logger) *RecoveryProcessor {
	if l == nil {
		l = slog.Default()
	}
	return &RecoveryProcessor{log: l}
}

// Process implements endpoint.Processor.
func (p *RecoveryProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			p.log.ErrorContext(r.Context(), "panic recovered",
				slog.Any("panic", rec),
				slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			err = endpoint.Error(http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
		}
	}()
	return next(w, r)
}

var _ endpoint.Processor = (*RecoveryProcessor)(nil)

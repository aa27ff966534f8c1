package middleware

import (
	"net/http"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

// BodyLimitProcessor caps the request body at Max bytes. Reading past the
// cap fails, and endpoint.Unmarshal turns that into 413.
type BodyLimitProcessor struct {
	Max int64
}

// Process implements endpoint.Processor.
func (p BodyLimitProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	if p.Max > 0 && r.ContentLength > p.Max {
		return endpoint.Error(http.StatusRequestEntityTooLarge, "", nil)
	}
	if p.Max > 0 && r.Body != nil && r.Body != http.NoBody {
		r.Body = http.MaxBytesReader(w, r.Body, p.Max)
	}
	return next(w, r)
}

var _ endpoint.Processor = BodyLimitProcessor{}

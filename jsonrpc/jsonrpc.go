package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/mnehpets/rpcenvelope/endpoint"
)

// ContentType is the Content-Type of every JSON-RPC response.
const ContentType = "application/json; charset=utf-8"

// NotSupportedMessage is the error data sent for methods that are not known.
const NotSupportedMessage = "The method you called is not supported"

type handlerFunc func(ctx context.Context, m Method) (any, error)

// Endpoint dispatches decoded requests to typed handlers.
// Use endpoint.Handler(e.Endpoint, processors...) to serve it over HTTP.
type Endpoint struct {
	mu         sync.RWMutex
	handlers   map[string]handlerFunc
	log        *slog.Logger
	decodeOpts []DecodeOption
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *slog.Logger) EndpointOption {
	return func(e *Endpoint) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDecodeOptions passes opts to DecodeRequest for every request.
func WithDecodeOptions(opts ...DecodeOption) EndpointOption {
	return func(e *Endpoint) {
		e.decodeOpts = append(e.decodeOpts, opts...)
	}
}

// NewEndpoint creates an Endpoint with no handlers.
func NewEndpoint(opts ...EndpointOption) *Endpoint {
	e := &Endpoint{
		handlers: make(map[string]handlerFunc),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle registers fn for the method variant M, which must be one of the
// known value types (Hello, Ping). It panics on a second registration for
// the same method or when M is not a known variant.
//
// fn may return a string, a jx.Raw, or any value encoding/json can marshal.
// Returning an *Error sends that error; any other error becomes
// InternalError, except context cancellation (RequestCancelled) and
// deadline expiry (ServerCancelled).
func Handle[M Method](e *Endpoint, fn func(ctx context.Context, m M) (any, error)) {
	var zero M
	if _, ok := any(zero).(Unsupported); ok {
		panic("jsonrpc: cannot register a handler for Unsupported")
	}
	name := zero.MethodName()
	if !IsKnownMethod(name) {
		panic("jsonrpc: unknown method " + name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.handlers[name]; exists {
		panic("jsonrpc: method name collision: " + name)
	}
	e.handlers[name] = func(ctx context.Context, m Method) (any, error) {
		typed, ok := m.(M)
		if !ok {
			return nil, NewError(InternalError, StringData(fmt.Sprintf("handler for %s got %T", name, m)))
		}
		return fn(ctx, typed)
	}
}

// Methods returns the names that have a handler, sorted.
func (e *Endpoint) Methods() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rpcParams captures the raw body. Parsing is left to the codec because
// JSON-RPC answers malformed JSON with a ParseError response rather than an
// HTTP error. Size limits are enforced by a processor.
type rpcParams struct {
	Body      []byte `body:"" maxLength:"0"`
	RequestID string `header:"X-Request-ID" maxLength:"128"`
}

// Endpoint is the endpoint.EndpointFunc serving JSON-RPC over HTTP.
//
// Only POST with Content-Type application/json is accepted; everything that
// passes those checks is answered with status 200, JSON-RPC errors included.
// An X-Request-ID longer than 128 bytes is rejected with 400.
func (e *Endpoint) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}
	if mt := endpoint.MediaType(r); mt != "application/json" {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
	}

	log := e.log
	if params.RequestID != "" {
		log = log.With(slog.String("request_id", params.RequestID))
	}
	resp := e.serve(r.Context(), params.Body, log)
	return &endpoint.BytesRenderer{
		ContentType: ContentType,
		Body:        EncodeResponse(resp),
	}, nil
}

// Serve decodes body, dispatches it and returns the response. It never
// fails: decode errors and handler errors become error responses.
func (e *Endpoint) Serve(ctx context.Context, body []byte) Response {
	return e.serve(ctx, body, e.log)
}

func (e *Endpoint) serve(ctx context.Context, body []byte, log *slog.Logger) Response {
	req, err := DecodeRequest(body, e.decodeOpts...)
	if err != nil {
		code := CodeFor(err)
		var id ID
		if code != ParseError {
			id = peekID(body)
		}
		log.DebugContext(ctx, "jsonrpc: rejected request",
			slog.String("code", code.String()),
			slog.String("id", id.String()),
			slog.String("err", err.Error()),
		)
		return ErrorResponse(id, code, StringData(err.Error()))
	}

	res := e.call(ctx, req, log)
	attrs := []any{
		slog.String("method", req.Method.DisplayName()),
		slog.String("id", req.ID.String()),
	}
	if rpcErr := res.Err(); rpcErr != nil {
		attrs = append(attrs, slog.Int("code", int(rpcErr.Code)))
	}
	log.InfoContext(ctx, "jsonrpc: call", attrs...)
	return NewResponse(req.ID, res)
}

func (e *Endpoint) call(ctx context.Context, req Request, log *slog.Logger) (res Result) {
	if _, ok := req.Method.(Unsupported); ok {
		return Fail(NewError(MethodNotFound, StringData(NotSupportedMessage)))
	}
	name := req.Method.MethodName()

	e.mu.RLock()
	h, ok := e.handlers[name]
	e.mu.RUnlock()
	if !ok {
		return Fail(NewError(MethodNotFound, StringData("no handler for method "+name)))
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "jsonrpc: handler panic",
				slog.String("method", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			res = Fail(NewError(InternalError, nil))
		}
	}()

	v, err := h(ctx, req.Method)
	if err != nil {
		return resultFromError(err)
	}
	return resultFromValue(v)
}

func resultFromError(err error) Result {
	var rpcErr *Error
	switch {
	case errors.As(err, &rpcErr):
		return Fail(rpcErr)
	case errors.Is(err, context.Canceled):
		return Fail(NewError(RequestCancelled, nil))
	case errors.Is(err, context.DeadlineExceeded):
		return Fail(NewError(ServerCancelled, nil))
	default:
		return Fail(NewError(InternalError, StringData(err.Error())))
	}
}

func resultFromValue(v any) Result {
	switch v := v.(type) {
	case nil:
		return OkRaw(nil)
	case string:
		return Ok(v)
	case jx.Raw:
		return OkRaw(v)
	case json.RawMessage:
		return OkRaw(jx.Raw(v))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Fail(NewError(InternalError, StringData(err.Error())))
	}
	return OkRaw(b)
}

var errStopScan = errors.New("stop")

// peekID recovers the top-level "id" of a request that failed to decode, so
// the error response can still be correlated. It returns the zero ID when
// the id is absent or itself malformed.
func peekID(body []byte) ID {
	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return ID{}
	}
	var id ID
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		if err := id.Decode(d); err != nil {
			id = ID{}
		}
		return errStopScan
	})
	return id
}

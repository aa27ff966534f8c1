// Package server wires the JSON-RPC endpoint, its processors and the
// auxiliary pages into an http.Server.
package server

import (
	"context"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/mnehpets/rpcenvelope/config"
	"github.com/mnehpets/rpcenvelope/endpoint"
	"github.com/mnehpets/rpcenvelope/jsonrpc"
	"github.com/mnehpets/rpcenvelope/middleware"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>rpcserver</title></head>
<body>
<p>Hey, go to {{.Path}} to submit data</p>
<ul>{{range .Methods}}
<li>{{.}}</li>{{end}}
</ul>
</body>
</html>
`))

// Server is an HTTP server for one JSON-RPC endpoint.
type Server struct {
	cfg *config.Config
	log *slog.Logger
	rpc *jsonrpc.Endpoint
	mux *http.ServeMux
}

// New builds a Server with the default method handlers registered.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	var decodeOpts []jsonrpc.DecodeOption
	if cfg.RPC.StrictVersion {
		decodeOpts = append(decodeOpts, jsonrpc.WithStrictVersion())
	}
	s := &Server{
		cfg: cfg,
		log: logger,
		rpc: jsonrpc.NewEndpoint(
			jsonrpc.WithLogger(logger),
			jsonrpc.WithDecodeOptions(decodeOpts...),
		),
		mux: http.NewServeMux(),
	}
	RegisterDefaults(s.rpc)
	s.routes()
	return s
}

// RPC returns the endpoint so callers can inspect its methods.
func (s *Server) RPC() *jsonrpc.Endpoint {
	return s.rpc
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	recovery := middleware.NewRecoveryProcessor(s.log)
	requestLog := middleware.NewRequestLogProcessor(s.log)

	rpcChain := []endpoint.Processor{
		recovery,
		requestLog,
		middleware.NewAPISecurityHeadersProcessor(
			middleware.WithCORS(middleware.DefaultRPCCORS(s.cfg.CORS.AllowedOrigins)),
		),
	}
	if s.cfg.RPC.RateLimit > 0 {
		rpcChain = append(rpcChain, middleware.NewRateLimitProcessor(s.cfg.RPC.RateLimit, s.cfg.RPC.RateBurst))
	}
	rpcChain = append(rpcChain, middleware.BodyLimitProcessor{Max: s.cfg.RPC.MaxBodyBytes})

	// No method in the pattern: the endpoint answers non-POST itself and
	// CORS preflights must reach the processors.
	s.mux.Handle(s.cfg.RPC.Path, endpoint.Handler(s.rpc.Endpoint, rpcChain...))
	s.mux.Handle("GET /{$}", endpoint.Handler(s.index, recovery, requestLog))
	s.mux.Handle("GET /healthz", endpoint.Handler(healthz, recovery))
	s.mux.Handle("GET /favicon.ico", endpoint.Handler(noFavicon))
}

type noParams struct{}

func (s *Server) index(w http.ResponseWriter, r *http.Request, _ noParams) (endpoint.Renderer, error) {
	return &endpoint.HTMLTemplateRenderer{
		Template: indexTemplate,
		Values: struct {
			Path    string
			Methods []string
		}{s.cfg.RPC.Path, s.rpc.Methods()},
	}, nil
}

func healthz(w http.ResponseWriter, r *http.Request, _ noParams) (endpoint.Renderer, error) {
	return &endpoint.JSONRenderer{Value: map[string]string{"status": "ok"}}, nil
}

func noFavicon(w http.ResponseWriter, r *http.Request, _ noParams) (endpoint.Renderer, error) {
	return &endpoint.NoContentRenderer{}, nil
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.HTTP.Address,
		Handler:      s.mux,
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Address)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.cfg.HTTP.Address)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := s.httpServer()
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("address", ln.Addr().String()), slog.String("rpc_path", s.cfg.RPC.Path))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.log.Info("shutting down", slog.Duration("timeout", timeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}

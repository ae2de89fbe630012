package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer owns the API listener lifecycle so main only deals with start
// and graceful stop. Body timeouts come from configuration; the read-header
// timeout stays fixed because only sketch upload bodies are ever large.
type HTTPServer struct {
	server *http.Server
}

func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{server: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Start blocks on the listener. After a graceful Shutdown it returns
// http.ErrServerClosed, which callers treat as a clean exit.
func (s *HTTPServer) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting new requests and drains in-flight ones until ctx
// expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

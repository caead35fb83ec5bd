// Package server hosts the HTTP transports: one engine per resolved
// listener, a shared middleware chain, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arcadia-hq/resthost/pkg/apierrors"
	"arcadia-hq/resthost/pkg/listener"
	"arcadia-hq/resthost/pkg/ratelimit"
	"arcadia-hq/resthost/pkg/telemetry/outcome"
	"arcadia-hq/resthost/pkg/tlsmat"
)

// Options assembles the server from its collaborators. Handler and at
// least one listener spec are required; everything else is optional.
type Options struct {
	// Specs are the resolved listeners to bind, in order.
	Specs []listener.Spec

	// Handler is the application handler served on every listener.
	Handler http.Handler

	// TLS supplies the rotating TLS material shared by all https
	// listeners. Required when any spec terminates TLS.
	TLS *tlsmat.Rotating

	// Limiter applies request rate limiting. Nil disables limiting.
	Limiter *ratelimit.Limiter

	// Recorder observes committed response statuses. Nil disables
	// observation.
	Recorder *outcome.Recorder

	// Translator renders errors produced inside the middleware chain.
	// Nil selects a non-debug translator.
	Translator *apierrors.Translator

	// Logger receives server lifecycle and request logs. Nil selects
	// slog.Default.
	Logger *slog.Logger

	// MetricsAddr is the host:port for the Prometheus scrape endpoint.
	// Empty disables it.
	MetricsAddr string

	// Gatherer backs the scrape endpoint. Nil selects the default
	// gatherer.
	Gatherer prometheus.Gatherer

	// HTTP engine timeouts.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server runs one HTTP engine per resolved listener. All engines share
// the application handler and shut down together.
type Server struct {
	opts    Options
	logger  *slog.Logger
	engines []*engine
	metrics *http.Server

	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
	addrs        []string
}

// engine pairs a listener spec with its HTTP server.
type engine struct {
	spec listener.Spec
	srv  *http.Server
}

// New creates a server for the given listeners.
func New(opts Options) (*Server, error) {
	if len(opts.Specs) == 0 {
		return nil, fmt.Errorf("no listeners configured")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("no handler configured")
	}
	for _, spec := range opts.Specs {
		if spec.TLS() && opts.TLS == nil {
			return nil, fmt.Errorf("listener %s requires TLS material but none is configured", spec.Addr())
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{opts: opts, logger: logger}

	translator := opts.Translator
	if translator == nil {
		translator = &apierrors.Translator{}
	}

	for _, spec := range opts.Specs {
		srv := &http.Server{
			Addr:         spec.Addr(),
			Handler:      s.buildChain(spec, translator),
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		}
		if spec.TLS() {
			srv.TLSConfig = opts.TLS.ServerTLSConfig()
		}
		s.engines = append(s.engines, &engine{spec: spec, srv: srv})
	}

	if opts.MetricsAddr != "" {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		s.metrics = &http.Server{Addr: opts.MetricsAddr, Handler: mux}
	}

	return s, nil
}

// buildChain wraps the application handler in the per-listener
// middleware chain, innermost first.
func (s *Server) buildChain(spec listener.Spec, translator *apierrors.Translator) http.Handler {
	handler := s.opts.Handler

	if s.opts.Limiter != nil {
		handler = RateLimitMiddleware(s.opts.Limiter, spec.Name, translator)(handler)
	}
	if spec.TLS() {
		handler = SNICheckMiddleware(s.opts.TLS.Current, translator)(handler)
	}
	if s.opts.Recorder != nil {
		tags := map[string]string{}
		if spec.Name != "" {
			tags["listener"] = spec.Name
		}
		handler = OutcomeMiddleware(s.opts.Recorder, tags)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(s.logger, translator)(handler)

	return handler
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.isRunning = v
	s.mu.Unlock()
}

// Addrs returns the bound listener addresses, in spec order. Empty
// until Start has bound them.
func (s *Server) Addrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.addrs))
	copy(out, s.addrs)
	return out
}

// Start binds every listener and blocks until ctx is cancelled, a
// shutdown signal arrives, or an engine fails. All binds happen before
// any engine serves, so a bad address fails fast.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	listeners := make([]net.Listener, 0, len(s.engines))
	for _, eng := range s.engines {
		ln, err := net.Listen("tcp", eng.spec.Addr())
		if err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			s.setRunning(false)
			return fmt.Errorf("failed to bind %s: %w", eng.spec.Addr(), err)
		}
		listeners = append(listeners, ln)
	}

	s.mu.Lock()
	s.addrs = s.addrs[:0]
	for _, ln := range listeners {
		s.addrs = append(s.addrs, ln.Addr().String())
	}
	s.mu.Unlock()

	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Start(); err != nil {
			for _, open := range listeners {
				_ = open.Close()
			}
			s.setRunning(false)
			return fmt.Errorf("failed to start rate limiter: %w", err)
		}
		defer s.opts.Limiter.Stop()
	}

	errChan := make(chan error, len(s.engines)+1)
	for i, eng := range s.engines {
		ln := listeners[i]
		go func(eng *engine, ln net.Listener) {
			s.logger.Info("listener started",
				"name", eng.spec.Name,
				"address", ln.Addr().String(),
				"tls", eng.spec.TLS(),
			)

			var err error
			if eng.spec.TLS() {
				err = eng.srv.ServeTLS(ln, "", "")
			} else {
				err = eng.srv.Serve(ln)
			}
			if err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("listener %s: %w", eng.spec.Addr(), err)
			}
		}(eng, ln)
	}

	if s.metrics != nil {
		go func() {
			s.logger.Info("metrics endpoint started", "address", s.metrics.Addr)
			if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics endpoint: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown gracefully stops all engines. In-flight requests get the
// shutdown timeout to finish; stragglers are then forcibly closed.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.opts.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, eng := range s.engines {
			wg.Add(1)
			go func(eng *engine) {
				defer wg.Done()
				if err := eng.srv.Shutdown(shutdownCtx); err != nil {
					_ = eng.srv.Close()
					mu.Lock()
					shutdownErr = fmt.Errorf("listener %s shutdown: %w", eng.spec.Addr(), err)
					mu.Unlock()
				}
			}(eng)
		}
		if s.metrics != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.metrics.Shutdown(shutdownCtx)
			}()
		}
		wg.Wait()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

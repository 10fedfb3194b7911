package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/evtrip/config"
	"github.com/kilianp07/evtrip/infra/logger"
)

const shutdownTimeout = 5 * time.Second

// Server serves the SOAP service at /, the JSON endpoint at /api/trip and a
// liveness probe at /ping.
type Server struct {
	mu      sync.RWMutex
	addr    string
	origins []string
	soap    http.Handler
	trip    http.Handler
	log     logger.Logger
	srv     *http.Server
}

// NewServer creates a server. soap and trip may be nil to leave the route
// unmounted.
func NewServer(cfg config.ServerConfig, soap, trip http.Handler) *Server {
	return &Server{
		addr:    cfg.Address,
		origins: cfg.CORSOrigins,
		soap:    soap,
		trip:    trip,
		log:     logger.New("api-server"),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("pong")); err != nil {
			s.log.Errorf("write pong: %v", err)
		}
	})
	if s.trip != nil {
		mux.Handle("/api/trip", s.trip)
	}
	if s.soap != nil {
		mux.Handle("/", s.soap)
	}
	return Recover(s.log, CORS(s.origins, mux))
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.srv = srv
	s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
	}()
	s.log.Infof("trip service listening on %s", ln.Addr())
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

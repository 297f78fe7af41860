package metric

import (
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/latticectl/errors"
)

// Server exposes the registry over HTTP together with any extra routes mounted by the caller.
type Server struct {
	addr     string
	path     string
	server   *http.Server
	listener net.Listener
	registry *MetricsRegistry
	routes   map[string]http.Handler
	mu       sync.Mutex // protects server, listener and routes
}

// NewServer creates a new metrics server with the provided registry
func NewServer(addr, path string, registry *MetricsRegistry) *Server {
	if path == "" {
		path = "/metrics"
	}
	if addr == "" {
		addr = ":9090"
	}

	return &Server{
		addr:     addr,
		path:     path,
		registry: registry,
		routes:   make(map[string]http.Handler),
	}
}

// Handle mounts an extra handler. Must be called before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[pattern] = h
}

// Handler builds the mux served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}

	if _, taken := s.routes["/"]; !taken {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprintf(w, `<html>
<head><title>latticectl</title></head>
<body>
<h1>latticectl</h1>
<p><a href="%s">Metrics</a></p>
<p><a href="/health">Health</a></p>
</body>
</html>`, s.path)
		})
	}

	return mux
}

// Start binds the listener and serves until Stop. It blocks.
func (s *Server) Start() error {
	s.mu.Lock()

	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "cannot start server that is already running")
	}

	if s.registry == nil {
		s.mu.Unlock()
		return errors.WrapFatal(
			fmt.Errorf("nil registry"),
			"Server", "Start", "metrics registry not provided")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to listen on %s", s.addr))
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to serve on %s", s.addr))
	}
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		err := s.server.Close()
		s.server = nil // reset server field to allow restart
		s.listener = nil
		if err != nil {
			return errors.WrapTransient(err, "Server", "Stop",
				"failed to stop HTTP server")
		}
	}
	return nil
}

// Address returns the metrics URL. Once started it reflects the bound port.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	host := s.addr
	if s.listener != nil {
		host = s.listener.Addr().String()
	}
	if h, port, err := net.SplitHostPort(host); err == nil && (h == "" || h == "::" || h == "0.0.0.0") {
		host = net.JoinHostPort("localhost", port)
	}
	return fmt.Sprintf("http://%s%s", host, s.path)
}

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/gorilla/websocket"

	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/events"
	"github.com/c360/latticectl/metric"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Relay forwards lattice events to websocket clients. It is an http.Handler;
// mount it on any mux and feed it with Run.
type Relay struct {
	upgrader     websocket.Upgrader
	clients      map[*websocket.Conn]*client
	clientsMu    sync.RWMutex
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *slog.Logger
	registry     metric.MetricsRegistrar
	metrics      *relayMetrics
	wg           sync.WaitGroup
	shutdown     chan struct{}
	closed       atomic.Bool
}

type client struct {
	conn        *websocket.Conn
	categories  map[string]bool // empty means every category
	connectedAt time.Time
	done        chan struct{}
	writeMu     sync.Mutex
	closeOnce   sync.Once
	closed      atomic.Bool
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics registers the relay's client and delivery metrics in registry.
// They are unregistered again by Close.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(r *Relay) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// WithWriteTimeout bounds each write to a client. Slower clients are dropped.
func WithWriteTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithPingInterval sets how often idle clients are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.pingInterval = d
		}
	}
}

// New creates a relay with no clients.
func New(opts ...Option) *Relay {
	r := &Relay{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients:      make(map[*websocket.Conn]*client),
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		logger:       slog.Default(),
		shutdown:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "relay")

	if r.registry != nil {
		m, err := newRelayMetrics(r.registry)
		if err != nil {
			r.logger.Warn("relay metrics disabled", "error", err)
		} else {
			r.metrics = m
		}
	}
	return r
}

// ServeHTTP upgrades the request and registers the client. Repeated
// ?category= parameters restrict the client to those event categories.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.closed.Load() {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("websocket upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	c := &client{
		conn:        conn,
		categories:  make(map[string]bool),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
	for _, cat := range req.URL.Query()["category"] {
		if cat != "" {
			c.categories[cat] = true
		}
	}

	// closed only changes under clientsMu; see Close.
	r.clientsMu.Lock()
	if r.closed.Load() {
		r.clientsMu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(r.writeTimeout))
		_ = conn.Close()
		return
	}
	r.clients[conn] = c
	count := len(r.clients)
	r.wg.Add(2)
	r.clientsMu.Unlock()

	r.metrics.setClients(count)
	r.logger.Debug("relay client connected", "remote", req.RemoteAddr, "clients", count)

	go r.readLoop(c)
	go r.pingLoop(c)
}

// Clients returns the number of connected clients.
func (r *Relay) Clients() int {
	r.clientsMu.RLock()
	defer r.clientsMu.RUnlock()
	return len(r.clients)
}

// Run broadcasts every event from in until ctx is done or in is closed.
func (r *Relay) Run(ctx context.Context, in <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.shutdown:
			return nil
		case e, ok := <-in:
			if !ok {
				return nil
			}
			if err := r.Broadcast(e); err != nil {
				r.logger.Warn("failed to relay event", "id", e.ID(), "error", err)
			}
		}
	}
}

// Broadcast writes e, in structured CloudEvents JSON, to every client
// interested in its category. Clients whose write fails are disconnected.
func (r *Relay) Broadcast(e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidData, err), "Relay", "Broadcast", "encode event")
	}
	category := events.Category(e)

	var wg sync.WaitGroup
	for _, c := range r.snapshot() {
		if len(c.categories) > 0 && !c.categories[category] {
			continue
		}
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := r.write(c, websocket.TextMessage, data); err != nil {
				r.logger.Debug("dropping relay client", "remote", c.conn.RemoteAddr().String(), "error", err)
				r.metrics.recordDropped()
				r.remove(c)
				return
			}
			r.metrics.recordDelivered()
		}(c)
	}
	wg.Wait()
	return nil
}

// Close disconnects every client and waits for their goroutines.
func (r *Relay) Close() error {
	r.clientsMu.Lock()
	if r.closed.Load() {
		r.clientsMu.Unlock()
		return nil
	}
	r.closed.Store(true)
	clients := r.snapshotLocked()
	r.clientsMu.Unlock()

	close(r.shutdown)

	for _, c := range clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down")
		_ = r.write(c, websocket.CloseMessage, msg)
		r.remove(c)
	}
	r.wg.Wait()

	r.metrics.setClients(0)
	if r.registry != nil {
		r.metrics.unregister(r.registry)
	}
	return nil
}

func (r *Relay) snapshot() []*client {
	r.clientsMu.RLock()
	defer r.clientsMu.RUnlock()
	return r.snapshotLocked()
}

func (r *Relay) snapshotLocked() []*client {
	out := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

func (r *Relay) write(c *client, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// readLoop discards client frames; it exists to process control frames and
// notice disconnects.
func (r *Relay) readLoop(c *client) {
	defer r.wg.Done()
	defer r.remove(c)

	deadline := 2 * r.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Relay) pingLoop(c *client) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.shutdown:
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := r.write(c, websocket.PingMessage, nil); err != nil {
				r.remove(c)
				return
			}
		}
	}
}

func (r *Relay) remove(c *client) {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closed.Store(true)
		c.writeMu.Unlock()
		close(c.done)

		r.clientsMu.Lock()
		delete(r.clients, c.conn)
		count := len(r.clients)
		r.clientsMu.Unlock()

		r.metrics.setClients(count)
		r.logger.Debug("relay client disconnected",
			"connected_for", time.Since(c.connectedAt).Round(time.Millisecond), "clients", count)
		_ = c.conn.Close()
	})
}

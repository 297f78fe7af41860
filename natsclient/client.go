package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/multierr"

	"github.com/c360/latticectl/errors"
	"github.com/c360/latticectl/telemetry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error values returned before anything reaches the wire.
var (
	ErrNotConnected      = errors.ErrNoConnection
	ErrCircuitOpen       = errors.ErrCircuitOpen
	ErrConnectionTimeout = errors.ErrConnectionTimeout
)

// Status holds runtime status information for the NATS client
type Status struct {
	Status          ConnectionStatus
	FailureCount    int32
	LastFailureTime time.Time
	Reconnects      int32
	RTT             time.Duration
}

// Client manages a NATS connection with a circuit breaker around it.
type Client struct {
	url        string
	status     atomic.Value // stores ConnectionStatus
	failures   atomic.Int32
	reconnects atomic.Int32
	logger     Logger

	conn *nats.Conn
	subs []*nats.Subscription

	// Circuit breaker
	lastFailure      atomic.Value // stores time.Time
	backoff          atomic.Value // stores time.Duration
	circuitFailures  atomic.Int32 // failures in current circuit round
	circuitThreshold int32        // failures before opening circuit
	maxBackoff       time.Duration

	// Connection options
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	// Authentication - sensitive fields cleared on close
	username string
	password string
	token    string

	// TLS
	tlsEnabled  bool
	tlsCertFile string
	tlsKeyFile  string
	tlsCAFile   string

	clientName  string
	compression bool

	metrics         *connMetrics
	metricsCancel   context.CancelFunc
	metricsInterval time.Duration

	// Callbacks
	onDisconnect     func(error)
	onReconnect      func()
	onHealthChange   func(bool)
	onConnectionLost func(error)

	// Health monitoring
	healthTicker   *time.Ticker
	healthInterval time.Duration
	healthDone     chan struct{}

	mu      sync.RWMutex
	closeMu sync.Mutex  // Ensures Close() runs once
	closed  atomic.Bool // Track if client is closed
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:              url,
		logger:           NewSlogLogger(nil),
		maxReconnects:    -1, // infinite by default
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		healthInterval:   10 * time.Second,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
		timeout:          5 * time.Second,
		drainTimeout:     30 * time.Second,
		metricsInterval:  15 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	c.backoff.Store(time.Second)
	c.lastFailure.Store(time.Time{})

	c.logger.Debugf("Created NATS client for %s", url)

	return c, nil
}

// URL returns the NATS server URL
func (m *Client) URL() string {
	return m.url
}

// Status returns the current connection status
func (m *Client) Status() ConnectionStatus {
	val := m.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// GetConnection returns the current NATS connection
func (m *Client) GetConnection() *nats.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// SetConnection sets the NATS connection (for testing)
func (m *Client) SetConnection(conn *nats.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
	if conn != nil && conn.IsConnected() {
		m.setStatus(StatusConnected)
	}
}

func (m *Client) setStatus(status ConnectionStatus) {
	m.status.Store(status)
	m.metrics.recordStatus(status)
}

// IsHealthy returns true if the connection is healthy
func (m *Client) IsHealthy() bool {
	return m.Status() == StatusConnected
}

// Failures returns the current failure count
func (m *Client) Failures() int32 {
	return m.failures.Load()
}

// Backoff returns the current backoff duration
func (m *Client) Backoff() time.Duration {
	return m.backoff.Load().(time.Duration)
}

// recordFailure records a connection failure and manages circuit breaker
func (m *Client) recordFailure() {
	totalFailures := m.failures.Add(1)
	m.lastFailure.Store(time.Now())

	circuitFailures := m.circuitFailures.Add(1)

	m.logger.Debugf("Recorded failure %d (circuit failures: %d)", totalFailures, circuitFailures)

	if circuitFailures < m.circuitThreshold {
		return
	}

	currentStatus := m.Status()
	currentBackoff := m.backoff.Load().(time.Duration)
	newBackoff := currentBackoff * 2
	if newBackoff > m.maxBackoff {
		newBackoff = m.maxBackoff
	}

	if currentStatus != StatusCircuitOpen {
		// Only one goroutine wins the transition
		if m.status.CompareAndSwap(currentStatus, StatusCircuitOpen) {
			m.metrics.recordStatus(StatusCircuitOpen)
			m.backoff.Store(newBackoff)

			m.logger.Printf(
				"Circuit breaker opened after %d failures, backing off for %v",
				circuitFailures,
				currentBackoff,
			)

			m.circuitFailures.Store(0)
			time.AfterFunc(currentBackoff, m.testCircuit)
		}
		return
	}

	m.backoff.Store(newBackoff)
	m.logger.Printf("Circuit breaker still open, increased backoff to %v", newBackoff)
	m.circuitFailures.Store(0)
}

// resetCircuit resets the circuit breaker state
func (m *Client) resetCircuit() {
	m.failures.Store(0)
	m.circuitFailures.Store(0)
	m.backoff.Store(time.Second)
	m.lastFailure.Store(time.Time{})

	if m.Status() == StatusCircuitOpen {
		m.setStatus(StatusDisconnected)
	}
}

// testCircuit half-opens the breaker once the backoff has elapsed.
func (m *Client) testCircuit() {
	if m.Status() != StatusCircuitOpen {
		return
	}

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn != nil && conn.IsConnected() {
		m.logger.Debugf("Circuit breaker test: connection is up, closing circuit")
		m.setStatus(StatusConnected)
		return
	}

	m.logger.Debugf("Circuit breaker test: moving from open to disconnected")
	m.setStatus(StatusDisconnected)
}

// WaitForConnection waits for the connection to be established
func (m *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrConnectionTimeout, ctx.Err())
		case <-ticker.C:
			if m.IsHealthy() {
				return nil
			}
		}
	}
}

// MaxReconnects returns the maximum number of reconnection attempts
func (m *Client) MaxReconnects() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxReconnects
}

// ReconnectWait returns the wait duration between reconnection attempts
func (m *Client) ReconnectWait() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reconnectWait
}

// PingInterval returns the interval for health checks
func (m *Client) PingInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingInterval
}

// ConnectionOptions returns the NATS connection options
func (m *Client) ConnectionOptions() []nats.Option {
	return m.buildConnectionOptions()
}

func (m *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(m.maxReconnects),
		nats.ReconnectWait(m.reconnectWait),
		nats.PingInterval(m.pingInterval),
		nats.Timeout(m.timeout),
		nats.DrainTimeout(m.drainTimeout),
		nats.DisconnectErrHandler(m.handleDisconnect),
		nats.ReconnectHandler(m.handleReconnect),
		nats.ClosedHandler(m.handleClosed),
		nats.ErrorHandler(m.handleError),
	}

	if m.username != "" && m.password != "" {
		opts = append(opts, nats.UserInfo(m.username, m.password))
	}
	if m.token != "" {
		opts = append(opts, nats.Token(m.token))
	}

	if m.tlsEnabled {
		if m.tlsCertFile != "" && m.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(m.tlsCertFile, m.tlsKeyFile))
		}
		if m.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(m.tlsCAFile))
		}
	}

	if m.clientName != "" {
		opts = append(opts, nats.Name(m.clientName))
	}

	if m.compression {
		opts = append(opts, nats.Compression(true))
	}

	return opts
}

// GetStatus returns current status information
func (m *Client) GetStatus() *Status {
	lastFailure := m.lastFailure.Load().(time.Time)

	status := &Status{
		Status:          m.Status(),
		FailureCount:    m.failures.Load(),
		LastFailureTime: lastFailure,
		Reconnects:      m.reconnects.Load(),
	}

	if conn := m.GetConnection(); conn != nil && conn.IsConnected() {
		if rtt, err := conn.RTT(); err == nil {
			status.RTT = rtt
		}
	}

	return status
}

// Connect establishes connection to NATS server
func (m *Client) Connect(ctx context.Context) error {
	if m.Status() == StatusCircuitOpen {
		m.logger.Debugf("Circuit breaker is open, skipping connection attempt")
		return ErrCircuitOpen
	}

	m.setStatus(StatusConnecting)
	m.logger.Printf("Connecting to NATS at %s", m.url)

	opts := m.buildConnectionOptions()

	// nats.Connect does not take a context, so race it against ctx
	connectDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(m.url, opts...)
		if err != nil {
			connectDone <- err
			return
		}

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		connectDone <- nil
	}()

	select {
	case err := <-connectDone:
		if err != nil {
			m.recordFailure()
			if m.Status() == StatusCircuitOpen {
				return ErrCircuitOpen
			}
			m.setStatus(StatusDisconnected)
			return errors.WrapTransient(errors.Transport(err), "Client", "Connect", "establish connection")
		}
	case <-ctx.Done():
		m.recordFailure()
		if m.Status() != StatusCircuitOpen {
			m.setStatus(StatusDisconnected)
		}
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	m.setStatus(StatusConnected)
	m.resetCircuit()

	m.logger.Printf("Connected to NATS at %s", m.url)

	if m.healthInterval > 0 {
		m.startHealthMonitoring()
	}

	if m.metrics != nil && m.metricsInterval > 0 {
		m.metricsCancel = m.metrics.startPoller(context.Background(), m.metricsInterval, m.RTT)
	}

	if m.onHealthChange != nil {
		m.onHealthChange(true)
	}

	return nil
}

// Close drains the connection, bounded by ctx and the drain timeout, and clears credentials.
func (m *Client) Close(ctx context.Context) error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed.Load() {
		return nil
	}
	m.closed.Store(true)

	m.stopHealthMonitoring()

	if m.metricsCancel != nil {
		m.metricsCancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs error

	for _, sub := range m.subs {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = multierr.Append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe"))
		}
	}
	m.subs = nil

	if m.conn != nil {
		drainTimeout := m.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		conn := m.conn
		go func() {
			drainDone <- conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				errs = multierr.Append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
			}
		case <-time.After(drainTimeout):
			errs = multierr.Append(errs, errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"Client", "Close", "drain"))
		case <-ctx.Done():
			errs = multierr.Append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "drain"))
		}

		conn.Close()
		m.conn = nil
	}

	m.username = ""
	m.password = ""
	m.token = ""

	m.setStatus(StatusDisconnected)

	if errs != nil {
		m.logger.Errorf("Close finished with errors: %v", errs)
	}
	return errs
}

// RTT returns the current round-trip time to the server.
func (m *Client) RTT() (time.Duration, error) {
	conn := m.GetConnection()
	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}
	return conn.RTT()
}

// ready returns the live connection or the reason there is none.
func (m *Client) ready() (*nats.Conn, error) {
	if m.Status() == StatusCircuitOpen {
		return nil, ErrCircuitOpen
	}
	conn := m.GetConnection()
	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// observe feeds a wire result into the circuit breaker. Timeouts and missing
// responders say nothing about the connection itself.
func (m *Client) observe(err error) {
	switch {
	case err == nil:
		if m.failures.Load() > 0 {
			m.resetCircuit()
		}
	case stderrors.Is(err, nats.ErrTimeout),
		stderrors.Is(err, nats.ErrNoResponders),
		stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, context.Canceled):
	default:
		m.recordFailure()
	}
}

// NewInbox returns a fresh reply subject, honouring the connection's inbox prefix.
func (m *Client) NewInbox() string {
	if conn := m.GetConnection(); conn != nil {
		return conn.NewInbox()
	}
	return nats.NewInbox()
}

// RequestMsg sends msg and waits for a single reply until ctx is done.
// Trace context from ctx is injected into the message headers.
func (m *Client) RequestMsg(ctx context.Context, msg *nats.Msg) (*nats.Msg, error) {
	conn, err := m.ready()
	if err != nil {
		return nil, err
	}

	msg.Header = telemetry.InjectHeaders(ctx, msg.Header)

	resp, err := conn.RequestMsgWithContext(ctx, msg)
	m.observe(err)
	return resp, err
}

// PublishMsg publishes msg, including its reply subject and headers.
func (m *Client) PublishMsg(ctx context.Context, msg *nats.Msg) error {
	conn, err := m.ready()
	if err != nil {
		return err
	}

	msg.Header = telemetry.InjectHeaders(ctx, msg.Header)

	err = conn.PublishMsg(msg)
	m.observe(err)
	return err
}

// Publish publishes raw data to subject.
func (m *Client) Publish(ctx context.Context, subject string, data []byte) error {
	return m.PublishMsg(ctx, &nats.Msg{Subject: subject, Data: data})
}

// SubscribeSync opens a synchronous subscription. The caller owns it and must Unsubscribe.
func (m *Client) SubscribeSync(_ context.Context, subject string) (*nats.Subscription, error) {
	conn, err := m.ready()
	if err != nil {
		return nil, err
	}

	sub, err := conn.SubscribeSync(subject)
	m.observe(err)
	return sub, err
}

// Flush round-trips to the server so earlier publishes and subscriptions are registered.
// Without a deadline on ctx the client timeout applies.
func (m *Client) Flush(ctx context.Context) error {
	conn, err := m.ready()
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	err = conn.FlushWithContext(ctx)
	m.observe(err)
	return err
}

// Subscribe registers an async handler owned by the client and removed on Close.
// The handler context carries any trace context found in the message headers.
func (m *Client) Subscribe(ctx context.Context, subject string, handler func(context.Context, *nats.Msg)) error {
	conn, err := m.ready()
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		handler(telemetry.ExtractContext(msgCtx, msg.Header), msg)
	})
	if err != nil {
		m.observe(err)
		return err
	}

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return nil
}

// OnHealthChange sets the health change callback
func (m *Client) OnHealthChange(fn func(bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHealthChange = fn
}

// WithHealthCheck sets the health check interval
func (m *Client) WithHealthCheck(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthInterval = interval
}

func (m *Client) handleDisconnect(_ *nats.Conn, err error) {
	m.setStatus(StatusReconnecting)
	if err != nil {
		m.logger.Printf("Disconnected from NATS: %v", err)
	}

	m.mu.RLock()
	onDisconnect := m.onDisconnect
	onHealthChange := m.onHealthChange
	m.mu.RUnlock()

	if onDisconnect != nil {
		go onDisconnect(err)
	}
	if onHealthChange != nil {
		go onHealthChange(false)
	}
}

func (m *Client) handleReconnect(_ *nats.Conn) {
	m.reconnects.Add(1)
	m.metrics.recordReconnect()
	m.setStatus(StatusConnected)
	m.resetCircuit()
	m.logger.Printf("Reconnected to NATS at %s", m.url)

	m.mu.RLock()
	onReconnect := m.onReconnect
	onHealthChange := m.onHealthChange
	m.mu.RUnlock()

	if onReconnect != nil {
		go onReconnect()
	}
	if onHealthChange != nil {
		go onHealthChange(true)
	}
}

func (m *Client) handleClosed(conn *nats.Conn) {
	m.setStatus(StatusDisconnected)

	m.mu.RLock()
	onHealthChange := m.onHealthChange
	onConnectionLost := m.onConnectionLost
	m.mu.RUnlock()

	if onConnectionLost != nil && !m.closed.Load() {
		go onConnectionLost(conn.LastError())
	}
	if onHealthChange != nil {
		go onHealthChange(false)
	}
}

func (m *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	if sub != nil {
		m.logger.Errorf("NATS error on %s: %v", sub.Subject, err)
		return
	}
	m.logger.Errorf("NATS error: %v", err)
}

func (m *Client) startHealthMonitoring() {
	m.stopHealthMonitoring()

	m.mu.Lock()
	m.healthTicker = time.NewTicker(m.healthInterval)
	m.healthDone = make(chan struct{})
	ticker := m.healthTicker
	done := m.healthDone
	m.mu.Unlock()

	go func() {
		defer ticker.Stop()
		lastHealthy := m.IsHealthy()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn := m.GetConnection()
				if conn == nil {
					continue
				}

				healthy := conn.IsConnected()
				if _, err := conn.RTT(); err != nil {
					healthy = false
				}

				if healthy && m.Status() != StatusConnected && m.Status() != StatusCircuitOpen {
					m.setStatus(StatusConnected)
				} else if !healthy && m.Status() == StatusConnected {
					m.setStatus(StatusReconnecting)
				}

				m.mu.RLock()
				onHealthChange := m.onHealthChange
				m.mu.RUnlock()
				if healthy != lastHealthy && onHealthChange != nil {
					onHealthChange(healthy)
				}

				lastHealthy = healthy
			}
		}
	}()
}

func (m *Client) stopHealthMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.healthTicker != nil {
		m.healthTicker.Stop()
		m.healthTicker = nil
	}
	if m.healthDone != nil {
		close(m.healthDone)
		m.healthDone = nil
	}
}

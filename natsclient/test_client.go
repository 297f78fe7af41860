package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	gonats "github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient is a connected Client backed by a throwaway NATS server,
// either a testcontainers container or an in-process nats-server.
type TestClient struct {
	container testcontainers.Container
	server    *server.Server
	Client    *Client
	URL       string
	cleanup   func()
}

type testConfig struct {
	natsVersion  string
	timeout      time.Duration
	startTimeout time.Duration
	clientOpts   []ClientOption
}

// TestOption for configuring test client
type TestOption func(*testConfig)

// WithNATSVersion specifies a specific NATS server image tag
func WithNATSVersion(version string) TestOption {
	return func(cfg *testConfig) {
		cfg.natsVersion = version
	}
}

// WithTestTimeout sets the connection timeout for test client
func WithTestTimeout(timeout time.Duration) TestOption {
	return func(cfg *testConfig) {
		cfg.timeout = timeout
	}
}

// WithStartTimeout sets the container startup timeout
func WithStartTimeout(timeout time.Duration) TestOption {
	return func(cfg *testConfig) {
		cfg.startTimeout = timeout
	}
}

// WithClientOptions passes extra options to the Client under test.
func WithClientOptions(opts ...ClientOption) TestOption {
	return func(cfg *testConfig) {
		cfg.clientOpts = append(cfg.clientOpts, opts...)
	}
}

func newTestConfig(opts []TestOption) *testConfig {
	cfg := &testConfig{
		natsVersion:  "2.11.7-alpine",
		timeout:      5 * time.Second,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func startContainer(ctx context.Context, cfg *testConfig) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "nats:" + cfg.natsVersion,
		ExposedPorts: []string{"4222/tcp", "8222/tcp"},
		Cmd:          []string{"--port", "4222", "--http_port", "8222"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4222/tcp"),
			wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(cfg.startTimeout),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start NATS container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get mapped port: %w", err)
	}

	return container, fmt.Sprintf("nats://%s:%s", host, port.Port()), nil
}

func connectTestClient(ctx context.Context, url string, cfg *testConfig) (*Client, error) {
	opts := append([]ClientOption{
		WithTimeout(cfg.timeout),
		WithMaxReconnects(0),  // No reconnects in tests
		WithHealthInterval(0), // Disable health monitoring
		WithDrainTimeout(time.Second),
	}, cfg.clientOpts...)

	client, err := NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := client.WaitForConnection(connectCtx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("NATS connection not ready: %w", err)
	}
	return client, nil
}

// NewSharedTestClient starts a NATS container for use in TestMain.
// Unlike NewTestClient, this doesn't require testing.T and returns errors
func NewSharedTestClient(opts ...TestOption) (*TestClient, error) {
	cfg := newTestConfig(opts)
	ctx := context.Background()

	container, url, err := startContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := connectTestClient(ctx, url, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestClient{
		container: container,
		Client:    client,
		URL:       url,
		cleanup: func() {
			_ = client.Close(context.Background())        // Best effort test cleanup
			_ = container.Terminate(context.Background()) // Best effort test cleanup
		},
	}, nil
}

// NewTestClient starts a NATS container and registers its cleanup with t.
// Accepts testing.TB so it works with both *testing.T and *testing.B
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	tc, err := NewSharedTestClient(opts...)
	if err != nil {
		t.Fatalf("NATS test container: %v", err)
	}
	t.Cleanup(tc.cleanup)
	return tc
}

// NewEmbeddedTestClient runs nats-server in-process on a random port.
// It needs no Docker and starts in milliseconds, so unit tests use it.
func NewEmbeddedTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	cfg := newTestConfig(opts)
	srv := natsserver.RunRandClientPortServer()

	client, err := connectTestClient(context.Background(), srv.ClientURL(), cfg)
	if err != nil {
		srv.Shutdown()
		t.Fatalf("embedded NATS: %v", err)
	}

	tc := &TestClient{
		server: srv,
		Client: client,
		URL:    srv.ClientURL(),
		cleanup: func() {
			_ = client.Close(context.Background())
			srv.Shutdown()
			srv.WaitForShutdown()
		},
	}
	t.Cleanup(tc.cleanup)
	return tc
}

// Connect opens a second, independent Client against the same server.
// Tests use it to play the host side of a conversation.
func (tc *TestClient) Connect(t testing.TB, opts ...ClientOption) *Client {
	t.Helper()

	cfg := newTestConfig([]TestOption{WithClientOptions(opts...)})
	client, err := connectTestClient(context.Background(), tc.URL, cfg)
	if err != nil {
		t.Fatalf("second NATS client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

// Terminate manually terminates the server and client (usually handled by t.Cleanup)
func (tc *TestClient) Terminate() error {
	if tc.cleanup != nil {
		tc.cleanup()
		tc.cleanup = nil
	}
	return nil
}

// IsReady checks if the NATS connection is ready for use
func (tc *TestClient) IsReady() bool {
	return tc.Client.IsHealthy()
}

// GetNativeConnection returns the underlying NATS connection for direct access
func (tc *TestClient) GetNativeConnection() *gonats.Conn {
	return tc.Client.GetConnection()
}

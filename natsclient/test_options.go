package natsclient

import "time"

// WithFastStartup configures short timeouts, good for unit tests
func WithFastStartup() TestOption {
	return func(cfg *testConfig) {
		cfg.timeout = 2 * time.Second
		cfg.startTimeout = 10 * time.Second
	}
}

// WithIntegrationDefaults configures settings good for integration tests
func WithIntegrationDefaults() TestOption {
	return func(cfg *testConfig) {
		cfg.timeout = 5 * time.Second
		cfg.startTimeout = 30 * time.Second
	}
}

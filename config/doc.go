// Package config loads latticectl configuration.
//
// Configuration comes from three places, merged in order: the built-in defaults,
// any number of file layers (JSON, YAML or TOML, chosen by extension), and
// LATTICECTL_* environment variables. Files are merged as maps, so a layer only
// overrides the keys it names:
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/latticectl/base.yaml")
//	loader.AddLayer("./latticectl.toml") // overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//	    return err
//	}
//	nc, err := natsclient.NewClient(cfg.NATS.URL, cfg.NATSOptions(logger, registry)...)
//	client, err := ctl.New(nc, cfg.CtlOptions(logger, registry)...)
//
// Durations accept Go syntax ("1500ms") plus whole days ("14d"). Unknown keys are
// rejected so that typos do not silently fall back to defaults.
//
// # Environment
//
//	LATTICECTL_NATS_URL, LATTICECTL_NATS_NAME, LATTICECTL_NATS_USER,
//	LATTICECTL_NATS_PASSWORD, LATTICECTL_NATS_TOKEN, LATTICECTL_LATTICE,
//	LATTICECTL_TOPIC_PREFIX, LATTICECTL_EVENT_PREFIX, LATTICECTL_TIMEOUT,
//	LATTICECTL_AUCTION_TIMEOUT, LATTICECTL_LOG_LEVEL, LATTICECTL_LOG_FORMAT
//
// # Live reload
//
// Manager keeps a SafeConfig for long-running commands. Reload re-reads the
// layers and notifies OnChange subscribers with the changed paths:
//
//	mgr, _ := config.NewManager(loader, logger)
//	defer mgr.Stop()
//	for update := range mgr.OnChange("log.*") {
//	    applyLevel(update.Config.Get().Log.Level)
//	}
//
// Files are read through size, depth and path traversal checks.
package config

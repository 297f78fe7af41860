package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/spf13/pflag"

	"github.com/c360/latticectl/config"
	"github.com/c360/latticectl/metric"
	"github.com/c360/latticectl/relay"
)

func runWatch(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	categories := fs.StringSlice("category", nil, "Event category to follow, repeatable; all when unset")
	relayAddr := fs.String("relay", "", "Serve events to websocket clients on this address")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address")
	quiet := fs.BoolP("quiet", "q", false, "Do not print events")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	cfg := a.cfg
	if fs.Changed("relay") {
		cfg.Relay.Enabled, cfg.Relay.Address = true, *relayAddr
	}
	if fs.Changed("metrics") {
		cfg.Metrics.Enabled, cfg.Metrics.Address = true, *metricsAddr
	}

	rcv, err := a.client.EventsReceiver(ctx, *categories)
	if err != nil {
		return err
	}
	defer func() {
		if err := rcv.Close(); err != nil {
			a.logger.Warn("Event receiver close failed", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		stop := serveMetrics(a, cfg.Metrics)
		defer stop()
	}

	var rl *relay.Relay
	if cfg.Relay.Enabled {
		rl = relay.New(relay.WithLogger(a.logger), relay.WithMetrics(a.registry))
		stop, err := serveRelay(a, cfg.Relay, rl)
		if err != nil {
			return err
		}
		defer stop()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	levels := a.manager.OnChange("log.level")

	a.logger.Info("Watching lattice events", "lattice", a.client.Lattice(), "categories", *categories)
	enc := json.NewEncoder(a.out)
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-hup:
			if _, err := a.manager.Reload(); err != nil {
				a.logger.Warn("Keeping current configuration", "error", err)
			}

		case update, ok := <-levels:
			if !ok {
				levels = nil
				continue
			}
			applyLevel(a, update)

		case e, ok := <-rcv.Events():
			if !ok {
				<-rcv.Done()
				return rcv.Err()
			}
			if err := emit(a, enc, rl, e, *quiet); err != nil {
				return err
			}
		}
	}
}

func emit(a *app, enc *json.Encoder, rl *relay.Relay, e event.Event, quiet bool) error {
	if rl != nil {
		if err := rl.Broadcast(e); err != nil {
			a.logger.Warn("Failed to relay event", "id", e.ID(), "error", err)
		}
	}
	if quiet {
		return nil
	}
	return enc.Encode(e)
}

func applyLevel(a *app, update config.Update) {
	cfg := update.Config.Get()
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return
	}
	if a.level.Level() != level {
		a.level.Set(level)
		a.logger.Info("Log level changed", "level", level.String())
	}
}

func serveMetrics(a *app, cfg config.MetricsConfig) func() {
	srv := metric.NewServer(cfg.Address, cfg.Path, a.registry)
	go func() {
		if err := srv.Start(); err != nil {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()
	a.logger.Info("Serving metrics", "address", cfg.Address, "path", cfg.Path)
	return func() {
		if err := srv.Stop(); err != nil {
			a.logger.Warn("Metrics server stop failed", "error", err)
		}
	}
}

func serveRelay(a *app, cfg config.RelayConfig, rl *relay.Relay) (func(), error) {
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, rl)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Relay server failed", "error", err)
		}
	}()
	a.logger.Info("Relaying events", "address", ln.Addr().String(), "path", cfg.Path)

	return func() {
		_ = rl.Close()
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

package main

import (
	"context"
	"net/http"

	"github.com/c360/semmodel/metric"
)

// runServe exposes metrics, health, the packed model and the websocket event
// stream, applies any ops files given, then blocks until ctx is done.
func runServe(ctx context.Context, a *app, cli *CLIConfig, files []string) error {
	server := metric.NewServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path, a.metrics)
	server.Handle("/model", modelHandler(a))
	if a.hub != nil {
		server.Handle("/events", a.hub)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	a.logger.Info("Serving", "metrics", server.Address(), "websocket", a.hub != nil, "nats", a.nats != nil)

	for _, path := range files {
		batch, err := loadBatch(path)
		if err != nil {
			_ = server.Stop()
			return err
		}
		if _, err := applyBatch(ctx, a, cli.User, batch); err != nil {
			_ = server.Stop()
			return err
		}
	}

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down", "reason", context.Cause(ctx))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	return server.Stop()
}

func modelHandler(a *app) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := writeJSON(w, packModel(a.model)); err != nil {
			a.logger.Warn("Model write failed", "error", err)
		}
	})
}

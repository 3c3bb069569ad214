package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/c360/semmodel/auth"
	"github.com/c360/semmodel/config"
	"github.com/c360/semmodel/datatype"
	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
	"github.com/c360/semmodel/model"
	"github.com/c360/semmodel/modelext"
	"github.com/c360/semmodel/modelstore"
	"github.com/c360/semmodel/natsclient"
	"github.com/c360/semmodel/notify"
	"github.com/c360/semmodel/tags"
)

type appOptions struct {
	serve bool
}

// app wires the model stack from configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.MetricsRegistry

	tags    *tags.Normalizer
	types   *datatype.Registry
	model   *model.Model
	manager *modelext.Manager

	nats  *natsclient.Client
	hub   *notify.Hub
	async *notify.Async
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (a *app, err error) {
	a = &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metric.NewMetricsRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close(5 * time.Second)
		}
	}()
	core := a.metrics.CoreMetrics()

	a.tags, err = tags.NewNormalizer(
		tags.WithCapacity(cfg.Model.TagCacheSize),
		tags.WithShards(cfg.Model.TagCacheShards),
		tags.WithMetrics(a.metrics),
		tags.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	a.types, err = datatype.NewRegistry(a.tags, datatype.WithMetrics(core), datatype.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.model, err = model.New(a.types, model.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := defineTypes(a.types, cfg.Model.Types); err != nil {
		return nil, err
	}

	authz, err := auth.FromConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	if cfg.NATS.Enabled {
		if err := a.connectNATS(ctx); err != nil {
			return nil, err
		}
	}

	var persister modelext.Persister = modelext.NewMemoryPersister()
	if cfg.Store.Backend == config.StoreKV {
		persister, err = modelstore.NewStore(ctx, a.nats, modelstore.Options{
			Bucket:   cfg.Store.Bucket,
			Replicas: cfg.Store.Replicas,
			History:  cfg.Store.History,
		})
		if err != nil {
			return nil, err
		}
	}

	var sinks notify.Fanout
	if a.nats != nil {
		sinks = append(sinks, notify.NewNATSPublisher(a.nats, cfg.Events.SubjectPrefix, core))
	}
	if opts.serve && cfg.Events.Websocket {
		a.hub = notify.NewHub(logger, core)
		sinks = append(sinks, a.hub)
	}

	var notifier notify.Notifier = notify.Nop
	if len(sinks) > 0 {
		a.async = notify.NewAsync(sinks,
			notify.WithName("events"),
			notify.WithWorkers(cfg.Events.Workers),
			notify.WithQueueSize(cfg.Events.QueueSize),
			notify.WithLogger(logger),
			notify.WithMetrics(core),
		)
		if err := a.async.Start(ctx); err != nil {
			return nil, err
		}
		notifier = a.async
	}

	a.manager = modelext.New(a.model,
		modelext.WithAuthorizer(authz),
		modelext.WithNotifier(notifier),
		modelext.WithPersister(persister),
		modelext.WithMetrics(core),
		modelext.WithLogger(logger),
	)
	n, err := a.manager.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Model ready", "restored", n, "counts", a.model.Counts())
	return a, nil
}

func (a *app) connectNATS(ctx context.Context) error {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(a.logger),
		natsclient.WithName(appName),
		natsclient.WithMetrics(a.metrics.CoreMetrics()),
	}
	if a.cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(a.cfg.NATS.MaxReconnects))
	}
	if a.cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(a.cfg.NATS.ReconnectWait))
	}
	if a.cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(a.cfg.NATS.Username, a.cfg.NATS.Password))
	}
	if a.cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(a.cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(strings.Join(a.cfg.NATS.URLs, ","), opts...)
	if err != nil {
		return err
	}
	a.nats = client

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return err
	}
	return client.WaitForConnection(connectCtx)
}

// defineTypes registers configured types. A type may extend another
// configured type, so definitions repeat until no more can be resolved.
func defineTypes(reg *datatype.Registry, defs map[string]map[string]any) error {
	pending := slices.Sorted(maps.Keys(defs))
	for len(pending) > 0 {
		var retry []string
		var lastErr error
		for _, name := range pending {
			def := defs[name]
			base := config.GetString(def, "base", "")
			if _, err := reg.Type(base); err != nil {
				if _, ok := defs[base]; ok {
					retry = append(retry, name)
					lastErr = err
					continue
				}
			}
			info := datatype.Info{
				Doc: config.GetString(def, "doc", ""),
				Ex:  config.GetString(def, "ex", ""),
			}
			opts := maps.Clone(def)
			delete(opts, "base")
			delete(opts, "doc")
			delete(opts, "ex")
			if _, err := reg.Define(name, base, opts, info); err != nil {
				return errors.WrapInvalid(err, "CLI", "defineTypes", fmt.Sprintf("define type %s", name))
			}
		}
		if len(retry) == len(pending) {
			return errors.WrapInvalid(lastErr, "CLI", "defineTypes",
				fmt.Sprintf("unresolved type bases: %s", strings.Join(retry, ", ")))
		}
		pending = retry
	}
	return nil
}

// Close releases everything newApp opened. Queued events are flushed first.
func (a *app) Close(timeout time.Duration) {
	if a.async != nil {
		if err := a.async.Stop(timeout); err != nil {
			a.logger.Warn("Event delivery did not drain", "error", err)
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.nats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.nats.Close(ctx); err != nil {
			a.logger.Warn("NATS close failed", "error", err)
		}
	}
	if a.tags != nil {
		_ = a.tags.Close()
	}
}

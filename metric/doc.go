// Package metric provides Prometheus-based metrics for the model layer and an
// HTTP server exposing them.
//
// A MetricsRegistry owns a private Prometheus registry. It registers the core
// Metrics (normalizations, schema mutations, change event delivery and NATS
// status) and lets components register their own collectors under a
// service-scoped key:
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordNormalization("int", true)
//
//	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "tag_hits_total"})
//	err := registry.RegisterCounter("tags", "hits", hits)
//
// Registering the same service/metric pair twice returns an invalid-class
// error. Unregister releases it.
//
// Server serves /metrics (configurable), /health and any handlers mounted
// with Handle, such as the change event websocket hub:
//
//	srv := metric.NewServer(9090, "", registry)
//	srv.Handle("/events", hub)
//	go srv.Start()
//
// All core metrics use the "semmodel" namespace, for example
// semmodel_model_mutations_total{kind="form",action="add",result="ok"}.
package metric

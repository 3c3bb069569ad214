// Package semmodel is the schema and value normalization layer of a
// hypergraph data model.
//
// # Layout
//
//	tags/        tag text normalization with a bounded, sharded memo cache
//	datatype/    the type registry and built-in types (int, str, time, ...)
//	datatype/geo latitude, longitude, lat/long pairs and distances
//	model/       the catalog of forms, properties, universal properties
//	             and tag properties, loaded with the core model
//	modelext/    runtime schema extension with permission checks, name
//	             grammar, referential integrity and change events
//	auth/        permission policies for extension operations
//	notify/      change event delivery: NATS, websocket, async fan-out
//	modelstore/  extension persistence in a NATS JetStream KV bucket
//	natsclient/  NATS connection management with a circuit breaker
//	config/      layered JSON/YAML configuration with env overrides
//	metric/      Prometheus metrics and the HTTP endpoint
//	errors/      classified errors and schema error kinds
//	cmd/semmodel the command line tool
//
// # Values
//
// Every type turns raw input into a canonical value plus optional
// sub-values, and encodes canonical values into index keys whose byte
// order matches value order:
//
//	reg, _ := datatype.NewRegistry(norm)
//	m, _ := model.New(reg)
//	n, _ := m.NormProp("geo:place:latlong", "12.345, -56.78")
//
// # Extensions
//
// Extended elements are added and removed through a modelext.Manager. Each
// operation is authorized before anything changes, applied under a single
// lock and reported with exactly one event:
//
//	mgr := modelext.New(m, modelext.WithAuthorizer(policy), modelext.WithNotifier(n))
//	_, err := mgr.AddFormProp(ctx, "visi", "test:str", "_tock", "int", nil, model.Info{})
package semmodel

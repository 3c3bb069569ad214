// Package config loads semmodel configuration.
//
// A Loader starts from Defaults, merges each layer file in order (JSON or
// YAML, chosen by extension), then applies SEMMODEL_* environment
// overrides. Only keys present in a layer override earlier values, so a
// layer can change model.tag_cache_size without restating the rest:
//
//	loader := config.NewLoader()
//	loader.AddLayer("semmodel.yaml")
//	loader.AddLayer("local.json")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
//
// Recognized environment variables: SEMMODEL_LOG_LEVEL, SEMMODEL_LOG_FORMAT,
// SEMMODEL_NATS_URLS (comma separated, also enables NATS),
// SEMMODEL_NATS_USERNAME, SEMMODEL_NATS_PASSWORD, SEMMODEL_NATS_TOKEN,
// SEMMODEL_STORE_BACKEND, SEMMODEL_AUTH_MODE and SEMMODEL_METRICS_PORT.
//
// The Get* helpers read loosely typed option maps, such as the per-type
// options under model.types, without panicking on unexpected shapes.
package config

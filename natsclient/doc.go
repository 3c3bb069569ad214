// Package natsclient wraps a NATS connection with a circuit breaker and
// offers the two things the schema service needs from NATS: core publish
// for change events and JetStream key-value buckets for persisted
// extensions.
//
// Basic usage:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithMaxReconnects(-1),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "semmodel_extensions"})
//	kv := client.NewKVStore(bucket)
//
// # Circuit breaker
//
// Consecutive connection or JetStream failures are counted. Once the count
// reaches the threshold (default 5) the status moves to StatusCircuitOpen,
// further attempts fail fast with ErrCircuitOpen, and the backoff doubles up
// to the configured maximum. After the backoff the circuit is half-closed
// and the next attempt is let through.
//
// # Testing
//
// NewTestClient starts a NATS server in a container via testcontainers-go
// and returns a connected client; it is meant for integration tests built
// with the "integration" tag.
package natsclient

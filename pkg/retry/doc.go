// Package retry runs an operation with exponential backoff while it keeps
// failing with retryable errors.
//
// By default only transient errors (errors.IsTransient) are retried, so a
// rejected schema change or a malformed record fails on the first attempt
// while a dropped NATS connection gets another chance:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return kv.Put(ctx, key, data)
//	})
//
// Presets:
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay
//   - Quick(): 10 attempts, 50ms-1s delay, for startup
package retry

// Package modelstore persists schema extensions in a NATS JetStream
// key-value bucket. One key holds one extended element:
//
//	<kind>.<name with ":" written as "/">
//
// so "_visi:int:tick" is stored under "prop._visi/int/tick" and "._beep"
// under "univ._beep". Values are JSON modelext.Record documents.
package modelstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/modelext"
	"github.com/c360/semmodel/natsclient"
	"github.com/c360/semmodel/pkg/retry"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "semmodel_extensions"

// Options configures the bucket.
type Options struct {
	Bucket   string
	Replicas int
	History  int

	// Retry applies to every KV round trip. Zero means retry.DefaultConfig.
	Retry retry.Config
}

// Store implements modelext.Persister on a KV bucket.
type Store struct {
	kv    *natsclient.KVStore
	retry retry.Config
}

// NewStore opens or creates the bucket.
func NewStore(ctx context.Context, client *natsclient.Client, opts Options) (*Store, error) {
	if client == nil {
		return nil, errors.WrapInvalid(nil, "modelstore", "NewStore", "nats client cannot be nil")
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	if opts.History <= 0 {
		opts.History = 5
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      opts.Bucket,
		Description: "Schema extensions: forms, props, universal props and tag props",
		History:     uint8(min(opts.History, 64)),
		Replicas:    opts.Replicas,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "modelstore", "NewStore", "create KV bucket")
	}

	return &Store{kv: client.NewKVStore(bucket), retry: opts.Retry}, nil
}

// Key returns the bucket key for an element.
func Key(kind modelext.Kind, name string) string {
	return string(kind) + "." + strings.ReplaceAll(strings.TrimPrefix(name, "."), ":", "/")
}

// Save implements modelext.Persister.
func (s *Store) Save(ctx context.Context, rec modelext.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.WrapInvalid(err, "modelstore", "Save", "marshal record")
	}
	key := Key(rec.Kind, rec.Key())
	err = retry.Do(ctx, s.retry, func() error {
		_, err := s.kv.Put(ctx, key, data)
		return err
	})
	if err != nil {
		return errors.WrapTransient(err, "modelstore", "Save", "put to KV")
	}
	return nil
}

// Delete implements modelext.Persister. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, kind modelext.Kind, key string) error {
	err := retry.Do(ctx, s.retry, func() error {
		return s.kv.Delete(ctx, Key(kind, key))
	})
	if err != nil && !natsclient.IsKVNotFoundError(err) {
		return errors.WrapTransient(err, "modelstore", "Delete", "delete from KV")
	}
	return nil
}

// Load implements modelext.Persister. Records come back in replay order.
func (s *Store) Load(ctx context.Context) ([]modelext.Record, error) {
	keys, err := retry.DoWithResult(ctx, s.retry, func() ([]string, error) {
		return s.kv.Keys(ctx)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "modelstore", "Load", "list KV keys")
	}

	recs := make([]modelext.Record, 0, len(keys))
	for _, key := range keys {
		entry, err := retry.DoWithResult(ctx, s.retry, func() (*natsclient.KVEntry, error) {
			return s.kv.Get(ctx, key)
		})
		if err != nil {
			if natsclient.IsKVNotFoundError(err) {
				// deleted since Keys
				continue
			}
			return nil, errors.WrapTransient(err, "modelstore", "Load", fmt.Sprintf("get %s", key))
		}
		var rec modelext.Record
		if err := json.Unmarshal(entry.Value, &rec); err != nil {
			return nil, errors.WrapFatal(err, "modelstore", "Load", fmt.Sprintf("unmarshal %s", key))
		}
		recs = append(recs, rec)
	}

	modelext.SortRecords(recs)
	return recs, nil
}

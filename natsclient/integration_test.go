//go:build integration

package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	require.NoError(t, tc.Client.Subscribe(ctx, "semmodel.model.>", func(_ context.Context, data []byte) {
		mu.Lock()
		got = append(got, string(data))
		mu.Unlock()
	}))

	require.NoError(t, tc.Client.Publish(ctx, "semmodel.model.form.add", []byte("hello")))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Positive(t, rtt)
}

func TestIntegration_KVStore(t *testing.T) {
	tc := NewTestClient(t, WithKVBuckets("kv_test"))
	ctx := context.Background()

	bucket, err := tc.Client.GetKeyValueBucket(ctx, "kv_test")
	require.NoError(t, err)

	again, err := tc.Client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "kv_test"})
	require.NoError(t, err, "existing bucket is reused")
	assert.Equal(t, bucket.Bucket(), again.Bucket())

	kv := tc.Client.NewKVStore(bucket)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	rev, err := kv.Create(ctx, "form._visi/int", []byte("v1"))
	require.NoError(t, err)
	_, err = kv.Create(ctx, "form._visi/int", []byte("v1"))
	assert.ErrorIs(t, err, ErrKVKeyExists)

	_, err = kv.Update(ctx, "form._visi/int", []byte("v2"), rev+10)
	assert.ErrorIs(t, err, ErrKVRevisionMismatch)
	_, err = kv.Update(ctx, "form._visi/int", []byte("v2"), rev)
	require.NoError(t, err)

	entry, err := kv.Get(ctx, "form._visi/int")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(entry.Value))

	_, err = kv.Put(ctx, "univ._beep", []byte("u"))
	require.NoError(t, err)
	keys, err = kv.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"form._visi/int", "univ._beep"}, keys)

	require.NoError(t, kv.Delete(ctx, "univ._beep"))
	_, err = kv.Get(ctx, "univ._beep")
	assert.ErrorIs(t, err, ErrKVKeyNotFound)

	small := tc.Client.NewKVStore(bucket, func(o *KVOptions) { o.MaxValueSize = 4 })
	_, err = small.Put(ctx, "big", []byte("too large"))
	assert.ErrorIs(t, err, ErrKVValueTooLarge)

	require.NoError(t, tc.Client.DeleteKeyValueBucket(ctx, "kv_test"))
}

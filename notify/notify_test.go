package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
	"github.com/c360/semmodel/testutil"
)

func TestNewEvent(t *testing.T) {
	evt := NewEvent("model:form:add", "root", map[string]any{"form": "_hehe:haha"})
	assert.Len(t, evt.ID, 36)
	assert.Equal(t, "model:form:add", evt.Type)
	assert.Equal(t, "root", evt.User)
	assert.NotZero(t, evt.Time)

	other := NewEvent("model:form:add", "root", nil)
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestRecorderAndFanout(t *testing.T) {
	ctx := context.Background()
	a, b := NewRecorder(), NewRecorder()
	boom := Func(func(context.Context, Event) error { return errors.New("boom") })

	f := Fanout{a, boom, nil, b}
	err := f.Notify(ctx, Event{Type: "x"})
	require.Error(t, err)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len(), "later notifiers still run after a failure")

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "x", last.Type)

	a.Reset()
	_, ok = a.Last()
	assert.False(t, ok)
}

func TestAsync_Delivers(t *testing.T) {
	rec := NewRecorder()
	reg := metric.NewMetricsRegistry()
	a := NewAsync(rec, WithName("test"), WithWorkers(2), WithQueueSize(16), WithMetrics(reg.CoreMetrics()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx))

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Notify(ctx, Event{Type: "model:univ:add"}))
	}
	require.NoError(t, a.Stop(time.Second))

	assert.Equal(t, 10, rec.Len())
	stats := a.Stats()
	assert.Equal(t, int64(10), stats.Queued)
	assert.Equal(t, int64(10), stats.Delivered)
	assert.Equal(t, float64(10), promtest.ToFloat64(reg.CoreMetrics().EventsPublished.WithLabelValues("test")))

	err := a.Notify(ctx, Event{})
	assert.True(t, errors.IsTransient(err), "notify after stop fails")
}

func TestAsync_DefaultKeepsOrder(t *testing.T) {
	rec := NewRecorder()
	a := NewAsync(rec, WithQueueSize(64))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	for i := 1; i <= 50; i++ {
		require.NoError(t, a.Notify(ctx, Event{Type: "model:form:add", Seq: uint64(i)}))
	}
	require.NoError(t, a.Stop(time.Second))

	events := rec.Events()
	require.Len(t, events, 50)
	for i, e := range events {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestAsync_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	slow := Func(func(context.Context, Event) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	a := NewAsync(slow, WithWorkers(1), WithQueueSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))

	require.NoError(t, a.Notify(ctx, Event{}))
	<-started
	require.NoError(t, a.Notify(ctx, Event{}))

	err := a.Notify(ctx, Event{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrQueueFull)
	assert.Equal(t, int64(1), a.Stats().Dropped)

	close(release)
	require.NoError(t, a.Stop(time.Second))
	assert.Equal(t, int64(2), a.Stats().Delivered)
}

func TestNATSPublisher(t *testing.T) {
	pub := testutil.NewMockNATSClient()
	p := NewNATSPublisher(pub, "", nil)

	assert.Equal(t, "semmodel.model.form.add", p.Subject("model:form:add"))
	assert.Equal(t, "semmodel.model.tagprop.del", p.Subject("model:tagprop:del"))

	evt := NewEvent("model:prop:del", "visi", map[string]any{"form": "test:str", "prop": "_tick"})
	require.NoError(t, p.Notify(context.Background(), evt))
	assert.Equal(t, []string{"semmodel.model.prop.del"}, pub.Subjects())
	msgs := pub.Messages("semmodel.model.prop.del")
	require.Len(t, msgs, 1)

	var got Event
	require.NoError(t, json.Unmarshal(msgs[0], &got))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "_tick", got.Info["prop"])

	custom := NewNATSPublisher(pub, "acme.schema.", nil)
	assert.Equal(t, "acme.schema.univ.add", custom.Subject("model:univ:add"))

	pub.SetError(errors.New("disconnected"))
	err := p.Notify(context.Background(), evt)
	assert.True(t, errors.IsTransient(err))
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	evt := NewEvent("model:tagprop:add", "root", map[string]any{"name": "score"})
	require.NoError(t, hub.Notify(context.Background(), evt))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, "score", got.Info["name"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"price-relay/src/logger"
	"price-relay/src/models"
	"price-relay/src/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	pushes []models.MPricePush
	gate   chan struct{}
	fail   bool
	closed bool
}

func (f *fakePublisher) Name() string { return "fake" }

func (f *fakePublisher) Publish(ctx context.Context, push models.MPricePush) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, push)
	if f.fail {
		return errors.New("unavailable")
	}
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePublisher) timestamps() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.pushes))
	for i, p := range f.pushes {
		out[i] = p.Timestamp
	}
	return out
}

func state(ts int64) models.MPriceState {
	return models.MPriceState{
		Prices:    map[string]models.MPriceSnapshot{"eth": {ID: "eth", Price: float64(ts)}},
		Timestamp: ts,
	}
}

// -----------------------------------------------------------------------------

func TestMirrorPublishesLatestAndCloses(t *testing.T) {
	slow := &fakePublisher{gate: make(chan struct{})}
	failing := &fakePublisher{fail: true}
	m := NewMirror(logger.NewNopLogger(), slow, failing)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	m.Broadcast(state(1))
	// Worker is now blocked inside the first publish.
	time.Sleep(20 * time.Millisecond)
	m.Broadcast(state(2))
	m.Broadcast(state(3))
	close(slow.gate)

	require.Eventually(t, func() bool {
		return len(failing.timestamps()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 3}, slow.timestamps())
	assert.Equal(t, []int64{1, 3}, failing.timestamps())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, slow.closed)
	assert.True(t, failing.closed)
}

func TestMirrorBroadcastDoesNotBlock(t *testing.T) {
	m := NewMirror(logger.NewNopLogger(), &fakePublisher{gate: make(chan struct{})})

	finished := make(chan struct{})
	go func() {
		for i := int64(0); i < 1000; i++ {
			m.Broadcast(state(i))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running worker")
	}
}

func TestMirrorFlushesOnShutdown(t *testing.T) {
	p := &fakePublisher{}
	m := NewMirror(logger.NewNopLogger(), p)
	m.Broadcast(state(7))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, m.Run(ctx))
	assert.Equal(t, []int64{7}, p.timestamps())
}

// -----------------------------------------------------------------------------

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	pub := NewRedisPublisher(models.MRedisConfig{Addr: mr.Addr(), Channel: "prices", LatestKey: "prices:latest"})
	defer pub.Close()

	ctx := context.Background()
	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer sub.Close()
	ps := sub.Subscribe(ctx, "prices")
	defer ps.Close()
	_, err := ps.Receive(ctx)
	require.NoError(t, err)

	push := models.NewPricePush(state(42))
	require.NoError(t, pub.Publish(ctx, push))

	stored, err := mr.Get("prices:latest")
	require.NoError(t, err)
	var got models.MPricePush
	require.NoError(t, json.Unmarshal([]byte(stored), &got))
	assert.Equal(t, int64(42), got.Timestamp)
	assert.Equal(t, "prices", got.Type)

	select {
	case msg := <-ps.Channel():
		assert.Equal(t, stored, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("no message on channel")
	}
}

func TestRedisPublisherUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	pub := NewRedisPublisher(models.MRedisConfig{Addr: mr.Addr(), Channel: "c", LatestKey: "k"})
	defer pub.Close()
	mr.Close()

	err := pub.Publish(context.Background(), models.NewPricePush(state(1)))
	assert.Error(t, err)
}

// -----------------------------------------------------------------------------

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherOneMessagePerToken(t *testing.T) {
	w := &fakeKafkaWriter{}
	pub := &KafkaPublisher{Writer: w}

	push := models.MPricePush{
		Type: models.PushTypePrices,
		Data: map[string]models.MPriceSnapshot{
			"sol": {ID: "sol", Price: 150},
			"eth": {ID: "eth", Price: 2500},
		},
		Timestamp: 1700000000000,
	}
	require.NoError(t, pub.Publish(context.Background(), push))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "eth", string(w.msgs[0].Key))
	assert.Equal(t, "sol", string(w.msgs[1].Key))
	assert.Equal(t, int64(1700000000000), w.msgs[0].Time.UnixMilli())

	var snap models.MPriceSnapshot
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &snap))
	assert.Equal(t, 2500.0, snap.Price)

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisherConfiguresWriter(t *testing.T) {
	pub := NewKafkaPublisher(models.MKafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "token-prices"})
	w, ok := pub.Writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "token-prices", w.Topic)
	assert.Equal(t, "kafka", pub.Name())
}

// -----------------------------------------------------------------------------

func TestStorePublisher(t *testing.T) {
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBPath: filepath.Join(t.TempDir(), "p.db")}}
	db := storage.NewSQLiteDB(cfg, logger.NewNopLogger())
	require.NoError(t, db.Initialize())

	pub := NewStorePublisher(db)
	require.NoError(t, pub.Publish(context.Background(), models.NewPricePush(state(5))))

	got, err := db.LoadSnapshots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, got["eth"].Price)
	require.NoError(t, pub.Close())
}

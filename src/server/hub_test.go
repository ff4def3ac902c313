package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"price-relay/src/logger"
	"price-relay/src/models"
	"price-relay/src/pricetable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu         sync.Mutex
	payloads   [][]byte
	keepAlives int
	failWrites bool
}

func (f *fakeSink) WritePayload(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func (f *fakeSink) WriteKeepAlive() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	f.keepAlives++
	return nil
}

func (f *fakeSink) snapshot() ([][]byte, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...), f.keepAlives
}

func decodePush(t *testing.T, b []byte) models.MPricePush {
	t.Helper()
	var p models.MPricePush
	require.NoError(t, json.Unmarshal(b, &p))
	return p
}

func newTestHub(keepAlive time.Duration) (*Hub, *pricetable.PriceTable) {
	table := pricetable.NewPriceTable([]string{"eth", "sol"}, nil)
	return NewHub(table, keepAlive, logger.NewNopLogger()), table
}

func stateAt(ts int64, ethPrice float64) models.MPriceState {
	return models.MPriceState{
		Prices:    map[string]models.MPriceSnapshot{"eth": {ID: "eth", Price: ethPrice}},
		Timestamp: ts,
	}
}

// -----------------------------------------------------------------------------

func TestRegisterCapturesBootstrap(t *testing.T) {
	hub, table := newTestHub(time.Minute)
	table.ApplyUpdate("eth", models.MPriceFields{Price: 2500})
	table.MarkUpdated(time.UnixMilli(77))

	sub := hub.Register(NewSubscriber(TransportSSE))
	require.NotNil(t, sub.Bootstrap())
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, 1, hub.Count())

	push := decodePush(t, sub.Bootstrap())
	assert.Equal(t, models.PushTypePrices, push.Type)
	assert.Equal(t, int64(77), push.Timestamp)
	assert.Equal(t, 2500.0, push.Data["eth"].Price)
	assert.Len(t, push.Data, 2)
}

func TestBroadcastLatestWinsForSlowSubscriber(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	sub := hub.Register(NewSubscriber(TransportSSE))

	hub.Broadcast(stateAt(1, 1))
	hub.Broadcast(stateAt(2, 2))
	hub.Broadcast(stateAt(3, 3))

	select {
	case p := <-sub.Mailbox():
		assert.Equal(t, int64(3), decodePush(t, p).Timestamp)
	default:
		t.Fatal("mailbox empty")
	}

	select {
	case <-sub.Mailbox():
		t.Fatal("mailbox should hold a single payload")
	default:
	}
}

func TestBroadcastSameBytesToEverySubscriber(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	a := hub.Register(NewSubscriber(TransportSSE))
	b := hub.Register(NewSubscriber(TransportWebsocket))

	hub.Broadcast(stateAt(5, 10))

	pa := <-a.Mailbox()
	pb := <-b.Mailbox()
	assert.Equal(t, pa, pb)
	assert.JSONEq(t, `{"type":"prices","data":{"eth":{"id":"eth","price":10,"priceChange24h":0,"priceChangePercentage24h":0,"marketCap":0,"volume24h":0,"lastUpdated":0}},"timestamp":5}`, string(pa))
}

func TestBroadcastPrunesClosedSubscriber(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	live := hub.Register(NewSubscriber(TransportSSE))
	gone := hub.Register(NewSubscriber(TransportSSE))
	gone.Close()

	hub.Broadcast(stateAt(1, 1))

	assert.Equal(t, 1, hub.Count())
	assert.Len(t, live.Mailbox(), 1)
	assert.ErrorIs(t, gone.Push([]byte("x")), ErrSubscriberClosed)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	sub := hub.Register(NewSubscriber(TransportSSE))

	hub.Unregister(sub)
	hub.Unregister(sub)
	assert.Zero(t, hub.Count())
}

// -----------------------------------------------------------------------------

func TestServeWritesBootstrapThenBroadcasts(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	sub := hub.Register(NewSubscriber(TransportSSE))
	sink := &fakeSink{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx, sub, sink) }()

	require.Eventually(t, func() bool {
		p, _ := sink.snapshot()
		return len(p) == 1
	}, time.Second, 5*time.Millisecond)

	hub.Broadcast(stateAt(9, 3))
	require.Eventually(t, func() bool {
		p, _ := sink.snapshot()
		return len(p) == 2
	}, time.Second, 5*time.Millisecond)

	payloads, _ := sink.snapshot()
	assert.Equal(t, sub.Bootstrap(), payloads[0])
	assert.Equal(t, int64(9), decodePush(t, payloads[1]).Timestamp)

	cancel()
	assert.NoError(t, <-done)
	assert.Zero(t, hub.Count())
}

func TestServeSendsKeepAliveWhenIdle(t *testing.T) {
	hub, _ := newTestHub(20 * time.Millisecond)
	sub := hub.Register(NewSubscriber(TransportSSE))
	sink := &fakeSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Serve(ctx, sub, sink)

	require.Eventually(t, func() bool {
		_, k := sink.snapshot()
		return k >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestServeWriteFailureUnregisters(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	sub := hub.Register(NewSubscriber(TransportSSE))

	err := hub.Serve(context.Background(), sub, &fakeSink{failWrites: true})
	assert.Error(t, err)
	assert.Zero(t, hub.Count())
	assert.ErrorIs(t, sub.Push([]byte("x")), ErrSubscriberClosed)
}

func TestCloseAllEndsServeAndRefusesNew(t *testing.T) {
	hub, _ := newTestHub(time.Minute)
	sub := hub.Register(NewSubscriber(TransportSSE))

	done := make(chan error, 1)
	go func() { done <- hub.Serve(context.Background(), sub, &fakeSink{}) }()

	hub.CloseAll()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}

	late := hub.Register(NewSubscriber(TransportSSE))
	assert.Zero(t, hub.Count())
	assert.ErrorIs(t, late.Push([]byte("x")), ErrSubscriberClosed)
}

func TestConcurrentRegisterAndBroadcastAreMonotonic(t *testing.T) {
	hub, table := newTestHub(time.Minute)
	base := table.Timestamp()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= 200; i++ {
			table.ApplyUpdate("eth", models.MPriceFields{Price: float64(i)})
			table.MarkUpdated(time.UnixMilli(base + i))
			hub.Broadcast(table.State())
		}
	}()

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := hub.Register(NewSubscriber(TransportSSE))
			last := decodePush(t, sub.Bootstrap()).Timestamp
			deadline := time.After(200 * time.Millisecond)
			for {
				select {
				case p := <-sub.Mailbox():
					ts := decodePush(t, p).Timestamp
					assert.GreaterOrEqual(t, ts, last)
					last = ts
				case <-deadline:
					hub.Unregister(sub)
					return
				}
			}
		}()
	}
	wg.Wait()
}

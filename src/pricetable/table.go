package pricetable

import (
	"math"
	"sync"
	"time"

	"price-relay/src/models"
)

// ChangeEpsilon is the smallest price move that counts as a change.
const ChangeEpsilon = 1e-6

// PriceTable holds the latest snapshot for every configured token.
// The feed is the only writer once startup seeding is done.
type PriceTable struct {
	mu        sync.RWMutex
	prices    map[string]models.MPriceSnapshot
	timestamp int64
	clock     func() time.Time
}

// -----------------------------------------------------------------------------

// NewPriceTable creates one zeroed entry per id. A nil clock uses time.Now.
func NewPriceTable(ids []string, clock func() time.Time) *PriceTable {
	if clock == nil {
		clock = time.Now
	}

	now := clock().UnixMilli()
	prices := make(map[string]models.MPriceSnapshot, len(ids))
	for _, id := range ids {
		prices[id] = models.MPriceSnapshot{ID: id, LastUpdated: now}
	}

	return &PriceTable{
		prices:    prices,
		timestamp: now,
		clock:     clock,
	}
}

// -----------------------------------------------------------------------------

// ApplyUpdate replaces the entry for id when the price moved by more than
// ChangeEpsilon or the stored price is still zero. Unknown ids are ignored.
func (pt *PriceTable) ApplyUpdate(id string, fields models.MPriceFields) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	old, ok := pt.prices[id]
	if !ok {
		return false
	}

	if math.Abs(old.Price-fields.Price) <= ChangeEpsilon && old.Price != 0 {
		return false
	}

	pt.prices[id] = models.MPriceSnapshot{
		ID:                       id,
		Price:                    fields.Price,
		PriceChange24h:           fields.PriceChange24h,
		PriceChangePercentage24h: fields.PriceChangePercentage24h,
		MarketCap:                old.MarketCap,
		Volume24h:                fields.Volume24h,
		LastUpdated:              pt.clock().UnixMilli(),
	}
	return true
}

// -----------------------------------------------------------------------------

// MarkUpdated stamps the table after a batch that changed something.
func (pt *PriceTable) MarkUpdated(t time.Time) {
	pt.mu.Lock()
	pt.timestamp = t.UnixMilli()
	pt.mu.Unlock()
}

// Now is the table clock, so callers stamp batches on the same time source.
func (pt *PriceTable) Now() time.Time {
	return pt.clock()
}

// -----------------------------------------------------------------------------

func (pt *PriceTable) SnapshotAll() map[string]models.MPriceSnapshot {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.copyLocked()
}

// State returns the table and its timestamp read under one lock.
func (pt *PriceTable) State() models.MPriceState {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return models.MPriceState{Prices: pt.copyLocked(), Timestamp: pt.timestamp}
}

func (pt *PriceTable) Get(id string) (models.MPriceSnapshot, bool) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	s, ok := pt.prices[id]
	return s, ok
}

// Timestamp is the time of the last changed batch in epoch millis.
func (pt *PriceTable) Timestamp() int64 {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.timestamp
}

// -----------------------------------------------------------------------------

// Seed overwrites an entry before the feed starts. Unknown ids are ignored.
func (pt *PriceTable) Seed(id string, snapshot models.MPriceSnapshot) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.prices[id]; !ok {
		return false
	}
	snapshot.ID = id
	if snapshot.LastUpdated == 0 {
		snapshot.LastUpdated = pt.clock().UnixMilli()
	}
	pt.prices[id] = snapshot
	return true
}

// -----------------------------------------------------------------------------

func (pt *PriceTable) copyLocked() map[string]models.MPriceSnapshot {
	out := make(map[string]models.MPriceSnapshot, len(pt.prices))
	for k, v := range pt.prices {
		out[k] = v
	}
	return out
}

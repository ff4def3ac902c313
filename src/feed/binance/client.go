package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"price-relay/src/helpers"
	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"
	"price-relay/src/pricetable"
	"price-relay/src/symbols"
)

const defaultReadTimeout = 60 * time.Second

// Client holds the single upstream connection to the Binance all-market
// ticker stream and folds every batch into the price table.
type Client struct {
	URL          string
	ReadTimeout  time.Duration
	Dialer       interfaces.IDialer
	Mapper       *symbols.SymbolMapper
	Table        *pricetable.PriceTable
	Broadcasters []interfaces.IBroadcaster
	Logger       *logger.Logger

	state       atomic.Int32
	lastMessage atomic.Int64 // epoch millis
}

// -----------------------------------------------------------------------------

func NewClient(
	url string,
	readTimeout time.Duration,
	dialer interfaces.IDialer,
	mapper *symbols.SymbolMapper,
	table *pricetable.PriceTable,
	log *logger.Logger,
	broadcasters ...interfaces.IBroadcaster,
) *Client {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &Client{
		URL:          url,
		ReadTimeout:  readTimeout,
		Dialer:       dialer,
		Mapper:       mapper,
		Table:        table,
		Broadcasters: broadcasters,
		Logger:       log,
	}
}

// -----------------------------------------------------------------------------

func (c *Client) State() models.UpstreamState {
	return models.UpstreamState(c.state.Load())
}

func (c *Client) setState(s models.UpstreamState) {
	c.state.Store(int32(s))
}

// LastMessage is the receive time of the newest upstream frame, 0 if none.
func (c *Client) LastMessage() int64 {
	return c.lastMessage.Load()
}

// -----------------------------------------------------------------------------

// Run dials the upstream and consumes batches until the connection ends.
// The returned error says why; it is nil only when ctx was cancelled.
func (c *Client) Run(ctx context.Context) error {
	c.setState(models.Connecting)
	c.Logger.Info("Connecting to %s", c.URL)

	conn, err := c.Dialer.Dial(ctx, c.URL)
	if err != nil {
		c.setState(models.Disconnected)
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.setState(models.Connected)
	c.Logger.Info("Connected to upstream")
	defer c.setState(models.Disconnected)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
			return helpers.NewTransportError("set read deadline", err)
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return helpers.NewTransportError("upstream read", err)
		}
		c.lastMessage.Store(time.Now().UnixMilli())

		if _, err := c.HandleBatch(data); err != nil {
			c.Logger.Warning("Skipping upstream message: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------

// HandleBatch applies one ticker array to the table. When at least one entry
// changed, the table is stamped and every broadcaster is called exactly once.
func (c *Client) HandleBatch(data []byte) (bool, error) {
	var records []models.MBinanceTicker
	if err := json.Unmarshal(data, &records); err != nil {
		return false, helpers.NewPayloadError("malformed ticker batch", err)
	}

	changed := false
	for i := range records {
		rec := &records[i]

		id, ok := c.Mapper.Map(rec.Symbol)
		if !ok {
			continue
		}

		fields, err := parseTicker(rec)
		if err != nil {
			c.Logger.Warning("Skipping %s: %v", rec.Symbol, err)
			continue
		}

		if c.Table.ApplyUpdate(id, fields) {
			changed = true
		}
	}

	if !changed {
		return false, nil
	}

	c.Table.MarkUpdated(c.Table.Now())
	state := c.Table.State()
	for _, b := range c.Broadcasters {
		b.Broadcast(state)
	}
	return true, nil
}

// -----------------------------------------------------------------------------

func parseTicker(rec *models.MBinanceTicker) (models.MPriceFields, error) {
	last, err := parseDecimal("last price", rec.LastPrice)
	if err != nil {
		return models.MPriceFields{}, err
	}
	change, err := parseDecimal("price change", rec.PriceChange)
	if err != nil {
		return models.MPriceFields{}, err
	}
	pct, err := parseDecimal("change percent", rec.PriceChangePercent)
	if err != nil {
		return models.MPriceFields{}, err
	}
	volume, err := parseDecimal("volume", rec.BaseVolume)
	if err != nil {
		return models.MPriceFields{}, err
	}

	return models.MPriceFields{
		Price:                    last,
		PriceChange24h:           change,
		PriceChangePercentage24h: pct,
		Volume24h:                volume * last,
	}, nil
}

// parseDecimal rejects NaN and Inf, which ParseFloat accepts but JSON cannot
// encode.
func parseDecimal(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s %q: not a finite number", field, raw)
	}
	return v, nil
}

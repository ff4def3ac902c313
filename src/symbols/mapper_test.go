package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapDefaultTable(t *testing.T) {
	m := NewSymbolMapper(DefaultBinanceSymbols())

	id, ok := m.Map("ETHUSDT")
	assert.True(t, ok)
	assert.Equal(t, "eth", id)

	id, ok = m.Map("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, "wbtc", id)

	_, ok = m.Map("DOGEUSDT")
	assert.False(t, ok)

	_, ok = m.Map("ethusdt")
	assert.False(t, ok, "lookup is case sensitive")
}

func TestMapperCopiesTable(t *testing.T) {
	table := map[string]string{"ETHUSDT": "eth"}
	m := NewSymbolMapper(table)
	table["SOLUSDT"] = "sol"

	_, ok := m.Map("SOLUSDT")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

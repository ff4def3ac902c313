package symbols

// SymbolMapper resolves upstream ticker symbols to token ids.
type SymbolMapper struct {
	table map[string]string
}

// DefaultBinanceSymbols returns a fresh copy of the built-in Binance table.
func DefaultBinanceSymbols() map[string]string {
	return map[string]string{
		"ETHUSDT":  "eth",
		"WBTCUSDT": "wbtc",
		"BTCUSDT":  "wbtc",
		"USDCUSDT": "usdc",
		"LINKUSDT": "link",
		"UNIUSDT":  "uni",
		"AAVEUSDT": "aave",
		"LDOUSDT":  "ldo",
		"POLUSDT":  "pol",
		"ARBUSDT":  "arb",
		"OPUSDT":   "op",
		"STRKUSDT": "strk",
		"CRVUSDT":  "crv",
		"SHIBUSDT": "shib",
		"PEPEUSDT": "pepe",
		"NEARUSDT": "near",
		"IMXUSDT":  "imx",
		"SOLUSDT":  "sol",
	}
}

// NewSymbolMapper copies table so later edits by the caller have no effect.
func NewSymbolMapper(table map[string]string) *SymbolMapper {
	m := make(map[string]string, len(table))
	for k, v := range table {
		m[k] = v
	}
	return &SymbolMapper{table: m}
}

func (m *SymbolMapper) Map(symbol string) (string, bool) {
	id, ok := m.table[symbol]
	return id, ok
}

// Len is the number of known symbols.
func (m *SymbolMapper) Len() int {
	return len(m.table)
}

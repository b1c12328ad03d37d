package types

import "strings"

// InstrumentRef identifies a tradable instrument.
type InstrumentRef struct {
	Symbol     string `json:"symbol"`
	ExchangeID string `json:"exchange_id,omitempty"`
	QuoteCcy   string `json:"quote_ccy,omitempty"`
}

// ParseInstrument builds an InstrumentRef from a user symbol like "BTC-USDT".
// The quote currency is taken from the part after the last dash when present.
func ParseInstrument(symbol, exchangeID string) InstrumentRef {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	ref := InstrumentRef{Symbol: sym, ExchangeID: exchangeID}
	if idx := strings.LastIndex(sym, "-"); idx > 0 && idx < len(sym)-1 {
		ref.QuoteCcy = sym[idx+1:]
	}
	return ref
}

package models

// MQuote is a normalised market quote. Percent is always finite.
type MQuote struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Change   float64 `json:"change"`
	Percent  float64 `json:"percent"`
	Type     string  `json:"type"`
	Currency string  `json:"currency"`
	Error    bool    `json:"error,omitempty"`
}

// -----------------------------------------------------------------------------

// NewQuote builds a successful quote for a configured symbol.
func NewQuote(sym MSymbolConfig, price, change, percent float64) MQuote {
	return MQuote{
		ID:       sym.ID,
		Name:     sym.Name,
		Symbol:   sym.Symbol,
		Price:    price,
		Change:   change,
		Percent:  percent,
		Type:     sym.Type,
		Currency: sym.Currency,
	}
}

// -----------------------------------------------------------------------------

// NewErrorQuote is the marker emitted in place of a symbol whose providers all failed.
func NewErrorQuote(sym MSymbolConfig) MQuote {
	q := NewQuote(sym, 0, 0, 0)
	q.Error = true
	return q
}

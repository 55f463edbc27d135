package interfaces

import (
	"context"

	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteSource is one provider in a symbol's fallback chain.
// -----------------------------------------------------------------------------

type IQuoteSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchQuote returns a validated quote or an error. It never returns a
	// quote with a non-finite percent.
	FetchQuote(ctx context.Context, sym models.MSymbolConfig) (models.MQuote, error)
}

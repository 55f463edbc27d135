package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"startpage-sync/src/analysis/core"
	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

const SourceName = "yahoo"

// YahooFinanceSource reads the current quote of a symbol from the v8 chart
// endpoint. It is the default provider for every symbol and the fallback for
// the domestic index.
type YahooFinanceSource struct {
	ChartURL string // "{symbol}" is replaced by the escaped ticker
	Network  interfaces.INetworkManager
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		ChartURL: cfg.Providers.ChartQuoteURL,
		Network:  netMgr,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return SourceName
}

// -----------------------------------------------------------------------------

// FetchQuote fetches one day of chart data and keeps only the meta block.
func (s *YahooFinanceSource) FetchQuote(ctx context.Context, sym models.MSymbolConfig) (models.MQuote, error) {
	params := map[string]string{
		"interval": "1d",
		"range":    "1d",
	}

	endpoint := strings.ReplaceAll(s.ChartURL, "{symbol}", url.PathEscape(sym.Symbol))
	body, err := s.Network.Get(ctx, endpoint, params, nil)
	if err != nil {
		return models.MQuote{}, err
	}

	quote, err := ParseChartResponse(sym, body)
	if err != nil {
		s.Logger.Debug("Chart payload for %s rejected: %v", sym.Symbol, err)
		return models.MQuote{}, err
	}
	return quote, nil
}

// -----------------------------------------------------------------------------

// ChartResponse is the subset of the chart payload used for quotes. Optional
// fields are pointers so that absence and zero stay distinguishable.
type ChartResponse struct {
	Chart struct {
		Result []struct {
			Meta ChartMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type ChartMeta struct {
	Currency                   string   `json:"currency"`
	Symbol                     string   `json:"symbol"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	PreviousClose              *float64 `json:"previousClose"`
	ChartPreviousClose         *float64 `json:"chartPreviousClose"`
	RegularMarketChange        *float64 `json:"regularMarketChange"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
}

// -----------------------------------------------------------------------------

// ParseChartResponse validates a chart payload into a quote. The previous
// close falls back to chartPreviousClose and then to the price itself.
func ParseChartResponse(sym models.MSymbolConfig, data []byte) (models.MQuote, error) {
	var resp ChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.MQuote{}, helpers.NewProviderDataError("chart payload for %s: %v", sym.Symbol, err)
	}

	if resp.Chart.Error != nil {
		return models.MQuote{}, helpers.NewProviderDataError("chart error for %s: %s - %s",
			sym.Symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return models.MQuote{}, helpers.NewProviderDataError("no result in chart response for %s", sym.Symbol)
	}

	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || math.IsNaN(*meta.RegularMarketPrice) || math.IsInf(*meta.RegularMarketPrice, 0) {
		return models.MQuote{}, helpers.NewProviderDataError("no regularMarketPrice for %s", sym.Symbol)
	}

	price := *meta.RegularMarketPrice
	prevClose := core.ResolvePreviousClose(price, meta.PreviousClose, meta.ChartPreviousClose)
	change, percent := core.ChangeAndPercent(price, prevClose, meta.RegularMarketChange, meta.RegularMarketChangePercent)

	quote := models.NewQuote(sym, price, change, percent)
	if quote.Currency == "" {
		quote.Currency = meta.Currency
	}
	return quote, nil
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) String() string {
	return fmt.Sprintf("%s(%s)", SourceName, s.ChartURL)
}

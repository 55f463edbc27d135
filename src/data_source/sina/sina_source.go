package sina

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"startpage-sync/src/analysis/core"
	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

const (
	SourceName = "sina"
	referer    = "https://finance.sina.com.cn/"
)

// Field offsets inside the quoted, comma separated payload.
const (
	fieldOpen      = 1
	fieldPrevClose = 2
	fieldPrice     = 3
)

// SinaSource reads the domestic index from the hq text feed, one line of the
// form var hq_str_sh000001="name,open,prevClose,price,...";
type SinaSource struct {
	QuoteURL string // "{code}" is replaced by Code
	Code     string
	Network  interfaces.INetworkManager
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSinaSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *SinaSource {
	return &SinaSource{
		QuoteURL: cfg.Providers.DomesticQuoteURL,
		Code:     cfg.Market.DomesticCode,
		Network:  netMgr,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (s *SinaSource) Name() string {
	return SourceName
}

// -----------------------------------------------------------------------------

func (s *SinaSource) FetchQuote(ctx context.Context, sym models.MSymbolConfig) (models.MQuote, error) {
	endpoint := strings.ReplaceAll(s.QuoteURL, "{code}", s.Code)
	body, err := s.Network.Get(ctx, endpoint, nil, map[string]string{"Referer": referer})
	if err != nil {
		return models.MQuote{}, err
	}

	// The feed is GBK encoded; only the name field carries non-ASCII text.
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		decoded = body
	}

	quote, err := ParseQuoteLine(sym, string(decoded))
	if err != nil {
		s.Logger.Debug("Domestic line for %s rejected: %v", sym.Symbol, err)
		return models.MQuote{}, err
	}
	return quote, nil
}

// -----------------------------------------------------------------------------

// ParseQuoteLine extracts open, previous close and price at their fixed
// offsets. Open must be a finite number; price and previous close must be
// positive. A suspended or pre-open index reports zeros and is handed to the
// next provider.
func ParseQuoteLine(sym models.MSymbolConfig, line string) (models.MQuote, error) {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}

	start := strings.IndexByte(line, '"')
	end := strings.LastIndexByte(line, '"')
	if start < 0 || end <= start {
		return models.MQuote{}, helpers.NewProviderDataError("no quoted payload for %s", sym.Symbol)
	}

	fields := strings.Split(line[start+1:end], ",")
	if len(fields) <= fieldPrice {
		return models.MQuote{}, helpers.NewProviderDataError("short payload for %s: %d fields", sym.Symbol, len(fields))
	}

	open, err := parseField(fields, fieldOpen)
	if err != nil || open != core.Finite(open) {
		return models.MQuote{}, helpers.NewProviderDataError("open for %s: %q is not a finite number", sym.Symbol, fields[fieldOpen])
	}
	prevClose, err := parseField(fields, fieldPrevClose)
	if err != nil {
		return models.MQuote{}, helpers.NewProviderDataError("previous close for %s: %v", sym.Symbol, err)
	}
	price, err := parseField(fields, fieldPrice)
	if err != nil {
		return models.MQuote{}, helpers.NewProviderDataError("price for %s: %v", sym.Symbol, err)
	}

	price, prevClose = core.Finite(price), core.Finite(prevClose)
	if !(price > 0 && prevClose > 0) {
		return models.MQuote{}, helpers.NewProviderDataError("non-positive price %v or previous close %v for %s", price, prevClose, sym.Symbol)
	}

	change, percent := core.ChangeAndPercent(price, prevClose, nil, nil)
	return models.NewQuote(sym, price, change, percent), nil
}

// -----------------------------------------------------------------------------

func parseField(fields []string, idx int) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
}

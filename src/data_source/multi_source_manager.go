package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/utils"
)

// QuoteAggregator fans a symbol list out to per-symbol provider chains and
// fans the results back in, preserving order. A symbol whose chain fails is
// reported as an error quote, so FetchAll never fails as a whole.
type QuoteAggregator struct {
	Config    *models.MConfig
	Primary   interfaces.IQuoteSource // domestic index only
	Fallback  interfaces.IQuoteSource // every symbol
	Scheduler *utils.MarketScheduler
	Logger    *logger.Logger
	Now       func() time.Time

	runner    *utils.BatchRunner
	exchanger interfaces.IDataExchanger

	mu         sync.RWMutex
	latest     []models.MQuote
	latestAt   time.Time
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewQuoteAggregator(cfg *models.MConfig, primary, fallback interfaces.IQuoteSource, log *logger.Logger) *QuoteAggregator {
	return &QuoteAggregator{
		Config:    cfg,
		Primary:   primary,
		Fallback:  fallback,
		Scheduler: utils.NewMarketScheduler(cfg.Market.Symbols, log.Named("MarketScheduler")),
		Logger:    log,
		Now:       time.Now,
		runner:    utils.NewBatchRunner(utils.Unbounded),
	}
}

// -----------------------------------------------------------------------------

// SetExchanger registers the hub that receives refreshed snapshots.
func (a *QuoteAggregator) SetExchanger(ex interfaces.IDataExchanger) {
	a.mu.Lock()
	a.exchanger = ex
	a.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Symbols returns the configured symbols in display order.
func (a *QuoteAggregator) Symbols() []models.MSymbolConfig {
	return a.Config.Market.Symbols
}

// -----------------------------------------------------------------------------

// FetchAll returns one quote per input symbol at the same index.
func (a *QuoteAggregator) FetchAll(ctx context.Context, symbols []models.MSymbolConfig) []models.MQuote {
	quotes := make([]models.MQuote, len(symbols))

	errs := a.runner.Run(ctx, len(symbols), func(ctx context.Context, i int) error {
		q, source, err := utils.FirstSuccess(ctx, a.chainFor(symbols[i]))
		if err != nil {
			return err
		}
		a.Logger.Debug("Quote %s served by %s", symbols[i].Symbol, source)
		quotes[i] = q
		return nil
	})

	failed := 0
	for i, err := range errs {
		if err != nil {
			a.Logger.Warning("Quote %s failed: %v", symbols[i].Symbol, err)
			quotes[i] = models.NewErrorQuote(symbols[i])
			failed++
		}
	}

	if failed > 0 {
		a.Logger.Info("Fetched %d/%d quotes successfully", len(symbols)-failed, len(symbols))
	}
	return quotes
}

// -----------------------------------------------------------------------------

// chainFor orders the providers for one symbol. The domestic index tries the
// primary text feed first.
func (a *QuoteAggregator) chainFor(sym models.MSymbolConfig) []utils.Provider[models.MQuote] {
	chain := make([]utils.Provider[models.MQuote], 0, 2)
	if a.Primary != nil && sym.Symbol == a.Config.Market.DomesticSymbol {
		chain = append(chain, asProvider(a.Primary, sym))
	}
	if a.Fallback != nil {
		chain = append(chain, asProvider(a.Fallback, sym))
	}
	return chain
}

// -----------------------------------------------------------------------------

func asProvider(src interfaces.IQuoteSource, sym models.MSymbolConfig) utils.Provider[models.MQuote] {
	return utils.Provider[models.MQuote]{
		Name: src.Name(),
		Fetch: func(ctx context.Context) (models.MQuote, error) {
			return src.FetchQuote(ctx, sym)
		},
	}
}

// -----------------------------------------------------------------------------

// Refresh fetches every configured symbol, keeps the snapshot and pushes it
// to the hub.
func (a *QuoteAggregator) Refresh(ctx context.Context) []models.MQuote {
	quotes := a.FetchAll(ctx, a.Symbols())

	a.mu.Lock()
	a.latest = quotes
	a.latestAt = a.Now()
	ex := a.exchanger
	a.mu.Unlock()

	if ex != nil {
		ex.Broadcast(models.MHubMessage{
			Type:      models.MessageMarketUpdate,
			Quotes:    quotes,
			Timestamp: a.Now().UnixMilli(),
		})
	}
	return quotes
}

// -----------------------------------------------------------------------------

// Latest returns the last refreshed snapshot and when it was taken. The
// time is zero before the first refresh.
func (a *QuoteAggregator) Latest() ([]models.MQuote, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.latestAt
}

// -----------------------------------------------------------------------------

// Start launches the background refresher. It polls every refresh interval
// while at least one tracked market is open.
func (a *QuoteAggregator) Start(parentCtx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancelFunc != nil {
		return fmt.Errorf("quote aggregator is already running")
	}

	interval := time.Duration(a.Config.Market.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		return fmt.Errorf("invalid refresh interval: %v", interval)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	a.cancelFunc = cancel

	a.wg.Add(1)
	go a.runLoop(ctx, interval)
	a.Logger.Info("Started quote refresher (every %v)", interval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop cancels the refresher and waits for it to exit.
func (a *QuoteAggregator) Stop() error {
	a.mu.Lock()
	cancel := a.cancelFunc
	a.cancelFunc = nil
	a.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	a.wg.Wait()
	a.Logger.Info("Quote refresher stopped.")
	return nil
}

// -----------------------------------------------------------------------------

func (a *QuoteAggregator) runLoop(ctx context.Context, interval time.Duration) {
	defer a.wg.Done()

	a.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.Scheduler.AnyMarketOpen() {
				a.Logger.Debug("All markets are closed. Skipping refresh.")
				continue
			}
			a.Refresh(ctx)
		}
	}
}

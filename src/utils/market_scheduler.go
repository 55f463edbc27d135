package utils

import (
	"sync"
	"time"

	"startpage-sync/src/logger"
	"startpage-sync/src/models"
)

// MarketScheduler answers whether polling quotes is worthwhile right now.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	Now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []models.MSymbolConfig, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		Now:       time.Now,
	}
	ms.UpdateSymbols(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the symbol to calendar mapping.
func (ms *MarketScheduler) UpdateSymbols(symbols []models.MSymbolConfig) {
	calendars := make(map[string]*TradingCalendar, len(symbols))
	unique := make(map[string]bool)
	for _, sym := range symbols {
		cal := GetCalendar(sym.Symbol)
		calendars[sym.Symbol] = cal
		unique[cal.MIC] = true
	}

	ms.mu.Lock()
	ms.Calendars = calendars
	ms.mu.Unlock()

	ms.Logger.Info("MarketScheduler: Mapped %d symbols to %d unique calendars.", len(symbols), len(unique))
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := ms.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	checked := make(map[string]bool)
	for _, cal := range ms.Calendars {
		if checked[cal.MIC] {
			continue
		}
		checked[cal.MIC] = true
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}

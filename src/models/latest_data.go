package models

// -----------------------------------------------------------------------------
// Hub message types pushed to websocket clients
// -----------------------------------------------------------------------------

const (
	MessageInitial         = "INITIAL"
	MessageMarketUpdate    = "MARKET_UPDATE"
	MessageIconsSynced     = "ICONS_SYNCED"
	MessageWallpaperSynced = "WALLPAPER_SYNCED"
)

type MHubMessage struct {
	Type      string        `json:"type"`
	Quotes    []MQuote      `json:"quotes,omitempty"`
	Metrics   *MSyncMetrics `json:"metrics,omitempty"`
	Wallpaper *MWallpaper   `json:"wallpaper,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

// MSubscribeCommand narrows the market symbols a client receives. An empty
// Symbols list means all configured symbols.
type MSubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}

package models

import "time"

const WallpaperTypeBing = "bing"

// MWallpaper is an append-only cache entry. The current wallpaper of a type is
// the row with the greatest CreatedAt.
type MWallpaper struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// MWallpaperDescriptor is what an upstream wallpaper feed reports for today.
type MWallpaperDescriptor struct {
	Feed      string
	URL       string
	Title     string
	Copyright string
	StartDate string
}

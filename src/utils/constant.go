package utils

import "time"

// -----------------------------------------------------------------------------

// Bounds shared by the fetchers.
const (
	DefaultRequestTimeout = 5 * time.Second
	MetadataTimeout       = 5 * time.Second

	// MaxResponseBytes caps any single upstream body.
	MaxResponseBytes = 10 << 20

	// MaxScanBytes caps how much of a page the metadata scanner reads.
	MaxScanBytes = 1 << 20
)

// -----------------------------------------------------------------------------

// Sub-directories of the upload dir owned by the sync engine.
const (
	IconDirName      = "icons"
	WallpaperDirName = "wallpapers"
)

package models

import "time"

type MFontFamily struct {
	Family   string   `json:"family"`
	Category string   `json:"category"`
	Variants []string `json:"variants"`
}

type MFontCatalog struct {
	Families  []MFontFamily `json:"families"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

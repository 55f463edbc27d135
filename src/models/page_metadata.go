package models

type MPageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

package models

// MSyncMetrics summarises one batch icon sync.
type MSyncMetrics struct {
	Total           int     `json:"total"`
	Processed       int     `json:"processed"`
	Skipped         int     `json:"skipped"`
	Failed          int     `json:"failed"`
	DurationSeconds float64 `json:"duration_seconds"`
}

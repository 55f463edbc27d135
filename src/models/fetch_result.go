package models

// MFetchResult is a successful (2xx) upstream response.
type MFetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    string
}

package models

const (
	IconTypeAuto   = "auto"
	IconTypeUpload = "upload"
)

// MSite is the subset of a dashboard site row the sync engine reads and writes.
type MSite struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	URL           *string `json:"url"`
	IconType      *string `json:"iconType"`
	CustomIconURL *string `json:"customIconUrl"`
}

// -----------------------------------------------------------------------------

func (s MSite) RawURL() string {
	if s.URL == nil {
		return ""
	}
	return *s.URL
}

// -----------------------------------------------------------------------------

func (s MSite) Icon() string {
	if s.CustomIconURL == nil {
		return ""
	}
	return *s.CustomIconURL
}

// -----------------------------------------------------------------------------

// Kind returns the icon type, treating an absent value as "auto".
func (s MSite) Kind() string {
	if s.IconType == nil || *s.IconType == "" {
		return IconTypeAuto
	}
	return *s.IconType
}

package models

import "encoding/json"

// MLayoutSettings is the stored layout document. Only the background fields are
// interpreted here; every other key belongs to the UI and is carried through
// untouched in Extra.
type MLayoutSettings struct {
	BackgroundType        string
	BackgroundURL         string
	BackgroundFallbackURL string
	Extra                 map[string]json.RawMessage
}

const (
	layoutKeyBackgroundType     = "backgroundType"
	layoutKeyBackgroundURL      = "backgroundUrl"
	layoutKeyBackgroundFallback = "backgroundFallbackUrl"
)

// -----------------------------------------------------------------------------

func (l *MLayoutSettings) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	take := func(key string, dst *string) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		if string(v) == "null" {
			return nil
		}
		return json.Unmarshal(v, dst)
	}

	if err := take(layoutKeyBackgroundType, &l.BackgroundType); err != nil {
		return err
	}
	if err := take(layoutKeyBackgroundURL, &l.BackgroundURL); err != nil {
		return err
	}
	if err := take(layoutKeyBackgroundFallback, &l.BackgroundFallbackURL); err != nil {
		return err
	}
	l.Extra = raw
	return nil
}

// -----------------------------------------------------------------------------

func (l MLayoutSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Extra)+3)
	for k, v := range l.Extra {
		out[k] = v
	}
	out[layoutKeyBackgroundType] = l.BackgroundType
	if l.BackgroundURL != "" {
		out[layoutKeyBackgroundURL] = l.BackgroundURL
	}
	if l.BackgroundFallbackURL != "" {
		out[layoutKeyBackgroundFallback] = l.BackgroundFallbackURL
	}
	return json.Marshal(out)
}

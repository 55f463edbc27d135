package wallpaper

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/models"
)

// BingFeed reads today's image from an HPImageArchive endpoint.
type BingFeed struct {
	Feed    models.MWallpaperFeed
	Network interfaces.INetworkManager
}

type archiveResponse struct {
	Images []struct {
		StartDate string `json:"startdate"`
		URL       string `json:"url"`
		URLBase   string `json:"urlbase"`
		Copyright string `json:"copyright"`
		Title     string `json:"title"`
	} `json:"images"`
}

// -----------------------------------------------------------------------------

func (f *BingFeed) Descriptor(ctx context.Context) (models.MWallpaperDescriptor, error) {
	body, err := f.Network.Get(ctx, f.Feed.URL, nil, nil)
	if err != nil {
		return models.MWallpaperDescriptor{}, err
	}
	return ParseArchive(f.Feed, body)
}

// -----------------------------------------------------------------------------

// ParseArchive validates the first image of an archive payload and resolves
// its URL against the feed's base URL.
func ParseArchive(feed models.MWallpaperFeed, body []byte) (models.MWallpaperDescriptor, error) {
	var resp archiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.MWallpaperDescriptor{}, helpers.NewProviderDataError("%s archive: %v", feed.Name, err)
	}
	if len(resp.Images) == 0 {
		return models.MWallpaperDescriptor{}, helpers.NewProviderDataError("%s archive has no images", feed.Name)
	}

	img := resp.Images[0]
	raw := img.URL
	if raw == "" && img.URLBase != "" {
		raw = img.URLBase + "_1920x1080.jpg"
	}
	if raw == "" {
		return models.MWallpaperDescriptor{}, helpers.NewProviderDataError("%s archive image has no url", feed.Name)
	}

	abs, err := resolve(feed.BaseURL, raw)
	if err != nil {
		return models.MWallpaperDescriptor{}, helpers.NewProviderDataError("%s image url %q: %v", feed.Name, raw, err)
	}

	return models.MWallpaperDescriptor{
		Feed:      feed.Name,
		URL:       abs,
		Title:     strings.TrimSpace(img.Title),
		Copyright: strings.TrimSpace(img.Copyright),
		StartDate: img.StartDate,
	}, nil
}

// -----------------------------------------------------------------------------

func resolve(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if !r.IsAbs() {
		b, err := url.Parse(base)
		if err != nil {
			return "", err
		}
		r = b.ResolveReference(r)
	}
	if (r.Scheme != "http" && r.Scheme != "https") || r.Host == "" {
		return "", helpers.NewValidationError("not an http(s) url")
	}
	return r.String(), nil
}

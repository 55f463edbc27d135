package metadata

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"startpage-sync/src/helpers"
	"startpage-sync/src/interfaces"
	"startpage-sync/src/logger"
	"startpage-sync/src/models"
	"startpage-sync/src/utils"
)

// Scraper reads a page title and description for the "add site" form. It
// scans the token stream once and stops as soon as both are known.
type Scraper struct {
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Timeout time.Duration
}

// -----------------------------------------------------------------------------

func NewScraper(netMgr interfaces.INetworkManager, log *logger.Logger) *Scraper {
	return &Scraper{
		Network: netMgr,
		Logger:  log,
		Timeout: utils.MetadataTimeout,
	}
}

// -----------------------------------------------------------------------------

// NormalizeURL assumes https when the scheme is missing.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", helpers.NewValidationError("url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", helpers.NewValidationError("invalid url %q: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", helpers.NewValidationError("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", helpers.NewValidationError("url %q has no host", raw)
	}
	return u.String(), nil
}

// -----------------------------------------------------------------------------

// Fetch downloads one page. Non-2xx responses surface as UpstreamError with
// the upstream status; a page without title or description is not an error.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (models.MPageMetadata, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return models.MPageMetadata{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := s.Network.Fetch(ctx, target, nil, nil)
	if err != nil {
		s.Logger.Debug("Metadata fetch for %s failed: %v", target, err)
		return models.MPageMetadata{}, err
	}

	meta := s.Extract(res.Body, res.ContentType)
	s.Logger.Debug("Metadata for %s: title=%q", target, meta.Title)
	return meta, nil
}

// -----------------------------------------------------------------------------

// Extract scans at most utils.MaxScanBytes of body. The first <title> wins;
// a meta name=description wins over og:description and ends the meta search.
func (s *Scraper) Extract(body []byte, contentType string) models.MPageMetadata {
	var r io.Reader = io.LimitReader(bytes.NewReader(body), utils.MaxScanBytes)
	if decoded, err := charset.NewReader(r, contentType); err == nil {
		r = decoded
	}

	var (
		title, description, ogDescription string
		haveTitle, haveDescription        bool
		inTitle                           bool
		titleText                         strings.Builder
	)

	z := html.NewTokenizer(r)
	for !(haveTitle && haveDescription) {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.TextToken:
			if inTitle {
				titleText.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && atom.Lookup(name) == atom.Title {
				inTitle = false
				haveTitle = true
				title = titleText.String()
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				if !haveTitle && tt == html.StartTagToken {
					inTitle = true
				}
			case atom.Meta:
				if haveDescription || !hasAttr {
					continue
				}
				kind, content := metaAttrs(z)
				switch {
				case strings.EqualFold(kind.name, "description"):
					description = content
					haveDescription = true
				case strings.EqualFold(kind.property, "og:description") && ogDescription == "":
					ogDescription = content
				}
			}
		}
	}

	// Unterminated <title> at the end of the scanned prefix.
	if inTitle && !haveTitle {
		title = titleText.String()
	}
	if !haveDescription {
		description = ogDescription
	}

	return models.MPageMetadata{
		Title:       clean(title),
		Description: clean(description),
	}
}

// -----------------------------------------------------------------------------

type metaKind struct {
	name, property string
}

func metaAttrs(z *html.Tokenizer) (metaKind, string) {
	var (
		kind    metaKind
		content string
	)
	for {
		key, val, more := z.TagAttr()
		switch strings.ToLower(string(key)) {
		case "name":
			kind.name = string(val)
		case "property":
			kind.property = string(val)
		case "content":
			content = string(val)
		}
		if !more {
			return kind, content
		}
	}
}

// -----------------------------------------------------------------------------

// clean trims and collapses runs of whitespace. The tokenizer has already
// decoded entities in title text and attribute values.
func clean(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

package interfaces

import (
	"context"

	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------
// INetworkManager is the bounded-timeout resource fetcher shared by every
// synchronisation component. It never retries.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// Fetch performs a GET and returns the body of a 2xx response. Transport
	// failures yield a NetworkError, other statuses an UpstreamError.
	Fetch(ctx context.Context, url string, params map[string]string, headers map[string]string) (*models.MFetchResult, error)

	// -----------------------------------------------------------------------------

	// Get is Fetch returning only the body.
	Get(ctx context.Context, url string, params map[string]string, headers map[string]string) ([]byte, error)
}

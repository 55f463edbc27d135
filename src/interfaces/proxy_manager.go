package interfaces

// -----------------------------------------------------------------------------
// IProxyManager supplies the outbound proxy and user agent for requests.
// -----------------------------------------------------------------------------

type IProxyManager interface {

	// GetCurrentProxy returns the configured proxy URL (or empty if none).
	GetCurrentProxy() (string, error)

	// -----------------------------------------------------------------------------

	// RotateProxy switches to the next configured proxy.
	RotateProxy()

	// -----------------------------------------------------------------------------

	// HasProxies returns true if there are proxies configured.
	HasProxies() bool

	// -----------------------------------------------------------------------------

	// GetUserAgent returns a browser-like User-Agent string.
	GetUserAgent() string
}

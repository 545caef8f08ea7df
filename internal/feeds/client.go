package feeds

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// Doer is the slice of http.Client the fetchers need. Tests substitute a
// plain client because the guarded one refuses loopback addresses.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewSafeClient returns an HTTP client that refuses requests to private,
// loopback and link-local destinations. Feed URLs come from a user-editable
// catalog, so every fetch goes through the guard. safeurl validates the
// resolved IP in the dialer, which also covers DNS rebinding.
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

package utils

import "net/http"

const (
	UserAgent = "MediaSpyy/1.0 <github.com/marcus-crane/mediaspyy>"
)

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", UserAgent)
	rt := uart.RT
	if rt == nil {
		// Looked up per request so anything swapping the default transport (gock) still applies
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

// NewHTTPClient has no timeout, callers bound requests with their context
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &UARoundtripper{},
	}
}

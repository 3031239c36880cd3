package oddsapi

import "net/http"

// apiKeyTransport injects the API key query parameter and User-Agent on
// every outgoing request so callers never handle the credential directly.
type apiKeyTransport struct {
	key   string
	agent string
	base  http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	q := req.URL.Query()
	q.Set("apiKey", t.key)
	req.URL.RawQuery = q.Encode()
	if t.agent != "" {
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}

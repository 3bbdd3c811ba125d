package app

import (
	"net"
	"net/http"
	"time"
)

// newLLMHTTPClient returns the HTTP client used for model calls. Requests
// are issued one at a time so a small idle pool is enough. The client
// timeout sits above the per-call LLM timeout so that the latter, which is
// reported as its own error kind, fires first.
func newLLMHTTPClient(callTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if callTimeout <= 0 {
		callTimeout = DefaultLLMTimeout
	}
	return &http.Client{
		Transport: transport,
		Timeout:   callTimeout + 30*time.Second,
	}
}

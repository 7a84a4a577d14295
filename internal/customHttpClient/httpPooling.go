// Package customHttpClient provides the pooled HTTP transport every
// REST-based model provider client shares, so repeated embedding/
// generation calls reuse TCP connections instead of paying a fresh
// handshake per request.
package customHttpClient

import (
	"net/http"

	"github.com/onboardrag/core/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// Client is the shared *http.Client every provider adapter passes to
// its SDK constructor instead of letting each build its own.
var Client = &http.Client{Transport: customTransport}

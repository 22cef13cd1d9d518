package trialkit

import (
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

const (
	// datastarAcceptHeader marks requests expecting Server-Sent Events.
	datastarAcceptHeader = "text/event-stream"

	// datastarQueryParam carries datastar signals on GET requests.
	datastarQueryParam = "datastar"
)

// IsDataStar reports whether the request came from the datastar
// front-end and should be answered with SSE signal patches instead of
// a conventional response.
func IsDataStar(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), datastarAcceptHeader) {
		return true
	}
	if r.URL.Query().Has(datastarQueryParam) {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/x-datastar")
}

// NewDataStarSSE opens a Server-Sent Event generator for streaming
// datastar patches to the client.
func NewDataStarSSE(w http.ResponseWriter, r *http.Request) *datastar.ServerSentEventGenerator {
	return datastar.NewSSE(w, r)
}

// DataStarRedirect redirects datastar requests through an SSE event and
// everything else with a standard HTTP redirect.
func DataStarRedirect(w http.ResponseWriter, r *http.Request, url string, code int) error {
	if IsDataStar(r) {
		sse := datastar.NewSSE(w, r)
		return sse.Redirect(url)
	}
	http.Redirect(w, r, url, code)
	return nil
}

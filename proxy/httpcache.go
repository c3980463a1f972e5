package proxy

import (
	"net/http"
	"time"

	"github.com/AdguardTeam/advtblock/rules"
)

// suppressCachePeriod is the period since the startup during which the HTTP
// cache of documents is suppressed, so that the pages cached before the start
// get the cosmetic resources injected.
const suppressCachePeriod = 1 * time.Minute

// shouldSuppressCache checks if the HTTP cache should be suppressed for the
// request of session.
func (s *Server) shouldSuppressCache(session *Session) (ok bool) {
	if time.Since(s.createdAt) > suppressCachePeriod {
		return false
	}

	switch session.Request.RequestType {
	case
		rules.TypeImage,
		rules.TypeFont,
		rules.TypeScript,
		rules.TypeStylesheet,
		rules.TypeMedia:
		return false
	default:
		return true
	}
}

// suppressCache removes the conditional request headers from r.
func suppressCache(r *http.Request) {
	// Last modified time based caching.
	r.Header.Del("If-Modified-Since")
	r.Header.Del("If-Unmodified-Since")

	// ETag based caching.
	r.Header.Del("If-None-Match")
	r.Header.Del("If-Match")
	r.Header.Del("If-Range")
}

package proxy

import (
	"net/http"

	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// onRequest handles the outgoing HTTP requests.
func (s *Server) onRequest(sess *gomitmproxy.Session) (req *http.Request, res *http.Response) {
	r := sess.Request()
	if r.Method == http.MethodConnect {
		return nil, nil
	}

	session := NewSession(sess.ID(), r)
	sess.SetProp(sessionPropKey, session)

	res = s.handleRequest(session)
	if res != nil {
		// Don't modify the blocked requests in onResponse.
		sess.SetProp(requestBlockedKey, true)
	}

	return r, res
}

// handleRequest filters the request of session.  res is not nil if the request
// is blocked.
func (s *Server) handleRequest(session *Session) (res *http.Response) {
	if s.match(session) {
		return newBlockedResponse(s.logger, session)
	}

	if s.shouldSuppressCache(session) {
		suppressCache(session.HTTPRequest)
	}

	return nil
}

// onResponse handles all the responses.
func (s *Server) onResponse(sess *gomitmproxy.Session) (res *http.Response) {
	if _, ok := sess.GetProp(requestBlockedKey); ok {
		return nil
	}

	v, ok := sess.GetProp(sessionPropKey)
	if !ok {
		s.logger.Error("session not found", "id", sess.ID())

		return nil
	}

	session, ok := v.(*Session)
	if !ok {
		s.logger.Error("session has wrong type", "id", sess.ID(), "type", v)

		return nil
	}

	session.SetResponse(sess.Response())

	return s.handleResponse(session)
}

// handleResponse filters the response of session.  res is nil if the original
// response must be passed as is.
func (s *Server) handleResponse(session *Session) (res *http.Response) {
	// The request type may have changed after the response headers are known.
	if s.match(session) {
		return newBlockedResponse(s.logger, session)
	}

	if session.Request.RequestType != rules.TypeDocument || session.MediaType != "text/html" {
		return nil
	}

	err := s.filterHTML(session)
	if err != nil {
		s.logger.Error(
			"filtering html",
			"id", session.ID,
			"url", session.Request.URL,
			slogutil.KeyError, err,
		)

		return proxyutil.NewErrorResponse(session.HTTPRequest, err)
	}

	return session.HTTPResponse
}

// match matches the session request against the instance rules and saves the
// result into session.  It returns true if the request must be blocked.
func (s *Server) match(session *Session) (blocked bool) {
	rule, blocked, err := s.registry.MatchRequest(s.instance, session.Request)
	if err != nil {
		s.logger.Error("matching request", "id", session.ID, slogutil.KeyError, err)

		return false
	}

	session.Rule = rule
	if blocked {
		s.logger.Debug(
			"request blocked",
			"id", session.ID,
			"rule", rule.Text(),
			"url", session.Request.URL,
		)
	}

	return blocked
}

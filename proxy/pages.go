package proxy

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// blockedPageTmpl is the template of the page returned for blocked requests.
var blockedPageTmpl = template.Must(template.New("blocked").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Request blocked</title>
</head>
<body>
<h1>Request to {{.Hostname}} is blocked</h1>
<p>Blocked by the rule: <code>{{.RuleText}}</code></p>
</body>
</html>
`))

// blockedPageParameters are the parameters of [blockedPageTmpl].
type blockedPageParameters struct {
	Hostname string
	RuleText string
}

// buildBlockedPage builds the blocked page content for session.  session.Rule
// must not be nil.
func buildBlockedPage(session *Session) (page []byte, err error) {
	params := blockedPageParameters{
		Hostname: session.Request.Hostname,
		RuleText: session.Rule.Text(),
	}

	buf := &bytes.Buffer{}
	err = blockedPageTmpl.Execute(buf, params)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// newBlockedResponse creates an HTTP response for the blocked request of
// session.
func newBlockedResponse(l *slog.Logger, session *Session) (res *http.Response) {
	page, err := buildBlockedPage(session)
	if err != nil {
		l.Error("building blocked page", "id", session.ID, slogutil.KeyError, err)

		return proxyutil.NewErrorResponse(session.HTTPRequest, err)
	}

	res = proxyutil.NewResponse(http.StatusForbidden, bytes.NewReader(page), session.HTTPRequest)
	res.Close = true
	res.ContentLength = int64(len(page))
	res.Header.Set("Content-Type", "text/html; charset=utf-8")

	return res
}

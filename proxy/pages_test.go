package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdguardTeam/advtblock/rules"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockedResponse(t *testing.T) {
	f, err := rules.NewNetworkRule("||example.org^$script", 1)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "https://example.org/app.js", nil)
	s := &Session{
		Request:     rules.NewRequest("https://example.org/", "", rules.TypeScript),
		HTTPRequest: req,
		Rule:        f,
		ID:          "1",
	}

	res := newBlockedResponse(slogutil.NewDiscardLogger(), s)
	require.NotNil(t, res)

	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "Request to example.org is blocked")
	assert.Contains(t, string(body), "||example.org^$script")
	assert.EqualValues(t, len(body), res.ContentLength)
}

package proxy

import (
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
)

// isSupportedEncoding returns true if the response body with the content
// encoding enc can be decoded by [readBody].
func isSupportedEncoding(enc string) (ok bool) {
	switch strings.ToLower(enc) {
	case "", "identity", "gzip", "deflate":
		return true
	default:
		return false
	}
}

// readBody reads and closes the decoded body of res.
func readBody(res *http.Response) (body []byte, err error) {
	defer func() { err = errors.WithDeferred(err, res.Body.Close()) }()

	var r io.Reader = res.Body
	switch enc := strings.ToLower(res.Header.Get("Content-Encoding")); enc {
	case "gzip":
		var gr *gzip.Reader
		gr, err = gzip.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding gzip: %w", err)
		}

		r = gr
	case "deflate":
		var zr io.ReadCloser
		zr, err = zlib.NewReader(res.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding deflate: %w", err)
		}

		r = zr
	}

	body, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return body, nil
}

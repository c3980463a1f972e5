package proxy

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AdguardTeam/advtblock"
)

// filterHTML injects the cosmetic resources of the page into the HTML document
// of session.  The response is left as is if there is nothing to inject or the
// document can't be modified.
func (s *Server) filterHTML(session *Session) (err error) {
	res := session.HTTPResponse
	if !isSupportedEncoding(res.Header.Get("Content-Encoding")) {
		s.logger.Debug("unsupported content encoding", "id", session.ID)

		return nil
	}

	cosm, err := s.registry.CosmeticResources(s.instance, session.Request.URL)
	if err != nil {
		return fmt.Errorf("getting cosmetic resources: %w", err)
	}

	code := buildInjection(cosm)
	if code == "" {
		return nil
	}

	encoded, err := encodeCharset(session.Charset, code)
	if err != nil {
		s.logger.Debug("skipping injection", "id", session.ID, "charset", session.Charset)

		return nil
	}

	body, err := readBody(res)
	if err != nil {
		return err
	}

	modified, ok := injectHTML(body, encoded)
	if !ok {
		s.logger.Debug("no injection point", "id", session.ID, "url", session.Request.URL)
		modified = body
	}

	res.Body = io.NopCloser(bytes.NewReader(modified))
	res.ContentLength = int64(len(modified))
	res.Header.Del("Content-Encoding")
	res.Header.Set("Content-Length", strconv.Itoa(len(modified)))

	return nil
}

// buildInjection returns the HTML code with the <style> and the <script>
// elements for res.  It returns an empty string if there is nothing to inject.
func buildInjection(res *advtblock.CosmeticResources) (code string) {
	b := &strings.Builder{}

	css := advtblock.SelectorsToStylesheet(res)
	if css != "" {
		b.WriteString("<style type=\"text/css\">\n")
		b.WriteString(escapeClosingTags(css))
		b.WriteString("</style>\n")
	}

	if res.InjectedScript != "" {
		b.WriteString("<script type=\"text/javascript\">\n")
		b.WriteString(escapeClosingTags(res.InjectedScript))
		b.WriteString("\n</script>\n")
	}

	return b.String()
}

// injectHTML inserts code into the document body before the closing head tag
// or, if there is none, right after the opening body tag.  ok is false if
// neither is found.
func injectHTML(doc, code []byte) (modified []byte, ok bool) {
	idx := indexFoldASCII(doc, "</head>")
	if idx < 0 {
		idx = indexFoldASCII(doc, "<body")
		if idx < 0 {
			return nil, false
		}

		end := bytes.IndexByte(doc[idx:], '>')
		if end < 0 {
			return nil, false
		}

		idx += end + 1
	}

	modified = make([]byte, 0, len(doc)+len(code))
	modified = append(modified, doc[:idx]...)
	modified = append(modified, code...)
	modified = append(modified, doc[idx:]...)

	return modified, true
}

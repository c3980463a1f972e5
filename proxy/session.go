package proxy

import (
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/AdguardTeam/advtblock/rules"
)

// Session contains all the necessary data to filter requests and responses.
// Throughout the HTTP request lifetime, session data is updated with new
// information.
//
// There are two main stages of the HTTP request lifetime:
//
//  1. The HTTP request headers are received.  The request type is assumed by
//     the URL and the "Accept" header, and the request is blocked if the
//     rules say so.
//
//  2. The HTTP response headers are received.  The request type is known for
//     sure from the "Content-Type" header, so the request is matched again.
//     Then the response is either blocked, or it's an HTML document and the
//     cosmetic resources are injected into it, or it's passed as is.
type Session struct {
	// Request is the data of the request being filtered.
	Request *rules.Request

	// HTTPRequest is the original HTTP request.
	HTTPRequest *http.Request

	// HTTPResponse is the HTTP response.  It is nil until the response
	// headers are received.
	HTTPResponse *http.Response

	// Rule is the network rule that defined the last matching result, if
	// any.
	Rule *rules.NetworkRule

	// ID is the session identifier.
	ID string

	// MediaType is the media type of the response.
	MediaType string

	// Charset is the response charset, if it's present in the content type.
	Charset string
}

// NewSession creates a new session for the HTTP request.
func NewSession(id string, req *http.Request) (s *Session) {
	return &Session{
		ID:          id,
		Request:     rules.NewRequest(req.URL.String(), req.Referer(), assumeRequestType(req, nil)),
		HTTPRequest: req,
	}
}

// SetResponse sets the response of this session.  It can also change the
// request type.
func (s *Session) SetResponse(res *http.Response) {
	s.HTTPResponse = res
	s.Request.RequestType = assumeRequestType(s.HTTPRequest, res)

	mediaType, params, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))
	s.MediaType = mediaType
	s.Charset = params["charset"]
}

// assumeRequestType assumes the request type from what is known at this point.
// res is nil if the response is not received yet.
func assumeRequestType(req *http.Request, res *http.Response) (t rules.RequestType) {
	if res != nil {
		mediaType, _, _ := mime.ParseMediaType(res.Header.Get("Content-Type"))

		return assumeRequestTypeFromMediaType(mediaType)
	}

	t = assumeRequestTypeFromMediaType(req.Header.Get("Accept"))
	if t == rules.TypeOther {
		t = assumeRequestTypeFromURL(req.URL)
	}

	return t
}

// mediaTypePrefixes maps the media type prefixes to request types.  The order
// matters, as the "Accept" header may list several types.
var mediaTypePrefixes = []struct {
	prefix string
	typ    rules.RequestType
}{
	{prefix: "application/xhtml", typ: rules.TypeDocument},
	// m3u playlists may contain references to video ads, so they are filtered
	// like documents.
	{prefix: "audio/x-mpegurl", typ: rules.TypeDocument},
	{prefix: "text/html", typ: rules.TypeDocument},
	{prefix: "text/css", typ: rules.TypeStylesheet},
	{prefix: "application/javascript", typ: rules.TypeScript},
	{prefix: "application/x-javascript", typ: rules.TypeScript},
	{prefix: "text/javascript", typ: rules.TypeScript},
	{prefix: "image/", typ: rules.TypeImage},
	{prefix: "application/x-shockwave-flash", typ: rules.TypeObject},
	{prefix: "application/font", typ: rules.TypeFont},
	{prefix: "application/vnd.ms-fontobject", typ: rules.TypeFont},
	{prefix: "application/x-font-", typ: rules.TypeFont},
	{prefix: "font/", typ: rules.TypeFont},
	{prefix: "audio/", typ: rules.TypeMedia},
	{prefix: "video/", typ: rules.TypeMedia},
	{prefix: "application/json", typ: rules.TypeXmlhttprequest},
}

// assumeRequestTypeFromMediaType tries to detect the request type from the
// media type.
func assumeRequestTypeFromMediaType(mediaType string) (t rules.RequestType) {
	mediaType = strings.ToLower(mediaType)
	for _, p := range mediaTypePrefixes {
		if strings.HasPrefix(mediaType, p.prefix) {
			return p.typ
		}
	}

	return rules.TypeOther
}

// fileExtensions maps the URL path extensions to request types.
var fileExtensions = map[string]rules.RequestType{
	".js":     rules.TypeScript,
	".mjs":    rules.TypeScript,
	".vbs":    rules.TypeScript,
	".coffee": rules.TypeScript,

	".jpg":  rules.TypeImage,
	".jpeg": rules.TypeImage,
	".gif":  rules.TypeImage,
	".png":  rules.TypeImage,
	".webp": rules.TypeImage,
	".svg":  rules.TypeImage,
	".tiff": rules.TypeImage,
	".psd":  rules.TypeImage,
	".ico":  rules.TypeImage,

	".css":  rules.TypeStylesheet,
	".less": rules.TypeStylesheet,

	".jar": rules.TypeObject,
	".swf": rules.TypeObject,

	".wav":   rules.TypeMedia,
	".mp3":   rules.TypeMedia,
	".mp4":   rules.TypeMedia,
	".avi":   rules.TypeMedia,
	".flv":   rules.TypeMedia,
	".m3u":   rules.TypeMedia,
	".webm":  rules.TypeMedia,
	".mpeg":  rules.TypeMedia,
	".3gp":   rules.TypeMedia,
	".3g2":   rules.TypeMedia,
	".3gpp":  rules.TypeMedia,
	".3gpp2": rules.TypeMedia,
	".ogg":   rules.TypeMedia,
	".mov":   rules.TypeMedia,
	".qt":    rules.TypeMedia,
	".vbm":   rules.TypeMedia,
	".mkv":   rules.TypeMedia,
	".gifv":  rules.TypeMedia,

	".ttf":   rules.TypeFont,
	".otf":   rules.TypeFont,
	".woff":  rules.TypeFont,
	".woff2": rules.TypeFont,
	".eot":   rules.TypeFont,

	".json": rules.TypeXmlhttprequest,
}

// assumeRequestTypeFromURL assumes the request type from the file extension.
func assumeRequestTypeFromURL(u *url.URL) (t rules.RequestType) {
	t, ok := fileExtensions[strings.ToLower(path.Ext(u.Path))]
	if !ok {
		return rules.TypeOther
	}

	return t
}

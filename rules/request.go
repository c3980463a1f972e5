package rules

import (
	"strings"

	"github.com/AdguardTeam/advtblock/internal/ufnet"
)

// maxURLLength limits the URL length by 4 KiB.  It appears that there can be
// URLs longer than a megabyte, and it makes no sense to go through the whole
// URL.
const maxURLLength = 4 * 1024

// RequestType is the request types enumeration.
type RequestType uint32

const (
	// TypeDocument (main frame)
	TypeDocument RequestType = 1 << iota
	// TypeSubdocument (iframe) $subdocument
	TypeSubdocument
	// TypeScript (javascript, etc) $script
	TypeScript
	// TypeStylesheet (css) $stylesheet
	TypeStylesheet
	// TypeObject (flash, etc) $object
	TypeObject
	// TypeImage (any image) $image
	TypeImage
	// TypeXmlhttprequest (ajax/fetch) $xmlhttprequest
	TypeXmlhttprequest
	// TypeMedia (video/music) $media
	TypeMedia
	// TypeFont (any custom font) $font
	TypeFont
	// TypeWebsocket (a websocket connection) $websocket
	TypeWebsocket
	// TypePing (navigator.sendBeacon() or ping attribute on links) $ping
	TypePing
	// TypeOther - any other request type
	TypeOther
)

// requestTypeNames maps the names used both in rule modifiers and in
// [ParseRequestType] to request types.
var requestTypeNames = map[string]RequestType{
	"document":       TypeDocument,
	"doc":            TypeDocument,
	"main_frame":     TypeDocument,
	"subdocument":    TypeSubdocument,
	"frame":          TypeSubdocument,
	"sub_frame":      TypeSubdocument,
	"script":         TypeScript,
	"stylesheet":     TypeStylesheet,
	"css":            TypeStylesheet,
	"object":         TypeObject,
	"image":          TypeImage,
	"xmlhttprequest": TypeXmlhttprequest,
	"xhr":            TypeXmlhttprequest,
	"fetch":          TypeXmlhttprequest,
	"media":          TypeMedia,
	"font":           TypeFont,
	"websocket":      TypeWebsocket,
	"ping":           TypePing,
	"beacon":         TypePing,
	"other":          TypeOther,
}

// ParseRequestType returns the request type with the given name.  Names are
// case-insensitive.  Empty and unknown names are parsed as [TypeOther].
func ParseRequestType(name string) (t RequestType) {
	t, ok := requestTypeNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TypeOther
	}

	return t
}

// Request represents a web filtering request with all it's necessary
// properties.
type Request struct {
	// URL is the full request URL.
	URL string

	// URLLowerCase is the full request URL in lower case.
	URLLowerCase string

	// Hostname is the lower-cased hostname of the request.  It is empty if
	// the URL has no hostname.
	Hostname string

	// Domain is the effective top-level domain of the request with an
	// additional label.
	Domain string

	// SourceURL is the full URL of the source.
	SourceURL string

	// SourceHostname is the lower-cased hostname of the source.
	SourceHostname string

	// SourceDomain is the effective top-level domain of the source with an
	// additional label.
	SourceDomain string

	// hostBounds are the bounds of the hostname inside of URL.
	hostBounds hostnameBounds

	// hostBoundsLower are the bounds of the hostname inside of URLLowerCase.
	hostBoundsLower hostnameBounds

	// RequestType is the type of the filtering request.
	RequestType RequestType

	// ThirdParty is true if the request domain differs from the source
	// domain.  It is only meaningful when both hostnames are known.
	ThirdParty bool
}

// hostnameBounds are the positions of a hostname inside of a URL.
type hostnameBounds struct {
	start int
	end   int
	ok    bool
}

// newHostnameBounds returns the bounds of the hostname in url.
func newHostnameBounds(url string) (b hostnameBounds) {
	b.start, b.end, b.ok = ufnet.HostnameBounds(url)

	return b
}

// NewRequest creates a new instance of "Request" and populates it's fields.
func NewRequest(url, sourceURL string, requestType RequestType) (r *Request) {
	if len(url) > maxURLLength {
		url = url[:maxURLLength]
	}
	if len(sourceURL) > maxURLLength {
		sourceURL = sourceURL[:maxURLLength]
	}

	if requestType == 0 {
		requestType = TypeOther
	}

	r = &Request{
		RequestType: requestType,

		URL:          url,
		URLLowerCase: strings.ToLower(url),

		SourceURL:      sourceURL,
		SourceHostname: strings.ToLower(ufnet.ExtractHostname(sourceURL)),
	}

	r.hostBounds = newHostnameBounds(r.URL)
	r.hostBoundsLower = newHostnameBounds(r.URLLowerCase)
	if b := r.hostBoundsLower; b.ok {
		r.Hostname = r.URLLowerCase[b.start:b.end]
		r.Domain = ufnet.RegistrableDomain(r.Hostname)
	}

	if r.SourceHostname != "" {
		r.SourceDomain = ufnet.RegistrableDomain(r.SourceHostname)
	}

	r.ThirdParty = r.Domain != "" && r.SourceDomain != "" && r.SourceDomain != r.Domain

	return r
}

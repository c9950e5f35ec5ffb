package interceptor

import (
	"net/http"
	"strings"
)

// Negotiate pins Accept and Content-Type to the API's versioned media type.
type Negotiate struct {
	mediaType string
}

// NewNegotiate returns a Negotiate filter; an empty mediaType means MediaTypeJSON.
func NewNegotiate(mediaType string) *Negotiate {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = MediaTypeJSON
	}
	return &Negotiate{mediaType: mediaType}
}

// FilterRequest implements RequestFilter. Values set earlier are overwritten;
// call-scoped media types from the request context are appended to Accept.
func (n *Negotiate) FilterRequest(req *http.Request) {
	req.Header.Set(HeaderAccept, n.mediaType)
	req.Header.Set(HeaderContentType, n.mediaType)
	for _, t := range MediaTypesFrom(req.Context()) {
		req.Header.Add(HeaderAccept, t)
	}
}

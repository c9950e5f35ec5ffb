package interceptor

import (
	"context"
	"regexp"
	"strings"
)

// Header names stamped or inspected by the chain.
const (
	HeaderAuthorization = "Authorization"
	HeaderOTP           = "X-GitHub-OTP"
	HeaderUserAgent     = "User-Agent"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderLink          = "Link"
	HeaderContentLength = "Content-Length"
)

// Media types understood by the API.
const (
	MediaTypeJSON = "application/vnd.github.v3+json"
	MediaTypeRaw  = "application/vnd.github.v3.raw"
	MediaTypeHTML = "application/vnd.github.html"

	DefaultUserAgent = "octo-harvester/1.0"
)

// bypassMedia matches raw and HTML renditions, versioned or not.
var bypassMedia = regexp.MustCompile(`application/vnd\.github(\.v\d+)?\.(raw|html)\b`)

// IsBypassMedia reports whether an Accept value asks for a rendition that must
// not be reshaped into JSON.
func IsBypassMedia(value string) bool {
	return bypassMedia.MatchString(strings.ToLower(value))
}

type mediaKey struct{}

// WithMediaTypes attaches call-scoped media types. The negotiator appends them
// to Accept after stamping the default type.
func WithMediaTypes(ctx context.Context, types ...string) context.Context {
	if len(types) == 0 {
		return ctx
	}
	existing := MediaTypesFrom(ctx)
	merged := make([]string, 0, len(existing)+len(types))
	merged = append(merged, existing...)
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			merged = append(merged, t)
		}
	}
	return context.WithValue(ctx, mediaKey{}, merged)
}

// MediaTypesFrom returns the call-scoped media types carried by ctx.
func MediaTypesFrom(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	types, _ := ctx.Value(mediaKey{}).([]string)
	return types
}

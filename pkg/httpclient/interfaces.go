package httpclient

import (
	"context"
	"net/http"
)

// Response is a minimal HTTP response contract. Body is the post-pipeline body.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Client abstracts API calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, call Call) (Response, error)
	Get(ctx context.Context, path string, opts ...CallOption) (Response, error)
}

// Call describes one API request.
type Call struct {
	Method string
	// Path is resolved against the client's base URL unless absolute.
	Path  string
	Query map[string]string
	// Body, when set, is encoded as JSON.
	Body any
	// MediaTypes are appended to Accept after the default media type; a raw
	// or HTML rendition here disables pagination rewriting for the call.
	MediaTypes []string
}

// CallOption customizes a Call built by Get.
type CallOption func(*Call)

// WithQuery adds a query parameter.
func WithQuery(key, value string) CallOption {
	return func(c *Call) {
		if c.Query == nil {
			c.Query = make(map[string]string)
		}
		c.Query[key] = value
	}
}

// WithMediaTypes declares call-scoped media types.
func WithMediaTypes(types ...string) CallOption {
	return func(c *Call) {
		c.MediaTypes = append(c.MediaTypes, types...)
	}
}

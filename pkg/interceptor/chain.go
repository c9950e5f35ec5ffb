package interceptor

import (
	"fmt"
	"net/http"
)

// RequestFilter stamps headers on an outgoing request.
type RequestFilter interface {
	FilterRequest(req *http.Request)
}

// ResponseFilter inspects a completed exchange and may replace the response.
type ResponseFilter interface {
	FilterResponse(req *http.Request, resp *http.Response) (*http.Response, error)
}

// Chain is an http.RoundTripper that runs request filters in order, executes
// the wrapped transport, then runs response filters in order.
type Chain struct {
	base     http.RoundTripper
	request  []RequestFilter
	response []ResponseFilter
}

// NewChain wraps base (http.DefaultTransport when nil) with the given filters.
func NewChain(base http.RoundTripper, request []RequestFilter, response []ResponseFilter) *Chain {
	if base == nil {
		base = http.DefaultTransport
	}
	c := &Chain{base: base}
	for _, f := range request {
		if f != nil {
			c.request = append(c.request, f)
		}
	}
	for _, f := range response {
		if f != nil {
			c.response = append(c.response, f)
		}
	}
	return c
}

// Options configures the default filter set.
type Options struct {
	// APIHost restricts credentials to one host; see Auth.ForHost.
	APIHost         string
	UserAgent       string
	MediaType       string
	ObjectKeyPrefix string
	Logger          Logger
}

// Default builds the standard chain: Auth, Negotiate, then Paginate.
func Default(base http.RoundTripper, creds *Credentials, opts Options) *Chain {
	return NewChain(base,
		[]RequestFilter{
			NewAuth(creds, opts.UserAgent).ForHost(opts.APIHost),
			NewNegotiate(opts.MediaType),
		},
		[]ResponseFilter{
			NewPaginate(PaginateOptions{ObjectKeyPrefix: opts.ObjectKeyPrefix, Logger: opts.Logger}),
		},
	)
}

// RoundTrip implements http.RoundTripper.
func (c *Chain) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	out := req.Clone(req.Context())
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	for _, f := range c.request {
		f.FilterRequest(out)
	}

	resp, err := c.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	for _, f := range c.response {
		next, err := f.FilterResponse(out, resp)
		if err != nil {
			if resp.Body != nil {
				resp.Body.Close()
			}
			return nil, err
		}
		resp = next
	}
	return resp, nil
}

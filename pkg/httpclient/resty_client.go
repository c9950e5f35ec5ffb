package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/octo-harvester/pkg/converter"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

const defaultTimeout = 30 * time.Second

// Options configures a RestyClient.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	Credentials     *interceptor.Credentials
	UserAgent       string
	MediaType       string
	ObjectKeyPrefix string
	// Transport executes the requests under the interceptor chain. Defaults
	// to a clone of http.DefaultTransport.
	Transport http.RoundTripper
	Logger    interceptor.Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface, with the
// interceptor chain installed as its transport.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a RestyClient for the API described by opts.
func NewRestyClient(opts Options) *RestyClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")

	c := newRestyBaseClient(opts.Timeout)
	c.SetTransport(interceptor.Default(base, opts.Credentials, interceptor.Options{
		APIHost:         apiHost(baseURL),
		UserAgent:       opts.UserAgent,
		MediaType:       opts.MediaType,
		ObjectKeyPrefix: opts.ObjectKeyPrefix,
		Logger:          opts.Logger,
	}))
	if baseURL != "" {
		c.SetBaseURL(baseURL)
	}
	return &RestyClient{client: c}
}

// apiHost is the host credentials are bound to. Without a base URL every
// request is stamped.
func apiHost(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// NewRestyHTTPClient exposes a plain resty.Client for callers that talk to
// endpoints other than the API (webhook sinks and the like).
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Get performs a GET for path.
func (r *RestyClient) Get(ctx context.Context, path string, opts ...CallOption) (Response, error) {
	call := Call{Method: http.MethodGet, Path: path}
	for _, opt := range opts {
		if opt != nil {
			opt(&call)
		}
	}
	return r.Do(ctx, call)
}

// Do executes call through the interceptor chain.
func (r *RestyClient) Do(ctx context.Context, call Call) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := r.client.R().SetContext(interceptor.WithMediaTypes(ctx, call.MediaTypes...))
	if len(call.Query) > 0 {
		req.SetQueryParams(call.Query)
	}
	if call.Body != nil {
		payload, err := converter.Encode(call.Body)
		if err != nil {
			return nil, err
		}
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, call.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, call.Path, err)
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }

// Decode materializes resp's body into target using reg (the default
// registry when nil).
func Decode(resp Response, target any, reg *converter.Registry) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}
	if reg == nil {
		reg = converter.DefaultRegistry()
	}
	return reg.Decode(resp.Body(), target)
}

// IsSuccess reports whether resp carries a 2xx status.
func IsSuccess(resp Response) bool {
	return resp != nil && resp.StatusCode() >= 200 && resp.StatusCode() <= 299
}

// Snippet returns a trimmed, bounded excerpt of body for error messages.
func Snippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

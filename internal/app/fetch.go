package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/octo-harvester/internal/config"
	"github.com/samvad-hq/octo-harvester/internal/logger"
	"github.com/samvad-hq/octo-harvester/pkg/converter"
	"github.com/samvad-hq/octo-harvester/pkg/httpclient"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

// Renditions accepted by Fetch.
const (
	MediaJSON = "json"
	MediaRaw  = "raw"
	MediaHTML = "html"
)

// FetchOptions describes a one-shot API call.
type FetchOptions struct {
	Path  string
	Media string
	Query map[string]string
	// Text reduces an HTML rendition to its visible text.
	Text bool
}

// Fetch performs one GET through the full pipeline and returns the body the
// caller would see.
func Fetch(ctx context.Context, cfg *config.Config, log logger.Logger, opts FetchOptions) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	callOpts := make([]httpclient.CallOption, 0, len(opts.Query)+1)
	switch strings.ToLower(strings.TrimSpace(opts.Media)) {
	case "", MediaJSON:
	case MediaRaw:
		callOpts = append(callOpts, httpclient.WithMediaTypes(interceptor.MediaTypeRaw))
	case MediaHTML:
		callOpts = append(callOpts, httpclient.WithMediaTypes(interceptor.MediaTypeHTML))
	default:
		return nil, fmt.Errorf("unsupported media %q (want json, raw or html)", opts.Media)
	}
	for k, v := range opts.Query {
		callOpts = append(callOpts, httpclient.WithQuery(k, v))
	}

	client := NewAPIClient(cfg, NewCredentials(cfg), log)
	resp, err := client.Get(ctx, path, callOpts...)
	if err != nil {
		return nil, err
	}
	log.DebugObj("fetch completed", "fetch_meta", map[string]any{
		"path":   path,
		"media":  opts.Media,
		"status": resp.StatusCode(),
		"bytes":  len(resp.Body()),
	})
	if !httpclient.IsSuccess(resp) {
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}

	if opts.Text && strings.EqualFold(opts.Media, MediaHTML) {
		text, err := converter.HTMLText(resp.Body())
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}

	var body converter.RawText
	if err := httpclient.Decode(resp, &body, nil); err != nil {
		return nil, err
	}
	return []byte(body), nil
}

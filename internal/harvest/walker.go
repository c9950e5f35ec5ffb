package harvest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samvad-hq/octo-harvester/internal/domain"
	"github.com/samvad-hq/octo-harvester/internal/logger"
	"github.com/samvad-hq/octo-harvester/pkg/converter"
	"github.com/samvad-hq/octo-harvester/pkg/endpoints"
	"github.com/samvad-hq/octo-harvester/pkg/httpclient"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
	"golang.org/x/time/rate"
)

// PageFunc receives one decoded page. Returning an error stops the walk.
type PageFunc func(ctx context.Context, number int, page domain.Page) error

// WalkerOptions configures a Walker.
type WalkerOptions struct {
	// RequestsPerSecond paces page requests; zero disables pacing.
	RequestsPerSecond float64
	// MaxPages bounds one walk; zero follows next links until exhausted.
	MaxPages int
	// ObjectKeyPrefix must match the client's setting so page keys merged into
	// object bodies can be found.
	ObjectKeyPrefix string
	Converters      *converter.Registry
	Logger          logger.Logger
}

// Walker follows the next page advertised in the pagination envelope.
type Walker struct {
	client   httpclient.Client
	limiter  *rate.Limiter
	maxPages int
	prefix   string
	conv     *converter.Registry
	log      logger.Logger
}

// NewWalker builds a Walker over client.
func NewWalker(client httpclient.Client, opts WalkerOptions) *Walker {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Converters == nil {
		opts.Converters = converter.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = &logger.NopLogger{}
	}
	return &Walker{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		maxPages: opts.MaxPages,
		prefix:   opts.ObjectKeyPrefix,
		conv:     opts.Converters,
		log:      opts.Logger,
	}
}

// Walk fetches ep page by page, handing each to fn, and returns the number of
// pages handled.
func (w *Walker) Walk(ctx context.Context, ep endpoints.Endpoint, fn PageFunc) (int, error) {
	number := 1
	for handled := 0; w.maxPages == 0 || handled < w.maxPages; handled++ {
		if err := w.limiter.Wait(ctx); err != nil {
			return handled, err
		}

		page, err := w.fetch(ctx, ep, number)
		if err != nil {
			return handled, err
		}
		if err := fn(ctx, number, page); err != nil {
			return handled + 1, err
		}
		if !page.HasNext() {
			return handled + 1, nil
		}

		next, err := strconv.Atoi(page.Next)
		if err != nil || next <= number {
			return handled + 1, fmt.Errorf("endpoint %s page %d: invalid next page %q", ep.ID, number, page.Next)
		}
		number = next
	}

	w.log.WarnObj("page limit reached", "walk_meta", map[string]any{
		"endpoint_id": ep.ID,
		"max_pages":   w.maxPages,
	})
	return w.maxPages, nil
}

func (w *Walker) fetch(ctx context.Context, ep endpoints.Endpoint, number int) (domain.Page, error) {
	opts := []httpclient.CallOption{httpclient.WithMediaTypes(ep.MediaTypes...)}
	for k, v := range ep.Params(number) {
		opts = append(opts, httpclient.WithQuery(k, v))
	}

	resp, err := w.client.Get(ctx, ep.Path, opts...)
	if err != nil {
		return domain.Page{}, fmt.Errorf("fetch %s page %d: %w", ep.ID, number, err)
	}
	if !httpclient.IsSuccess(resp) {
		return domain.Page{}, fmt.Errorf("%s page %d returned status %d: %s", ep.ID, number, resp.StatusCode(), httpclient.Snippet(resp.Body()))
	}

	var page domain.Page
	if err := httpclient.Decode(resp, &page, w.conv); err != nil {
		return domain.Page{}, fmt.Errorf("decode %s page %d: %w", ep.ID, number, err)
	}
	if w.prefix != "" && !page.HasNext() {
		w.applyPrefixed(resp, &page)
	}

	w.log.DebugObj("page fetched", "page_meta", map[string]any{
		"endpoint_id": ep.ID,
		"page":        number,
		"items":       len(page.Items),
		"next":        page.Next,
		"last":        page.Last,
	})
	return page, nil
}

// applyPrefixed reads page keys that the chain merged into an object body
// under the configured prefix.
func (w *Walker) applyPrefixed(resp httpclient.Response, page *domain.Page) {
	var fields map[string]any
	if err := httpclient.Decode(resp, &fields, w.conv); err != nil {
		return
	}
	str := func(rel string) string {
		v, _ := fields[w.prefix+rel].(string)
		return v
	}
	page.Next = str(interceptor.RelNext)
	page.Prev = str(interceptor.RelPrev)
	page.First = str(interceptor.RelFirst)
	page.Last = str(interceptor.RelLast)
}

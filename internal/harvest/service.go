package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/octo-harvester/internal/domain"
	"github.com/samvad-hq/octo-harvester/internal/logger"
	"github.com/samvad-hq/octo-harvester/pkg/endpoints"
	"github.com/samvad-hq/octo-harvester/pkg/publishers"
)

// PageWalker iterates the pages of an endpoint.
type PageWalker interface {
	Walk(ctx context.Context, ep endpoints.Endpoint, fn PageFunc) (int, error)
}

// EventPublisher publishes events and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers items already published.
type Deduper interface {
	Seen(key string) (bool, error)
	Mark(key string) error
}

// Result summarizes one endpoint pass.
type Result struct {
	EndpointID string `json:"endpoint_id"`
	Pages      int    `json:"pages"`
	Items      int    `json:"items"`
	Fresh      int    `json:"fresh"`
	Published  int    `json:"published"`
	Unkeyed    int    `json:"unkeyed"`
}

// Service coordinates harvesting across endpoints.
type Service struct {
	walker    PageWalker
	publisher EventPublisher
	dedupe    Deduper
	log       logger.Logger
}

// NewService wires a harvest service. A nil deduper publishes every item.
func NewService(walker PageWalker, pub EventPublisher, log logger.Logger, dedupe Deduper) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{walker: walker, publisher: pub, dedupe: dedupe, log: log}
}

// Run executes one harvest pass over eps.
func (s *Service) Run(ctx context.Context, eps []endpoints.Endpoint) error {
	if s == nil || s.walker == nil || s.publisher == nil {
		return fmt.Errorf("harvest service is not initialized")
	}
	if len(eps) == 0 {
		return fmt.Errorf("no endpoints configured for harvesting")
	}
	return errors.Join(s.runAll(ctx, eps)...)
}

func (s *Service) runAll(ctx context.Context, eps []endpoints.Endpoint) []error {
	var errs []error
	for _, ep := range eps {
		if ctx.Err() != nil {
			break
		}
		res, err := s.runEndpoint(ctx, ep)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("endpoint harvest failed", "endpoint_error", map[string]any{
				"endpoint_id": ep.ID,
				"error":       err.Error(),
			})
		}
		s.log.InfoObj("endpoint harvest completed", "endpoint_result", res)
	}
	return errs
}

func (s *Service) runEndpoint(ctx context.Context, ep endpoints.Endpoint) (Result, error) {
	res := Result{EndpointID: ep.ID}
	var publishErrs []error

	pages, err := s.walker.Walk(ctx, ep, func(ctx context.Context, number int, page domain.Page) error {
		items, unkeyed := extractItems(ep, number, page)
		res.Items += len(items) + unkeyed
		res.Unkeyed += unkeyed

		fresh := s.filterNew(items)
		res.Fresh += len(fresh)
		for _, item := range fresh {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := s.publish(ctx, item); err != nil {
				publishErrs = append(publishErrs, err)
				continue
			}
			res.Published++
		}
		return nil
	})
	res.Pages = pages

	if err != nil {
		publishErrs = append(publishErrs, fmt.Errorf("walk endpoint %s: %w", ep.ID, err))
	}
	return res, errors.Join(publishErrs...)
}

// publish fans the item out and marks it seen once at least one sink took it.
func (s *Service) publish(ctx context.Context, item domain.Item) error {
	count, err := s.publisher.Publish(ctx, publishers.NewEvent(item))
	if count == 0 {
		if err == nil {
			err = errors.New("no publisher accepted the event")
		}
		return fmt.Errorf("publish item %s: %w", item.Key(), err)
	}
	if err != nil {
		s.log.WarnObj("item partially published", "publish_partial", map[string]any{
			"item":     item.Key(),
			"accepted": count,
			"error":    err.Error(),
		})
	}
	if s.dedupe != nil {
		if err := s.dedupe.Mark(item.Key()); err != nil {
			s.log.WarnObj("mark item failed", "dedupe_error", map[string]any{
				"item":  item.Key(),
				"error": err.Error(),
			})
		}
	}
	return nil
}

// filterNew drops items already seen. Lookup failures keep the item.
func (s *Service) filterNew(items []domain.Item) []domain.Item {
	if s.dedupe == nil {
		return items
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		seen, err := s.dedupe.Seen(item.Key())
		if err != nil {
			s.log.WarnObj("dedupe lookup failed", "dedupe_error", map[string]any{
				"item":  item.Key(),
				"error": err.Error(),
			})
		}
		if seen && err == nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// extractItems keys page items by the endpoint's id field. Items without an
// id are counted and dropped.
func extractItems(ep endpoints.Endpoint, number int, page domain.Page) ([]domain.Item, int) {
	items := make([]domain.Item, 0, len(page.Items))
	unkeyed := 0
	for _, fields := range page.Items {
		id, ok := lookupID(fields, ep.IDField)
		if !ok {
			unkeyed++
			continue
		}
		items = append(items, domain.Item{ID: id, EndpointID: ep.ID, Page: number, Fields: fields})
	}
	return items, unkeyed
}

// lookupID resolves a dotted path such as "commit.tree.sha".
func lookupID(fields map[string]any, path string) (string, bool) {
	var cur any = fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[part]; !ok || cur == nil {
			return "", false
		}
	}
	switch v := cur.(type) {
	case map[string]any, []any:
		return "", false
	case string:
		return v, v != ""
	default:
		return fmt.Sprint(v), true
	}
}

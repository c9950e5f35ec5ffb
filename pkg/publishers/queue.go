package publishers

import (
	"context"
	"fmt"
)

// queuePublisher adapts a message bus sender to the Publisher contract.
type queuePublisher struct {
	id     string
	typ    string
	sender sender
	log    Logger
}

func newQueuePublisher(id, typ string, s sender, log Logger) *queuePublisher {
	return &queuePublisher{id: id, typ: typ, sender: s, log: ensureLogger(log)}
}

func (q *queuePublisher) ID() string   { return q.id }
func (q *queuePublisher) Type() string { return q.typ }
func (q *queuePublisher) Close() error { return q.sender.Close() }

func (q *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if err := q.sender.Send(ctx, evt); err != nil {
		q.log.ErrorObj("queue publisher send failed", "publisher_queue_error", map[string]any{
			"publisher_id": q.id,
			"type":         q.typ,
			"event_id":     evt.EventID,
			"error":        err.Error(),
		})
		return err
	}
	q.log.DebugObj("queue publisher delivered event", "publisher_queue_delivery", map[string]any{
		"publisher_id": q.id,
		"type":         q.typ,
		"event_id":     evt.EventID,
	})
	return nil
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}
	s, err := newAWSSQSSender(ctx, cfg.SQS, log)
	if err != nil {
		return nil, err
	}
	return newQueuePublisher(cfg.ID, TypeSQS, s, log), nil
}

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	s, err := newAWSSNSSender(ctx, cfg.SNS, log)
	if err != nil {
		return nil, err
	}
	return newQueuePublisher(cfg.ID, TypeSNS, s, log), nil
}

func newPubSubPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("publisher %q missing pubsub configuration", cfg.ID)
	}
	s, err := newGCPPubSubSender(ctx, cfg.PubSub, log)
	if err != nil {
		return nil, err
	}
	return newQueuePublisher(cfg.ID, TypePubSub, s, log), nil
}

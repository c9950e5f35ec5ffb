package publishers

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// gcpPubSubSender publishes events to a Pub/Sub topic. PUBSUB_EMULATOR_HOST
// is honoured by the client library.
type gcpPubSubSender struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newGCPPubSubSender(ctx context.Context, c *GCPQueueConfig, log Logger) (*gcpPubSubSender, error) {
	if c == nil {
		return nil, errors.New("pubsub configuration is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, c.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &gcpPubSubSender{
		client: client,
		topic:  client.Topic(c.Topic),
		log:    ensureLogger(log),
	}, nil
}

func (s *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	payload, err := evt.Payload()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	res := s.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: evt.Attributes()})
	id, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish to pubsub topic %s: %w", s.topic.ID(), err)
	}
	s.log.DebugObj("pubsub message accepted", "pubsub_message", map[string]any{
		"topic":      s.topic.ID(),
		"message_id": id,
	})
	return nil
}

func (s *gcpPubSubSender) Close() error {
	s.topic.Stop()
	return s.client.Close()
}

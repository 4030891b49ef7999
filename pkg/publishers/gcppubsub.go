package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// gcpPubSubSender delivers events to one Pub/Sub topic.
type gcpPubSubSender struct {
	topic *pubsub.Topic
	log   Logger
}

// newGCPPubSubSender connects to the configured project and topic. With a
// credentials file configured it is used explicitly, otherwise application
// default credentials (or the emulator) apply.
func newGCPPubSubSender(ctx context.Context, cfg *GCPQueueConfig, log Logger) (*gcpPubSubSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing pubsub configuration")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &gcpPubSubSender{
		topic: client.Topic(cfg.Topic),
		log:   ensureLogger(log),
	}, nil
}

// Send marshals the event and publishes it, blocking until the server acks.
func (g *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := g.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"site_id": evt.SiteID},
	})
	if _, err := result.Get(ctx); err != nil {
		g.log.ErrorObj("pubsub publish failed", "publisher_pubsub_error", map[string]any{
			"topic": g.topic.ID(),
			"error": err.Error(),
		})
		return fmt.Errorf("publish message to pubsub: %w", err)
	}
	g.log.DebugObj("pubsub delivered event", "publisher_pubsub_delivery", map[string]any{
		"topic": g.topic.ID(),
	})
	return nil
}

// pubSubPublisher implements the Publisher interface for Google Pub/Sub.
type pubSubPublisher struct {
	id     string
	typ    string
	sender *gcpPubSubSender
}

// newPubSubPublisher creates a new Pub/Sub publisher with the given configuration.
func newPubSubPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("publisher %q missing pubsub configuration", cfg.ID)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	sender, err := newGCPPubSubSender(ctx, cfg.PubSub, log)
	if err != nil {
		return nil, err
	}

	return &pubSubPublisher{
		id:     cfg.ID,
		typ:    TypePubSub,
		sender: sender,
	}, nil
}

func (p *pubSubPublisher) ID() string   { return p.id }
func (p *pubSubPublisher) Type() string { return p.typ }

func (p *pubSubPublisher) Publish(ctx context.Context, evt Event) error {
	return p.sender.Send(ctx, evt)
}

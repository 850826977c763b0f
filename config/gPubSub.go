package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PubSubMessage is the wire shape of an outbox event.
type PubSubMessage struct {
	ID            int             `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateId   int             `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationId string          `json:"correlation_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher uses Application Default Credentials unless PUBSUB_CREDENTIALS_JSON is set.
func NewPubSubPublisher(ctx context.Context, cfg *Config, logg *logrus.Logger) (*PubSubPublisher, error) {
	if cfg.PubSubProjectId == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID not set")
	}
	if cfg.PubSubTopic == "" {
		return nil, errors.New("PUBSUB_TOPIC is required")
	}

	var opts []option.ClientOption
	if cfg.PubSubCredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.PubSubCredentialsJSON)))
	}

	var attempt int
	for {
		attempt++
		c, err := pubsub.NewClient(ctx, cfg.PubSubProjectId, opts...)
		if err == nil {
			t, topicErr := createTopicIfNotExists(ctx, c, cfg.PubSubTopic)
			if topicErr != nil {
				_ = c.Close()
				return nil, topicErr
			}
			logg.WithFields(logrus.Fields{
				"field":      "pubsub",
				"project_id": cfg.PubSubProjectId,
				"topic":      cfg.PubSubTopic,
				"attempt":    attempt,
			}).Info("pubsub publisher ready")
			return &PubSubPublisher{client: c, topic: t}, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logg.WithFields(logrus.Fields{
			"field":      "pubsub",
			"project_id": cfg.PubSubProjectId,
			"attempt":    attempt,
		}).Warn("failed to init pubsub client; retrying in " + sleep.String() + ": " + err.Error())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func createTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// Publish returns the server-assigned message id.
func (p *PubSubPublisher) Publish(ctx context.Context, msg PubSubMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type":     msg.EventType,
			"correlation_id": msg.CorrelationId,
		},
	})
	return result.Get(ctx)
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

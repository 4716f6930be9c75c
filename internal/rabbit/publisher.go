package rabbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"eventide/internal/dto"
	"eventide/internal/metrics"
)

// Publisher encodes registration messages onto the broker.
type Publisher struct {
	client Rabbiter
	log    *zerolog.Logger
}

func NewPublisher(client Rabbiter, log *zerolog.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

func (p *Publisher) Publish(ctx context.Context, msg dto.RegistrationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := p.client.Publish(ctx, body); err != nil {
		metrics.MessagesPublished.WithLabelValues(msg.Type, "error").Inc()
		return err
	}
	metrics.MessagesPublished.WithLabelValues(msg.Type, "ok").Inc()
	p.log.Debug().Str("type", msg.Type).Str("registration_id", msg.RegistrationID).Msg("message published")
	return nil
}

package consumerWorker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"eventide/internal/apperr"
	"eventide/internal/dto"
	"eventide/internal/rabbit"
)

// Processor performs the side effects behind each message type.
type Processor interface {
	NotifyStatusChange(ctx context.Context, registrationID string) error
	IssueCertificate(ctx context.Context, registrationID string) (string, error)
}

type Reader struct {
	RMQ    rabbit.Rabbiter
	proc   Processor
	log    *zerolog.Logger
	done   chan struct{}
	cancel context.CancelFunc
	ctx    context.Context
}

func NewReader(rmq rabbit.Rabbiter, proc Processor, log *zerolog.Logger) *Reader {
	return &Reader{
		RMQ:  rmq,
		proc: proc,
		log:  log,
		done: make(chan struct{}),
		ctx:  context.Background(),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.ctx = cctx

	r.log.Info().Msg("RabbitMQ reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(r.Handle); err != nil {
			r.log.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		r.log.Info().Msg("RabbitMQ reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Handle processes one message body. Undecodable and unknown messages are
// dropped; a returned error asks the broker to redeliver.
func (r *Reader) Handle(body []byte) error {
	return handle(r.ctx, r.proc, r.log, body)
}

func handle(ctx context.Context, proc Processor, log *zerolog.Logger, body []byte) error {
	var msg dto.RegistrationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal message, dropping")
		return nil
	}

	log.Info().
		Str("type", msg.Type).
		Str("registration_id", msg.RegistrationID).
		Str("event_id", msg.EventID).
		Msg("received message")

	var err error
	switch msg.Type {
	case dto.MessageStatusChanged:
		err = proc.NotifyStatusChange(ctx, msg.RegistrationID)
	case dto.MessageAttended:
		var url string
		url, err = proc.IssueCertificate(ctx, msg.RegistrationID)
		if err == nil && url != "" {
			log.Info().Str("registration_id", msg.RegistrationID).Str("url", url).Msg("certificate ready")
		}
	default:
		log.Warn().Str("type", msg.Type).Msg("unknown message type, dropping")
		return nil
	}
	if err == nil {
		return nil
	}

	// Only failures that may succeed later are worth a redelivery.
	if apperr.Retryable(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", msg.Type, msg.RegistrationID, err)
	}
	log.Error().Err(err).Str("type", msg.Type).Str("registration_id", msg.RegistrationID).Msg("message failed permanently, dropping")
	return nil
}

// Inline runs messages in-process when no broker is configured. It
// satisfies the same publisher contract as the broker-backed publisher.
type Inline struct {
	proc Processor
	log  *zerolog.Logger
	ctx  context.Context
	wg   sync.WaitGroup
}

func NewInline(ctx context.Context, log *zerolog.Logger) *Inline {
	return &Inline{log: log, ctx: ctx}
}

// Bind sets the processor. The service that publishes is usually also the
// processor, so it is bound after construction.
func (i *Inline) Bind(proc Processor) {
	i.proc = proc
}

func (i *Inline) Publish(_ context.Context, msg dto.RegistrationMessage) error {
	if i.proc == nil {
		i.log.Warn().Str("type", msg.Type).Msg("no processor bound, message dropped")
		return nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := handle(i.ctx, i.proc, i.log, body); err != nil {
			i.log.Warn().Err(err).Msg("in-process message failed")
		}
	}()
	return nil
}

// Wait blocks until every published message has been handled.
func (i *Inline) Wait() {
	i.wg.Wait()
}

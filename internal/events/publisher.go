package events

//go:generate go run go.uber.org/mock/mockgen -source=./publisher.go -destination=./mocks/publisher_mock.go -package=mocks

import (
	"context"

	"github.com/rs/zerolog/log"

	"innkeeper/config"
	"innkeeper/infras/kafka"
	"innkeeper/infras/otel"
	"innkeeper/shared/constant"
)

// Publisher emits booking lifecycle events. Publication is best-effort:
// a broker failure is logged and reported, never propagated to the caller.
type Publisher interface {
	Publish(ctx context.Context, topic string, event BookingEvent) error
}

type publisherImpl struct {
	client kafka.Client
	cfg    *config.Config
	otel   otel.Otel
}

func NewPublisher(client kafka.Client, cfg *config.Config, otel otel.Otel) Publisher {
	return &publisherImpl{
		client: client,
		cfg:    cfg,
		otel:   otel,
	}
}

func (p *publisherImpl) Publish(ctx context.Context, topic string, event BookingEvent) (err error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !p.cfg.Kafka.Enable {
		return nil
	}

	scope.SetAttribute("event.topic", topic)

	err = p.client.SendMessages(ctx, topic, kafka.Message{
		Key:   event.BookingID,
		Value: event,
	})
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Str("bookingID", event.BookingID).Msg("failed to publish booking event")

		return err
	}

	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

// OfferMessage is the body published on ex.offers.
type OfferMessage struct {
	Offer      entity.Offer `json:"offer"`
	ReceivedAt time.Time    `json:"received_at"`
	Origin     string       `json:"origin"`
}

// Publisher is the part of *amqp.Channel the producer uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch     Publisher
	Origin string
	now    func() time.Time
}

func NewProducer(ch Publisher, origin string) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch, Origin: origin, now: time.Now}
}

func (p *RabbitMQProducer) PublishOffer(ctx context.Context, offer entity.Offer) error {
	body, err := json.Marshal(OfferMessage{Offer: offer, ReceivedAt: p.now().UTC(), Origin: p.Origin})
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName, // ex.offers
		RoutingKey,   // k.offer.published
		false,        // Mandatory
		false,        // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    offer.ID,
			Timestamp:    p.now(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}

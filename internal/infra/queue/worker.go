package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

// OfferHandler runs the matching pipeline for one offer.
type OfferHandler func(ctx context.Context, offer entity.Offer) error

// Consumer is the part of *amqp.Channel the worker uses.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Handle  OfferHandler
	Logger  *zap.SugaredLogger
}

func NewWorker(ch Consumer, handle OfferHandler, logger *zap.SugaredLogger) *Worker {
	return &Worker{Channel: ch, Handle: handle, Logger: logger}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	w.Logger.Infof(" [*] Worker rodando e aguardando na fila '%s'", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("canal do RabbitMQ fechado")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	w.Logger.Info("📥 [WORKER] Mensagem recebida do RabbitMQ")

	var msg OfferMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.Offer.ID == "" {
		w.Logger.Errorw("❌ [WORKER] payload inválido", "error", err)
		// mensagem podre vai direto pra DLQ
		d.Nack(false, false)
		return
	}

	w.Logger.Infow("⚙️ [WORKER] processando oferta", "offer_id", msg.Offer.ID, "origin", msg.Origin)
	if err := w.Handle(ctx, msg.Offer); err != nil {
		// falha de infraestrutura volta pra fila uma vez; na reentrega vai pra DLQ
		requeue := usecase.IsTechnicalError(err) && !d.Redelivered
		w.Logger.Errorw("❌ [WORKER] falha no matching",
			"offer_id", msg.Offer.ID,
			"requeue", requeue,
			"error", err,
		)
		d.Nack(false, requeue)
		return
	}

	w.Logger.Infow("✅ [WORKER] oferta processada", "offer_id", msg.Offer.ID)
	d.Ack(false)
}

package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/metrics"
)

// NotifyMatchesUseCase turns a published offer into delivered notifications.
// Match history is written only after the message was accepted by the sender.
type NotifyMatchesUseCase struct {
	Engine    *MatchingEngine
	Sender    MessageSender
	Scheduler DispatchScheduler
	Logger    *zap.SugaredLogger
}

func NewNotifyMatchesUseCase(engine *MatchingEngine, sender MessageSender, scheduler DispatchScheduler, logger *zap.SugaredLogger) *NotifyMatchesUseCase {
	return &NotifyMatchesUseCase{
		Engine:    engine,
		Sender:    sender,
		Scheduler: scheduler,
		Logger:    logger,
	}
}

func (uc *NotifyMatchesUseCase) Execute(ctx context.Context, offer entity.Offer) (*NotifyMatchesOutput, error) {
	candidates, err := uc.Engine.Evaluate(ctx, offer)
	if err != nil {
		return nil, err
	}

	out := &NotifyMatchesOutput{OfferID: offer.ID, Matched: len(candidates)}
	for _, cand := range candidates {
		if uc.Scheduler != nil {
			uc.Scheduler.Schedule(fmt.Sprintf("notify:%s:%s:%s", cand.PhoneNumber, offer.ID, cand.RequestID), func(ctx context.Context) error {
				return uc.Dispatch(ctx, cand)
			})
			out.Scheduled++
			continue
		}
		if err := uc.Dispatch(ctx, cand); err != nil {
			uc.Logger.Errorw("❌ [NOTIFY] envio falhou", "phone", cand.PhoneNumber, "offer_id", offer.ID, "error", err)
		}
	}
	return out, nil
}

// Dispatch re-checks eligibility, sends the message and records the match.
// A second candidate for a client already served by this offer is skipped
// by the re-check.
func (uc *NotifyMatchesUseCase) Dispatch(ctx context.Context, cand entity.MatchCandidate) error {
	ok, err := uc.Engine.IsEligible(ctx, cand.PhoneNumber, cand.Offer.ID)
	if err != nil {
		metrics.RecordNotification("failed")
		return err
	}
	if !ok {
		uc.Logger.Infow("⏭️ [NOTIFY] cliente não é mais elegível", "phone", cand.PhoneNumber, "offer_id", cand.Offer.ID)
		metrics.RecordNotification("skipped")
		return nil
	}

	tx := NewTransaction(uc.Logger)
	tx.AddOperation("send_message", func(ctx context.Context) error {
		return uc.Sender.SendText(ctx, cand.PhoneNumber, RenderMatchMessage(cand))
	})
	tx.AddOperation("record_match", func(ctx context.Context) error {
		return uc.Engine.RecordMatchSent(ctx, cand.PhoneNumber, cand.Offer, cand.Similarity)
	})

	if err := tx.Execute(ctx); err != nil {
		metrics.RecordNotification("failed")
		return err
	}

	metrics.RecordNotification("sent")
	uc.Logger.Infow("📤 [NOTIFY] match enviado",
		"phone", cand.PhoneNumber,
		"offer_id", cand.Offer.ID,
		"score", cand.Similarity.Score,
	)
	return nil
}

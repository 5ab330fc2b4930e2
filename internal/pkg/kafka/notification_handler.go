package kafka

import (
	"Agora/internal/pkg/event"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// NotificationHandler 消费社区事件并交给通知分发
type NotificationHandler struct {
	handler event.Handler
}

func NewNotificationHandler(handler event.Handler) *NotificationHandler {
	return &NotificationHandler{handler: handler}
}

func (s *NotificationHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("notification consumer setup")
	return nil
}

func (s *NotificationHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("notification consumer cleanup")
	return nil
}

func (s *NotificationHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("notification consume claim", "topic", claim.Topic(), "partition", claim.Partition())
	if err := pullMessageBatch(session, claim, s.logic); err != nil {
		log.Error("notification process batch error", "err", err)
		return err
	}
	return nil
}

func (s *NotificationHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	evt, err := ToEvent(msg)
	if err != nil {
		return err
	}
	return s.handler.HandleEvent(ctx, evt)
}

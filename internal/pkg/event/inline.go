package event

import (
	"context"
	log "log/slog"
)

type inlinePublisher struct {
	handler Handler
}

// NewInlinePublisher 未配置消息队列时在当前 goroutine 内直接交给消费者处理
func NewInlinePublisher(handler Handler) Publisher {
	return &inlinePublisher{handler: handler}
}

func (p *inlinePublisher) Publish(ctx context.Context, evt *Event) error {
	if err := p.handler.HandleEvent(ctx, evt); err != nil {
		log.WarnContext(ctx, "inline event handling failed", "event_id", evt.ID, "type", evt.Type, "err", err)
		return err
	}
	return nil
}

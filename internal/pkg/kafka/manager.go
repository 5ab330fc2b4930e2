package kafka

import (
	"Agora/internal/api/config"
	"Agora/internal/pkg/event"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	notificationConsumer sarama.ConsumerGroup
	notificationHandler  sarama.ConsumerGroupHandler
	topic                string
}

func NewConsumerManager(cfg *config.Config, handler event.Handler) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	consumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaNotificationConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}
	return &ConsumerManager{
		notificationConsumer: consumer,
		notificationHandler:  NewNotificationHandler(handler),
		topic:                cfg.KafkaNotificationConsumer.Topic,
	}, nil
}

// Start 启动消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.notificationConsumer.Errors() {
			log.Error("notification consumer error", "err", err)
		}
	}()

	go func() {
		log.Info("Notification consumer started", "topic", m.topic)
		for {
			if err := m.notificationConsumer.Consume(ctx, []string{m.topic}, m.notificationHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.notificationConsumer.Close(); err != nil {
		log.Error("Failed to close notification consumer", "err", err)
	}
	return nil
}

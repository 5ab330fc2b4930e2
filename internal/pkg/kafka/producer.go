package kafka

import (
	"Agora/internal/api/config"
	"Agora/internal/pkg/event"
	"context"
	log "log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// EventProducer 把社区事件写入 Kafka，同一发起者的事件落在同一分区
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventProducer(cfg *config.Config) (*EventProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, newSaramaConfig(cfg.Kafka))
	if err != nil {
		return nil, err
	}
	return NewEventProducerWith(producer, cfg.KafkaEventProducer.Topic), nil
}

func NewEventProducerWith(producer sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: producer, topic: topic}
}

func (p *EventProducer) Publish(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(evt.ActorID, 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "event published", "event_id", evt.ID, "type", evt.Type, "partition", partition, "offset", offset)
	return nil
}

func (p *EventProducer) Close() error {
	return p.producer.Close()
}

package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Shopify/sarama"
)

// KafkaPublisher mirrors events onto a Kafka topic for consumers outside the
// Redis deployment. Events are keyed by cell ID so all events for one cell
// land on the same partition in order.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("events: kafka encode failed", "type", ev.Type, "err", err)
		return
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.CellID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		slog.Warn("events: kafka publish failed",
			"topic", p.topic, "type", ev.Type, "cell", ev.CellID, "err", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

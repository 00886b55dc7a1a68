package invalidation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
)

// Producer sends invalidation events synchronously so callers learn whether
// the broker accepted them.
type Producer struct {
	topic string
	prod  sarama.SyncProducer
}

// NewSyncProducer dials brokers with acks from all in-sync replicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("invalidation: create producer: %w", err)
	}
	return p, nil
}

// NewProducer wraps prod; the Producer owns and closes it.
func NewProducer(prod sarama.SyncProducer, topic string) *Producer {
	return &Producer{topic: topic, prod: prod}
}

// Publish validates ev and sends it keyed by its target, so events for the
// same box or suburb land on one partition in order.
func (p *Producer) Publish(ev Event) (partition int32, offset int64, err error) {
	if err := ev.Validate(); err != nil {
		return 0, 0, fmt.Errorf("invalidation: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, fmt.Errorf("invalidation: marshal: %w", err)
	}
	partition, offset, err = p.prod.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(PartitionKey(ev)),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("invalidation: send: %w", err)
	}
	return partition, offset, nil
}

func (p *Producer) Close() error {
	return p.prod.Close()
}

func PartitionKey(ev Event) string {
	if ev.Kind == KindArea && ev.BBox != nil {
		bb := ev.BBox
		return fmt.Sprintf("area:%g,%g,%g,%g", bb.MinLat, bb.MinLng, bb.MaxLat, bb.MaxLng)
	}
	return "name:" + strings.ToLower(strings.TrimSpace(ev.Name)) + "|" + strings.ToLower(strings.TrimSpace(ev.Region))
}

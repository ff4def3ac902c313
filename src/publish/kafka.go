package publish

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"price-relay/src/helpers"
	"price-relay/src/models"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is satisfied by *kafka.Writer.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per token, keyed by token id, so a
// compacted topic ends up holding the latest snapshot of each.
type KafkaPublisher struct {
	Writer KafkaWriter
}

// -----------------------------------------------------------------------------

func NewKafkaPublisher(cfg models.MKafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{Writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}}
}

func (k *KafkaPublisher) Name() string { return "kafka" }

// -----------------------------------------------------------------------------

func (k *KafkaPublisher) Publish(ctx context.Context, push models.MPricePush) error {
	ids := make([]string, 0, len(push.Data))
	for id := range push.Data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	msgs := make([]kafka.Message, 0, len(ids))
	at := time.UnixMilli(push.Timestamp)
	for _, id := range ids {
		value, err := json.Marshal(push.Data[id])
		if err != nil {
			return helpers.NewPublishError("encode kafka payload", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(id), Value: value, Time: at})
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := k.Writer.WriteMessages(ctx, msgs...); err != nil {
		return helpers.NewPublishError("kafka write", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.Writer.Close()
}

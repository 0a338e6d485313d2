package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes notifications as JSON records keyed by user id,
// so one user's notifications stay ordered within a partition.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka notifier: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.UserID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	return k.client.ProduceSync(ctx, rec).FirstErr()
}

// Ping checks broker connectivity.
func (k *KafkaNotifier) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *KafkaNotifier) Close() {
	k.client.Close()
}

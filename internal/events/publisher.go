package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const KAFKA_TOPIC_PROFILES = "sentiment-profiles"

// Publisher emits completed sentiment profiles to Kafka so downstream
// consumers (dashboards, archival jobs) can react to fresh analyses. The
// analysis flow works without a broker; a nil Publisher is a no-op.
type Publisher struct {
	producer *kafka.Producer
	topic    string
}

// NewPublisherFromEnv builds the publisher when KAFKA_BROKER is set and
// returns nil otherwise.
func NewPublisherFromEnv() (*Publisher, error) {
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		slog.Info("[EventPublisher] KAFKA_BROKER not set, profile events disabled")
		return nil, nil
	}

	slog.Info("[EventPublisher] Initializing Kafka producer...",
		slog.String("broker", broker))

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   broker,
		"security.protocol":   "PLAINTEXT",
		"api.version.request": "true",
		"enable.idempotence":  true,
		"acks":                "all",
	})
	if err != nil {
		return nil, fmt.Errorf("[EventPublisher] Failed to create producer: %w", err)
	}

	pub := &Publisher{producer: p, topic: KAFKA_TOPIC_PROFILES}
	go pub.drainDeliveryReports()

	slog.Info("[EventPublisher] Kafka producer initialized successfully")
	return pub, nil
}

// PublishProfile sends the profile keyed by handle. Errors are logged, not
// propagated: event delivery never blocks an analysis response.
func (p *Publisher) PublishProfile(profile sentiment.SentimentProfile) {
	if p == nil {
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		slog.Error("[EventPublisher] Failed to marshal profile",
			slog.String("handle", profile.Handle),
			slog.String("error", err.Error()))
		return
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(profile.Handle),
		Value:          data,
	}

	if err := p.producer.Produce(msg, nil); err != nil {
		slog.Warn("[EventPublisher] Failed to enqueue profile event",
			slog.String("handle", profile.Handle),
			slog.String("error", err.Error()))
		return
	}

	slog.Info("[EventPublisher] Profile event enqueued",
		slog.String("handle", profile.Handle))
}

func (p *Publisher) drainDeliveryReports() {
	for e := range p.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			slog.Warn("[EventPublisher] Delivery failed",
				slog.String("error", m.TopicPartition.Error.Error()))
		}
	}
}

// Close flushes pending events before shutdown.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	slog.Info("[EventPublisher] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(5000); remaining > 0 {
		slog.Warn("[EventPublisher] Not all events were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
}

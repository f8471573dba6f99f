package repository

import (
	"context"
	"fmt"

	"VolRank/internal/domain/models"
	"VolRank/internal/domain/repository"
	pkgkafka "VolRank/pkg/kafka"
)

// KafkaSnapshotPublisher implements SnapshotSink for Kafka. Each ranking
// pass becomes one message keyed by interval, so consumers reading a
// compacted topic always see the latest leaderboard per interval.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSnapshotPublisher creates a Kafka snapshot publisher.
func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) repository.SnapshotSink {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, s *models.RankSnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}
	key := []byte(string(s.Interval))
	if err := p.producer.Publish(ctx, p.topic, key, s); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	return p.producer.Close()
}

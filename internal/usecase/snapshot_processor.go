package usecase

import (
	"context"
	"fmt"

	"VolRank/internal/domain/models"
	drepo "VolRank/internal/domain/repository"
)

// SnapshotProcessor routes ranking snapshots to the configured backend.
type SnapshotProcessor struct {
	pub     drepo.SnapshotSink
	store   drepo.SnapshotSink
	metrics drepo.Metrics
	backend string
}

// NewSnapshotProcessor creates a processor for the given backend
// ("kafka", "clickhouse" or "none").
func NewSnapshotProcessor(pub, store drepo.SnapshotSink, metrics drepo.Metrics, backend string) *SnapshotProcessor {
	return &SnapshotProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process hands one snapshot to the configured sink.
func (p *SnapshotProcessor) Process(ctx context.Context, s *models.RankSnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, s)
	case "clickhouse":
		err = p.store.Publish(ctx, s)
	case "none", "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("snapshot_process")
		return fmt.Errorf("process snapshot: %w", err)
	}

	p.metrics.RecordSnapshotSent(p.backend)
	return nil
}

// Close closes underlying sinks if available.
func (p *SnapshotProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}

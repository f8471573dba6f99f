package usecase

import (
	"context"
	"fmt"

	"VolRank/internal/domain/models"
	"VolRank/pkg/queue"
)

// SnapshotPersistJob drains queued ranking snapshots into the configured
// sink.
type SnapshotPersistJob struct {
	msgType string
	proc    *SnapshotProcessor
}

// NewSnapshotPersistJob creates the queue job for snapshot persistence.
func NewSnapshotPersistJob(msgType string, proc *SnapshotProcessor) *SnapshotPersistJob {
	return &SnapshotPersistJob{msgType: msgType, proc: proc}
}

func (j *SnapshotPersistJob) Name() string { return "snapshot-persist" }

func (j *SnapshotPersistJob) Type() string { return j.msgType }

func (j *SnapshotPersistJob) Handle(ctx context.Context, payload interface{}) error {
	snap, err := queue.ParsePayload[models.RankSnapshot](payload)
	if err != nil {
		return fmt.Errorf("parse snapshot payload: %w", err)
	}
	return j.proc.Process(ctx, snap)
}

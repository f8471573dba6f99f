package usecase

import (
	"context"

	"VolRank/internal/domain/models"
	drepo "VolRank/internal/domain/repository"
)

// BarCollector consumes live bar updates from a stream and applies them to
// the engine's windows, so refresh passes between stream pushes see current
// data without an extra REST round-trip.
type BarCollector struct {
	stream  drepo.BarStream
	engine  *RankEngine
	metrics drepo.Metrics
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.BarStream, engine *RankEngine, metrics drepo.Metrics) *BarCollector {
	return &BarCollector{stream: stream, engine: engine, metrics: metrics}
}

// IsConnected returns true if the bar stream is connected.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx, c.engine.Symbols()); err != nil {
		return err
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, evCh <-chan models.BarEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx, c.engine.Symbols())
			}
		case ev, ok := <-evCh:
			if !ok {
				return
			}
			c.engine.ApplyBar(ev.Symbol, ev.Bar)
		}
	}
}

func (c *BarCollector) Stop() error { return c.stream.Close() }

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VolRank/pkg/logger"
)

// MemoryQueue is an in-process job queue with a fixed worker pool and
// bounded retry. It decouples the ranking tick from slow downstream sinks
// without dragging pass artifacts through an external broker.
type MemoryQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	jobs      map[string]Job
	msgCh     chan Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	stopCh    chan struct{}
}

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig) *MemoryQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}

	return &MemoryQueue{
		logger: lgr,
		config: config,
		jobs:   make(map[string]Job),
		msgCh:  make(chan Message, config.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// RegisterJobs registers multiple jobs.
func (q *MemoryQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		q.RegisterJob(job)
	}
}

// RegisterJob registers a single job.
func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	q.jobs[job.Type()] = job
	q.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start launches the worker pool.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	if q.isRunning {
		q.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	q.isRunning = true
	q.mu.Unlock()

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("memory queue started", logger.Int("workers", q.config.Workers))
	return nil
}

// Stop gracefully stops the queue, draining in-flight work.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	close(q.stopCh)
	q.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		q.logger.Info("memory queue stopped gracefully")
		return nil
	}
}

// PublishMessage enqueues a message (implements QueueService). A full queue
// rejects instead of blocking the producer.
func (q *MemoryQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.isRunning {
		return fmt.Errorf("queue not running")
	}
	if _, exists := q.jobs[msgType]; !exists {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}

	msg := Message{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
		Attempts:  0,
	}

	select {
	case q.msgCh <- msg:
		return nil
	default:
		return fmt.Errorf("queue full")
	}
}

func (q *MemoryQueue) worker(id int) {
	defer q.wg.Done()
	q.logger.Info("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-q.stopCh:
			q.logger.Info("queue worker stopping", logger.Int("worker_id", id))
			return
		case msg := <-q.msgCh:
			q.process(msg)
		}
	}
}

func (q *MemoryQueue) process(msg Message) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.logger.Error("no job for message", logger.String("type", msg.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := job.Handle(ctx, msg.Payload)
	cancel()
	if err == nil {
		return
	}

	msg.Attempts++
	if msg.Attempts > q.config.RetryLimit {
		q.logger.Error("job failed, retries exhausted",
			logger.String("job", job.Name()),
			logger.String("msg_id", msg.ID),
			logger.Int("attempts", msg.Attempts),
			logger.Error(err))
		return
	}

	q.logger.Warn("job failed, requeueing",
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err))

	go func(m Message) {
		select {
		case <-q.stopCh:
		case <-time.After(q.config.RetryDelay):
			select {
			case q.msgCh <- m:
			default:
				q.logger.Error("queue full, dropping retried message",
					logger.String("msg_id", m.ID))
			}
		}
	}(msg)
}

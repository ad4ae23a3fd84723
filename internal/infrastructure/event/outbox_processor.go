package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxRetries:       shared.DefaultMaxRetries,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessorConfigFrom maps the event section of the application config.
// The background cleanup loop only runs when the scheduler does not own cleanup.
func OutboxProcessorConfigFrom(cfg config.EventConfig, schedulerEnabled bool) OutboxProcessorConfig {
	out := DefaultOutboxProcessorConfig()
	if cfg.BatchSize > 0 {
		out.BatchSize = cfg.BatchSize
	}
	if cfg.PollInterval > 0 {
		out.PollInterval = cfg.PollInterval
	}
	if cfg.MaxRetries > 0 {
		out.MaxRetries = cfg.MaxRetries
	}
	if cfg.CleanupRetention > 0 {
		out.CleanupRetention = cfg.CleanupRetention
	}
	out.CleanupEnabled = cfg.CleanupEnabled && !schedulerEnabled
	return out
}

// OutboxMetrics receives per-entry processing outcomes
type OutboxMetrics interface {
	OutboxEntryProcessed(eventType string, status shared.OutboxStatus)
}

// OutboxProcessor relays outbox entries to the event bus in the background
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	eventBus   shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	metrics    OutboxMetrics
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	eventBus shared.EventBus,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		eventBus:   eventBus,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// SetMetrics attaches an outcome recorder
func (p *OutboxProcessor) SetMetrics(m OutboxMetrics) {
	p.metrics = m
}

// Start launches the polling loop and, when enabled, the cleanup loop
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("cleanup_loop", p.config.CleanupEnabled),
	)
	return nil
}

// Stop cancels the loops and waits for them until ctx expires
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce handles one batch of pending entries and one of retryable entries
// and returns how many entries were claimed
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	n := 0

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries", zap.Error(err))
		return n
	}
	n += p.processEntries(ctx, pending)

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries", zap.Error(err))
		return n
	}
	return n + p.processEntries(ctx, retryable)
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}

	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing", zap.Error(err))
		return 0
	}

	for _, entry := range claimed {
		p.processEntry(ctx, entry)
	}
	return len(claimed)
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) {
	if p.config.MaxRetries > 0 {
		entry.MaxRetries = p.config.MaxRetries
	}

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.eventBus.Publish(ctx, event)
	}
	if err != nil {
		p.fail(ctx, entry, err)
		return
	}

	entry.MarkSent()
	p.record(entry)
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event relayed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	p.logger.Error("failed to relay event",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Error(cause),
	)

	entry.MarkFailed(cause.Error())
	p.record(entry)
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update entry", zap.Error(err))
	}
}

func (p *OutboxProcessor) record(entry *shared.OutboxEntry) {
	if p.metrics != nil {
		p.metrics.OutboxEntryProcessed(entry.EventType, entry.Status)
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error("failed to cleanup old entries", zap.Error(err))
			}
		}
	}
}

// Cleanup deletes sent entries older than the retention period
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}

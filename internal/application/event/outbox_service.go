package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const retryBatchSize = 100

var (
	ErrEntryNotFound = shared.NewDomainError("OUTBOX_ENTRY_NOT_FOUND", "Outbox entry not found")
	ErrEntryNotDead  = shared.NewDomainError("OUTBOX_ENTRY_NOT_DEAD", "Only dead letter entries can be retried")
)

// OutboxService exposes dead letter inspection and replay to administrators
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{
		repo:   repo,
		logger: logger,
	}
}

// OutboxEntryDTO is the admin view of an outbox entry. The payload is omitted.
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter pages through dead letter entries
type OutboxFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// OutboxListResult is one page of dead letter entries
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO counts entries per delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead returns a page of entries that exhausted their retries
func (s *OutboxService) ListDead(ctx context.Context, filter OutboxFilter) (*OutboxListResult, error) {
	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list dead letter entries", zap.Error(err))
		return nil, err
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OutboxListResult{
		Entries:    dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Retry moves one dead entry back to pending
func (s *OutboxService) Retry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, ErrEntryNotDead
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to reset outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}

	s.logger.Info("Dead letter entry queued for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType))

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDead moves every dead entry back to pending and returns how many
// were reset
func (s *OutboxService) RetryAllDead(ctx context.Context) (int64, error) {
	var count int64
	for {
		// reset entries leave the dead set, so the first page always holds the rest
		entries, _, err := s.repo.FindDead(ctx, 1, retryBatchSize)
		if err != nil {
			s.logger.Error("Failed to list dead letter entries", zap.Error(err))
			return count, err
		}

		reset := 0
		for _, entry := range entries {
			if entry.ResetForRetry() != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to reset outbox entry", zap.Error(err), zap.String("id", entry.ID.String()))
				continue
			}
			reset++
		}
		count += int64(reset)

		if len(entries) < retryBatchSize || reset == 0 {
			break
		}
	}

	s.logger.Info("Dead letter entries queued for retry", zap.Int64("count", count))
	return count, nil
}

// Stats counts entries per status
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to count outbox entries", zap.Error(err))
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}

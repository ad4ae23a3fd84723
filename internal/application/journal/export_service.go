package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/neuronek/backend/internal/domain/journal"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	exportContentType = "application/json"
	exportStashPage   = 100
	defaultURLTTL     = 15 * time.Minute
)

// ObjectStore stores export documents and hands out download links
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
}

// ExportDocument is the serialized journal of one account
type ExportDocument struct {
	AccountID   uuid.UUID      `json:"account_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Ingestions  []IngestionDTO `json:"ingestions"`
	Stashes     []StashDTO     `json:"stashes"`
}

// ExportService writes account journals to object storage
type ExportService struct {
	ingestions journal.IngestionRepository
	stashes    journal.StashRepository
	store      ObjectStore
	urlTTL     time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService creates a new export service
func NewExportService(
	ingestions journal.IngestionRepository,
	stashes journal.StashRepository,
	store ObjectStore,
	urlTTL time.Duration,
	logger *zap.Logger,
) *ExportService {
	if urlTTL <= 0 {
		urlTTL = defaultURLTTL
	}
	return &ExportService{
		ingestions: ingestions,
		stashes:    stashes,
		store:      store,
		urlTTL:     urlTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// ExportKey is the object key of an export generated at t
func ExportKey(accountID uuid.UUID, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s.json", accountID, t.UTC().Format("20060102T150405Z"))
}

// Export uploads the account's journal and returns where it was stored
func (s *ExportService) Export(ctx context.Context, accountID uuid.UUID) (result *ExportResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "journal.export",
		telemetry.AttrAccountID.String(accountID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	doc, err := s.document(ctx, accountID)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := ExportKey(accountID, doc.GeneratedAt)
	if err := s.store.Put(ctx, key, data, exportContentType); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}

	result = &ExportResult{
		Key:         key,
		Ingestions:  len(doc.Ingestions),
		Stashes:     len(doc.Stashes),
		GeneratedAt: doc.GeneratedAt,
	}
	if url, expires, err := s.store.DownloadURL(ctx, key, s.urlTTL); err == nil {
		result.URL, result.URLExpires = url, expires
	} else {
		s.logger.Warn("Failed to sign export URL", zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("Journal exported",
		zap.String("account_id", accountID.String()),
		zap.String("key", key),
		zap.Int("ingestions", result.Ingestions),
		zap.Int("stashes", result.Stashes))
	return result, nil
}

func (s *ExportService) document(ctx context.Context, accountID uuid.UUID) (*ExportDocument, error) {
	now := s.now().UTC()
	doc := &ExportDocument{
		AccountID:   accountID,
		GeneratedAt: now,
		Ingestions:  make([]IngestionDTO, 0),
		Stashes:     make([]StashDTO, 0),
	}

	ingestions, err := s.ingestions.FindSince(ctx, accountID, time.Time{})
	if err != nil {
		return nil, err
	}
	for _, i := range ingestions {
		doc.Ingestions = append(doc.Ingestions, ToIngestionDTO(i))
	}

	for page := 1; ; page++ {
		stashes, total, err := s.stashes.FindAll(ctx, journal.StashFilter{
			AccountID:      accountID,
			IncludeExpired: true,
			Page:           page,
			PageSize:       exportStashPage,
		})
		if err != nil {
			return nil, err
		}
		for _, st := range stashes {
			doc.Stashes = append(doc.Stashes, ToStashDTO(st, now))
		}
		if len(stashes) == 0 || int64(len(doc.Stashes)) >= total {
			break
		}
	}
	return doc, nil
}

// ExportActiveSince exports every account that logged an ingestion since the
// given time. Failures are logged and the remaining accounts still run.
func (s *ExportService) ExportActiveSince(ctx context.Context, since time.Time) (int, error) {
	accounts, err := s.ingestions.FindAccountsLoggedSince(ctx, since)
	if err != nil {
		return 0, err
	}

	exported := 0
	var errs []error
	for _, accountID := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Export(ctx, accountID); err != nil {
			s.logger.Error("Journal export failed", zap.String("account_id", accountID.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("account %s: %w", accountID, err))
			continue
		}
		exported++
	}
	return exported, errors.Join(errs...)
}

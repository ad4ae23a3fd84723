package persistence

import (
	"errors"
	"strings"

	"github.com/neuronek/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notFound maps gorm's missing-row error to the domain error
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// updateRow writes every column of model to the row with the same primary key
func updateRow(tx *gorm.DB, model any) error {
	result := tx.Model(model).Select("*").Omit("created_at", clause.Associations).Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// updateVersioned writes the model built by build only while the row still
// carries the aggregate's persisted version. A stale aggregate gets
// shared.ErrConcurrencyConflict and a missing row shared.ErrNotFound.
func updateVersioned(tx *gorm.DB, root *shared.BaseAggregateRoot, build func() any) error {
	expected := root.PersistedVersion()
	if root.Version <= expected {
		root.Version = expected + 1
	}
	model := build()
	result := tx.Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit("created_at", clause.Associations).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(model).Where("id = ?", root.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	root.MarkPersisted()
	return nil
}

// likePattern builds a case-insensitive LIKE argument; callers compare against LOWER(column)
func likePattern(keyword string) string {
	return "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
}

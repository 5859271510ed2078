package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samerrd/language-reminder-server/internal/middleware"
	"github.com/samerrd/language-reminder-server/internal/model"

	"gorm.io/gorm"
)

// ItemRepository is the storage collaborator for items. The *gorm.DB handle
// is passed per call so the same method works inside and outside a
// transaction.
type ItemRepository interface {
	Create(ctx context.Context, tx *gorm.DB, item *model.Item) error
	FindByID(ctx context.Context, db *gorm.DB, id uint64) (*model.Item, error)
	// FindNextDue returns the single most urgent due item of the partition:
	// smallest due_at <= now, ties broken by smallest id. model.ErrNotFound
	// when nothing is due.
	FindNextDue(ctx context.Context, db *gorm.DB, partition model.Partition, now time.Time) (*model.Item, error)
	// FindDue returns up to limit due items in the same order as
	// FindNextDue, as a snapshot at query time.
	FindDue(ctx context.Context, db *gorm.DB, partition model.Partition, now time.Time, limit int) ([]*model.Item, error)
	// FindRecent returns items of the partition newest first by id.
	FindRecent(ctx context.Context, db *gorm.DB, partition model.Partition, limit, offset int) ([]*model.Item, error)
	TextExists(ctx context.Context, db *gorm.DB, partition model.Partition, text string) (bool, error)
	// UpdateVersioned is the update-if-unchanged primitive: it writes the
	// scheduling fields of item only if the stored version still equals
	// expectedVersion, bumping the version in the same statement.
	// model.ErrConflict when the row changed underneath the caller.
	UpdateVersioned(ctx context.Context, tx *gorm.DB, item *model.Item, expectedVersion uint64) error
}

type gormItemRepository struct{}

func NewGormItemRepository() ItemRepository {
	return &gormItemRepository{}
}

func (r *gormItemRepository) Create(ctx context.Context, tx *gorm.DB, item *model.Item) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return model.ErrConflict
		}
		logger.Error("Error creating item in DB",
			"error", result.Error,
			"partition", string(item.Partition),
		)
		return fmt.Errorf("gormItemRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormItemRepository) FindByID(ctx context.Context, db *gorm.DB, id uint64) (*model.Item, error) {
	logger := middleware.GetLogger(ctx)
	var item model.Item
	result := db.WithContext(ctx).Where("id = ?", id).First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding item by ID in DB", "error", result.Error, "item_id", id)
		return nil, fmt.Errorf("gormItemRepository.FindByID: %w", result.Error)
	}
	return &item, nil
}

func (r *gormItemRepository) FindNextDue(ctx context.Context, db *gorm.DB, partition model.Partition, now time.Time) (*model.Item, error) {
	logger := middleware.GetLogger(ctx)
	var item model.Item
	result := db.WithContext(ctx).
		Where("language_partition = ? AND due_at <= ?", partition, now).
		Order("due_at ASC, id ASC").
		First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding next due item in DB", "error", result.Error, "partition", string(partition))
		return nil, fmt.Errorf("gormItemRepository.FindNextDue: %w", result.Error)
	}
	return &item, nil
}

func (r *gormItemRepository) FindDue(ctx context.Context, db *gorm.DB, partition model.Partition, now time.Time, limit int) ([]*model.Item, error) {
	logger := middleware.GetLogger(ctx)
	var items []*model.Item
	result := db.WithContext(ctx).
		Where("language_partition = ? AND due_at <= ?", partition, now).
		Order("due_at ASC, id ASC").
		Limit(limit).
		Find(&items)
	if result.Error != nil {
		logger.Error("Error finding due items in DB", "error", result.Error, "partition", string(partition))
		return nil, fmt.Errorf("gormItemRepository.FindDue: %w", result.Error)
	}
	return items, nil
}

func (r *gormItemRepository) FindRecent(ctx context.Context, db *gorm.DB, partition model.Partition, limit, offset int) ([]*model.Item, error) {
	logger := middleware.GetLogger(ctx)
	var items []*model.Item
	result := db.WithContext(ctx).
		Where("language_partition = ?", partition).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&items)
	if result.Error != nil {
		logger.Error("Error finding recent items in DB", "error", result.Error, "partition", string(partition))
		return nil, fmt.Errorf("gormItemRepository.FindRecent: %w", result.Error)
	}
	return items, nil
}

func (r *gormItemRepository) TextExists(ctx context.Context, db *gorm.DB, partition model.Partition, text string) (bool, error) {
	logger := middleware.GetLogger(ctx)
	var count int64
	result := db.WithContext(ctx).Model(&model.Item{}).
		Where("language_partition = ? AND text = ?", partition, text).
		Count(&count)
	if result.Error != nil {
		logger.Error("Error checking text existence in DB", "error", result.Error, "partition", string(partition))
		return false, fmt.Errorf("gormItemRepository.TextExists: %w", result.Error)
	}
	return count > 0, nil
}

func (r *gormItemRepository) UpdateVersioned(ctx context.Context, tx *gorm.DB, item *model.Item, expectedVersion uint64) error {
	logger := middleware.GetLogger(ctx)
	updates := map[string]interface{}{
		"review_state": item.ReviewState,
		"repetitions":  item.Repetitions,
		"lapses":       item.Lapses,
		"last_rating":  item.LastRating,
		"due_at":       item.DueAt,
		"version":      expectedVersion + 1,
	}
	result := tx.WithContext(ctx).Model(&model.Item{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating item in DB", "error", result.Error, "item_id", item.ID)
		return fmt.Errorf("gormItemRepository.UpdateVersioned: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Row gone or version moved on; the caller distinguishes by
		// re-reading.
		return model.ErrConflict
	}
	item.Version = expectedVersion + 1
	return nil
}

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

// ReceiptRepository stores short-lived review receipts, keyed by
// (item_id, rating, bucket). The composite primary key doubles as the dedup
// constraint for at-least-once rating delivery.
type ReceiptRepository interface {
	Find(ctx context.Context, db *gorm.DB, itemID uint64, rating model.Rating, bucket int64) (*model.ReviewReceipt, error)
	// Create inserts a receipt; model.ErrConflict when the same dedup key
	// was inserted concurrently.
	Create(ctx context.Context, tx *gorm.DB, receipt *model.ReviewReceipt) error
	// PurgeBefore removes receipts applied before cutoff. Best effort; the
	// dedup window bounds how long rows matter.
	PurgeBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) error
}

type gormReceiptRepository struct{}

func NewGormReceiptRepository() ReceiptRepository {
	return &gormReceiptRepository{}
}

func (r *gormReceiptRepository) Find(ctx context.Context, db *gorm.DB, itemID uint64, rating model.Rating, bucket int64) (*model.ReviewReceipt, error) {
	var receipt model.ReviewReceipt
	result := db.WithContext(ctx).
		Where("item_id = ? AND rating = ? AND bucket = ?", itemID, rating, bucket).
		First(&receipt)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormReceiptRepository.Find: %w", result.Error)
	}
	return &receipt, nil
}

func (r *gormReceiptRepository) Create(ctx context.Context, tx *gorm.DB, receipt *model.ReviewReceipt) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(receipt)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return model.ErrConflict
		}
		logger.Error("Error creating review receipt in DB",
			"error", result.Error,
			"item_id", receipt.ItemID,
		)
		return fmt.Errorf("gormReceiptRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormReceiptRepository) PurgeBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) error {
	result := db.WithContext(ctx).
		Where("applied_at < ?", cutoff).
		Delete(&model.ReviewReceipt{})
	if result.Error != nil {
		return fmt.Errorf("gormReceiptRepository.PurgeBefore: %w", result.Error)
	}
	return nil
}

// internal/service/item_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samerrd/language-reminder-server/internal/config"
	"github.com/samerrd/language-reminder-server/internal/middleware"
	"github.com/samerrd/language-reminder-server/internal/model"
	"github.com/samerrd/language-reminder-server/internal/repository"

	"gorm.io/gorm"
)

// ItemService is the ingestion gate plus the read-only item surface.
type ItemService interface {
	// Ingest trims text, rejects blanks and (when dedup is enabled)
	// per-partition duplicates as non-error outcomes, and otherwise creates
	// the item in state new with the configured default due time.
	Ingest(ctx context.Context, text string, partition model.Partition) (*model.IngestResult, error)
	Get(ctx context.Context, itemID uint64) (*model.Item, error)
	// Recent returns items of the partition newest first by id.
	Recent(ctx context.Context, partition model.Partition, limit, offset int) ([]*model.Item, error)
}

type itemService struct {
	db       *gorm.DB
	itemRepo repository.ItemRepository
	cfg      *config.Config
}

func NewItemService(db *gorm.DB, itemRepo repository.ItemRepository, cfg *config.Config) ItemService {
	return &itemService{
		db:       db,
		itemRepo: itemRepo,
		cfg:      cfg,
	}
}

func (s *itemService) Ingest(ctx context.Context, text string, partition model.Partition) (*model.IngestResult, error) {
	logger := middleware.GetLogger(ctx).With("partition", string(partition))

	if !partition.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "Unknown language partition.", "partition", model.ErrInvalidInput)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		// Upstream webhook retries commonly deliver blanks; this is an
		// outcome, not a failure.
		logger.Info("Ingest rejected: empty text after trim")
		return &model.IngestResult{Accepted: false, Reason: model.IngestReasonEmpty}, nil
	}

	var created *model.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.cfg.App.DedupEnabled {
			exists, err := s.itemRepo.TextExists(ctx, tx, partition, text)
			if err != nil {
				return err
			}
			if exists {
				return model.ErrConflict
			}
		}

		now := time.Now()
		item := &model.Item{
			Text:        text,
			Partition:   partition,
			ReviewState: model.StateNew,
			DueAt:       now.Add(s.cfg.App.IngestGrace),
		}
		// Create surfaces a unique-index violation as ErrConflict, closing
		// the race between two concurrent check-and-inserts.
		if err := s.itemRepo.Create(ctx, tx, item); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			logger.Info("Ingest rejected: duplicate text in partition")
			return &model.IngestResult{Accepted: false, Reason: model.IngestReasonDuplicate}, nil
		}
		logger.Error("Transaction failed for Ingest", "error", err)
		return nil, err
	}

	logger.Info("Item ingested", "item_id", created.ID)
	return &model.IngestResult{Accepted: true, ID: created.ID}, nil
}

func (s *itemService) Get(ctx context.Context, itemID uint64) (*model.Item, error) {
	return s.itemRepo.FindByID(ctx, s.db, itemID)
}

func (s *itemService) Recent(ctx context.Context, partition model.Partition, limit, offset int) ([]*model.Item, error) {
	logger := middleware.GetLogger(ctx).With("partition", string(partition))

	if !partition.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "Unknown language partition.", "partition", model.ErrInvalidInput)
	}
	if limit <= 0 || limit > s.cfg.App.ReviewLimit {
		limit = s.cfg.App.ReviewLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.itemRepo.FindRecent(ctx, s.db, partition, limit, offset)
	if err != nil {
		logger.Error("Failed to list recent items", "error", err)
		return nil, err
	}
	return items, nil
}

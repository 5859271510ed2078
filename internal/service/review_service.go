// internal/service/review_service.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samerrd/language-reminder-server/internal/config"
	"github.com/samerrd/language-reminder-server/internal/middleware"
	"github.com/samerrd/language-reminder-server/internal/model"
	"github.com/samerrd/language-reminder-server/internal/notify"
	"github.com/samerrd/language-reminder-server/internal/repository"
	"github.com/samerrd/language-reminder-server/internal/scheduler"
)

// applyRatingRetries bounds the optimistic-concurrency retry loop. Two
// concurrent ratings for one item resolve on the second attempt; more
// contention than that on a single sentence means something is wrong.
const applyRatingRetries = 3

// ReviewService is the review transaction coordinator and due-queue
// selector.
type ReviewService interface {
	// ApplyRating applies one rating to one item. It is idempotent under
	// at-least-once delivery of the identical (item, rating) pair within
	// the dedup window, and serializes distinct concurrent ratings for the
	// same item. Unknown ratings are rejected before any read or write;
	// unknown items surface model.ErrNotFound.
	ApplyRating(ctx context.Context, itemID uint64, rating model.Rating) (*model.ReviewResult, error)
	// NextDue returns the most urgent due item of the partition (smallest
	// due_at, ties by smallest id), or nil when nothing is due. No item due
	// is a normal outcome, not an error.
	NextDue(ctx context.Context, partition model.Partition) (*model.Item, error)
	// DueItems returns currently-due items in the NextDue order, as a
	// snapshot at call time: concurrent mutation does not reorder an
	// already-returned batch.
	DueItems(ctx context.Context, partition model.Partition, limit int) ([]*model.Item, error)
}

type reviewService struct {
	db          *gorm.DB
	itemRepo    repository.ItemRepository
	receiptRepo repository.ReceiptRepository
	policy      scheduler.IntervalPolicy
	events      *notify.Dispatcher
	cfg         *config.Config
}

func NewReviewService(db *gorm.DB, itemRepo repository.ItemRepository, receiptRepo repository.ReceiptRepository, policy scheduler.IntervalPolicy, events *notify.Dispatcher, cfg *config.Config) ReviewService {
	return &reviewService{
		db:          db,
		itemRepo:    itemRepo,
		receiptRepo: receiptRepo,
		policy:      policy,
		events:      events,
		cfg:         cfg,
	}
}

func (s *reviewService) ApplyRating(ctx context.Context, itemID uint64, rating model.Rating) (*model.ReviewResult, error) {
	logger := middleware.GetLogger(ctx).With("item_id", itemID, "rating", rating.String())

	// Fail fast, before any store round trip.
	if !rating.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "Unknown rating value.", "rating", model.ErrInvalidInput)
	}

	now := time.Now()
	window := s.cfg.App.ReviewDedupWindow
	bucket := now.Truncate(window).Unix()

	var result *model.ReviewResult
	var replayed bool

	var lastErr error
	for attempt := 0; attempt < applyRatingRetries; attempt++ {
		result, replayed, lastErr = s.applyOnce(ctx, itemID, rating, now, bucket)
		if lastErr == nil {
			break
		}
		// A version or receipt collision means a concurrent writer won;
		// the next attempt starts from that writer's committed state.
		if errors.Is(lastErr, model.ErrConflict) {
			logger.Debug("Rating application conflicted, retrying", "attempt", attempt+1)
			continue
		}
		return nil, lastErr
	}
	if lastErr != nil {
		logger.Error("Rating application kept conflicting", "error", lastErr)
		return nil, lastErr
	}

	if replayed {
		logger.Info("Duplicate rating delivery replayed", "new_state", result.NewState.String())
		return result, nil
	}

	logger.Info("Rating applied", "new_state", result.NewState.String(), "due_at", result.DueAt)

	s.events.RatingApplied(notify.RatingAppliedEvent{
		EventID:  uuid.New(),
		ItemID:   result.ItemID,
		Rating:   rating,
		NewState: result.NewState,
		DueAt:    result.DueAt,
		At:       now,
	})

	// Receipts older than two windows can no longer match any delivery.
	if err := s.receiptRepo.PurgeBefore(ctx, s.db, now.Add(-2*window)); err != nil {
		logger.Warn("Failed to purge stale review receipts", "error", err)
	}

	return result, nil
}

// applyOnce runs one attempt of the rating transaction. The bool result
// reports whether a stored receipt was replayed instead of transitioning.
func (s *reviewService) applyOnce(ctx context.Context, itemID uint64, rating model.Rating, now time.Time, bucket int64) (*model.ReviewResult, bool, error) {
	var result *model.ReviewResult
	var replayed bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receipt, err := s.receiptRepo.Find(ctx, tx, itemID, rating, bucket)
		if err == nil {
			// Identical delivery inside the window: both callers observe
			// the first transition's result.
			result = &model.ReviewResult{ItemID: receipt.ItemID, NewState: receipt.State, DueAt: receipt.DueAt}
			replayed = true
			return nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		item, err := s.itemRepo.FindByID(ctx, tx, itemID)
		if err != nil {
			return err // model.ErrNotFound surfaces unchanged
		}

		next, err := scheduler.Advance(*item, rating, now, s.policy)
		if err != nil {
			if errors.Is(err, scheduler.ErrInvalidRating) {
				return model.NewAppError("VALIDATION_ERROR", "Unknown rating value.", "rating", model.ErrInvalidInput)
			}
			return err
		}

		if err := s.itemRepo.UpdateVersioned(ctx, tx, &next, item.Version); err != nil {
			return err // model.ErrConflict drives the retry loop
		}

		if err := s.receiptRepo.Create(ctx, tx, &model.ReviewReceipt{
			ItemID:    itemID,
			Rating:    rating,
			Bucket:    bucket,
			State:     next.ReviewState,
			DueAt:     next.DueAt,
			AppliedAt: now,
		}); err != nil {
			return err
		}

		result = &model.ReviewResult{ItemID: next.ID, NewState: next.ReviewState, DueAt: next.DueAt}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, replayed, nil
}

func (s *reviewService) NextDue(ctx context.Context, partition model.Partition) (*model.Item, error) {
	logger := middleware.GetLogger(ctx).With("partition", string(partition))

	if !partition.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "Unknown language partition.", "partition", model.ErrInvalidInput)
	}

	item, err := s.itemRepo.FindNextDue(ctx, s.db, partition, time.Now())
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find next due item", "error", err)
		return nil, err
	}

	s.events.ItemDue(notify.ItemDueEvent{
		EventID: uuid.New(),
		Item:    *item,
		At:      time.Now(),
	})
	return item, nil
}

func (s *reviewService) DueItems(ctx context.Context, partition model.Partition, limit int) ([]*model.Item, error) {
	logger := middleware.GetLogger(ctx).With("partition", string(partition))

	if !partition.IsValid() {
		return nil, model.NewAppError("VALIDATION_ERROR", "Unknown language partition.", "partition", model.ErrInvalidInput)
	}
	if limit <= 0 || limit > s.cfg.App.ReviewLimit {
		limit = s.cfg.App.ReviewLimit
	}

	items, err := s.itemRepo.FindDue(ctx, s.db, partition, time.Now(), limit)
	if err != nil {
		logger.Error("Failed to list due items", "error", err)
		return nil, err
	}
	return items, nil
}

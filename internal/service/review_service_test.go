package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/samerrd/language-reminder-server/internal/model"
	"github.com/samerrd/language-reminder-server/internal/notify"
	"github.com/samerrd/language-reminder-server/internal/repository"
	"github.com/samerrd/language-reminder-server/internal/scheduler"
)

func newTestReviewService(t *testing.T, db *gorm.DB) (ReviewService, ItemService) {
	t.Helper()
	cfg := newTestConfig(true)
	itemRepo := repository.NewGormItemRepository()
	receiptRepo := repository.NewGormReceiptRepository()
	policy := scheduler.NewFixedTablePolicy(cfg.App.EasyIntervalDays)
	events := notify.NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewReviewService(db, itemRepo, receiptRepo, policy, events, cfg),
		NewItemService(db, itemRepo, cfg)
}

func mustIngest(t *testing.T, items ItemService, text string, partition model.Partition) uint64 {
	t.Helper()
	result, err := items.Ingest(context.Background(), text, partition)
	require.NoError(t, err)
	require.True(t, result.Accepted)
	return result.ID
}

func TestReviewService_ApplyRating_GoodThenAgain(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, items := newTestReviewService(t, db)

	id := mustIngest(t, items, "La pomme est rouge", model.PartitionES)

	// Immediately due, so the selector surfaces it right away.
	due, err := reviews.NextDue(ctx, model.PartitionES)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, id, due.ID)

	ratedAt := time.Now()
	result, err := reviews.ApplyRating(ctx, id, model.Good)
	require.NoError(t, err)
	assert.Equal(t, id, result.ItemID)
	assert.Equal(t, model.StateReview, result.NewState)
	assert.WithinDuration(t, ratedAt.Add(24*time.Hour), result.DueAt, 5*time.Second)

	var item model.Item
	require.NoError(t, db.First(&item, id).Error)
	assert.Equal(t, model.StateReview, item.ReviewState)
	assert.Equal(t, uint32(1), item.Repetitions)
	assert.Equal(t, uint32(0), item.Lapses)
	require.NotNil(t, item.LastRating)
	assert.Equal(t, model.Good, *item.LastRating)

	// A lapse drops the item into relearning ten minutes out.
	ratedAt = time.Now()
	result, err = reviews.ApplyRating(ctx, id, model.Again)
	require.NoError(t, err)
	assert.Equal(t, model.StateRelearning, result.NewState)
	assert.WithinDuration(t, ratedAt.Add(10*time.Minute), result.DueAt, 5*time.Second)

	require.NoError(t, db.First(&item, id).Error)
	assert.Equal(t, uint32(1), item.Repetitions)
	assert.Equal(t, uint32(1), item.Lapses)
	require.NotNil(t, item.LastRating)
	assert.Equal(t, model.Again, *item.LastRating)
}

func TestReviewService_ApplyRating_NotFound(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, _ := newTestReviewService(t, db)

	_, err := reviews.ApplyRating(ctx, 9999, model.Good)
	assert.ErrorIs(t, err, model.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&model.ReviewReceipt{}).Count(&count).Error)
	assert.Zero(t, count, "a failed rating must leave no trace")
}

func TestReviewService_ApplyRating_RejectsUnknownRatingWithoutMutation(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, items := newTestReviewService(t, db)

	id := mustIngest(t, items, "untouched", model.PartitionEN)

	_, err := reviews.ApplyRating(ctx, id, model.Rating(42))
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	var item model.Item
	require.NoError(t, db.First(&item, id).Error)
	assert.Equal(t, model.StateNew, item.ReviewState)
	assert.Zero(t, item.Repetitions)
	assert.Zero(t, item.Lapses)
	assert.Nil(t, item.LastRating)
}

func TestReviewService_ApplyRating_DuplicateDeliveryCountsOnce(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, items := newTestReviewService(t, db)

	id := mustIngest(t, items, "double tap", model.PartitionEN)

	first, err := reviews.ApplyRating(ctx, id, model.Good)
	require.NoError(t, err)

	second, err := reviews.ApplyRating(ctx, id, model.Good)
	require.NoError(t, err)

	// Both callers observe the same final result.
	assert.Equal(t, first.NewState, second.NewState)
	assert.True(t, first.DueAt.Equal(second.DueAt) || first.DueAt.Sub(second.DueAt) < time.Second)

	var item model.Item
	require.NoError(t, db.First(&item, id).Error)
	assert.Equal(t, uint32(1), item.Repetitions, "duplicate delivery must not double-count")
	assert.Equal(t, uint64(1), item.Version, "exactly one state transition")
}

func TestReviewService_ApplyRating_DistinctRatingsBothApply(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, items := newTestReviewService(t, db)

	id := mustIngest(t, items, "changing answers", model.PartitionEN)

	_, err := reviews.ApplyRating(ctx, id, model.Good)
	require.NoError(t, err)
	// A different rating is not a duplicate; it starts from the first
	// rating's committed state.
	result, err := reviews.ApplyRating(ctx, id, model.Again)
	require.NoError(t, err)
	assert.Equal(t, model.StateRelearning, result.NewState)

	var item model.Item
	require.NoError(t, db.First(&item, id).Error)
	assert.Equal(t, uint32(1), item.Repetitions)
	assert.Equal(t, uint32(1), item.Lapses)
	assert.Equal(t, uint64(2), item.Version)
}

func TestReviewService_NextDue_OrderAndDrain(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, items := newTestReviewService(t, db)

	idA := mustIngest(t, items, "alpha", model.PartitionEN)
	idB := mustIngest(t, items, "beta", model.PartitionEN)

	// Equal due times: insertion order decides.
	due, err := reviews.NextDue(ctx, model.PartitionEN)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, idA, due.ID)

	_, err = reviews.ApplyRating(ctx, idA, model.Good)
	require.NoError(t, err)

	// After rating, the next item surfaces.
	due, err = reviews.NextDue(ctx, model.PartitionEN)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, idB, due.ID)

	_, err = reviews.ApplyRating(ctx, idB, model.Easy)
	require.NoError(t, err)

	// Nothing due is a normal outcome, not an error.
	due, err = reviews.NextDue(ctx, model.PartitionEN)
	require.NoError(t, err)
	assert.Nil(t, due)
}

func TestReviewService_DueItems_Snapshot(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t, true)
	reviews, items := newTestReviewService(t, db)

	idA := mustIngest(t, items, "uno", model.PartitionES)
	idB := mustIngest(t, items, "dos", model.PartitionES)

	batch, err := reviews.DueItems(ctx, model.PartitionES, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, idA, batch[0].ID)
	assert.Equal(t, idB, batch[1].ID)

	// Rating an item after the snapshot does not mutate the batch already
	// handed out.
	_, err = reviews.ApplyRating(ctx, idA, model.Good)
	require.NoError(t, err)
	assert.Equal(t, idA, batch[0].ID)
	assert.Equal(t, model.StateNew, batch[0].ReviewState)

	batch2, err := reviews.DueItems(ctx, model.PartitionES, 10)
	require.NoError(t, err)
	require.Len(t, batch2, 1)
	assert.Equal(t, idB, batch2[0].ID)
}

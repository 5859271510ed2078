package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samerrd/language-reminder-server/internal/model"
)

func TestGormReceiptRepository_DedupKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, true)
	repo := NewGormReceiptRepository()

	now := time.Now()
	bucket := now.Truncate(time.Hour).Unix()
	receipt := &model.ReviewReceipt{
		ItemID:    1,
		Rating:    model.Good,
		Bucket:    bucket,
		State:     model.StateReview,
		DueAt:     now.Add(24 * time.Hour),
		AppliedAt: now,
	}
	require.NoError(t, repo.Create(ctx, db, receipt))

	// Same (item, rating, bucket) is a conflict, the dedup contract.
	err := repo.Create(ctx, db, &model.ReviewReceipt{
		ItemID: 1, Rating: model.Good, Bucket: bucket,
		State: model.StateReview, DueAt: now, AppliedAt: now,
	})
	assert.ErrorIs(t, err, model.ErrConflict)

	// A different rating or bucket is a fresh key.
	require.NoError(t, repo.Create(ctx, db, &model.ReviewReceipt{
		ItemID: 1, Rating: model.Again, Bucket: bucket,
		State: model.StateRelearning, DueAt: now, AppliedAt: now,
	}))
	require.NoError(t, repo.Create(ctx, db, &model.ReviewReceipt{
		ItemID: 1, Rating: model.Good, Bucket: bucket + 3600,
		State: model.StateReview, DueAt: now, AppliedAt: now,
	}))

	found, err := repo.Find(ctx, db, 1, model.Good, bucket)
	require.NoError(t, err)
	assert.Equal(t, model.StateReview, found.State)
	assert.WithinDuration(t, receipt.DueAt, found.DueAt, time.Second)

	_, err = repo.Find(ctx, db, 2, model.Good, bucket)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGormReceiptRepository_PurgeBefore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, true)
	repo := NewGormReceiptRepository()

	now := time.Now()
	old := &model.ReviewReceipt{ItemID: 1, Rating: model.Good, Bucket: 1, State: model.StateReview, DueAt: now, AppliedAt: now.Add(-2 * time.Hour)}
	fresh := &model.ReviewReceipt{ItemID: 2, Rating: model.Good, Bucket: 2, State: model.StateReview, DueAt: now, AppliedAt: now}
	require.NoError(t, repo.Create(ctx, db, old))
	require.NoError(t, repo.Create(ctx, db, fresh))

	require.NoError(t, repo.PurgeBefore(ctx, db, now.Add(-time.Hour)))

	_, err := repo.Find(ctx, db, 1, model.Good, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = repo.Find(ctx, db, 2, model.Good, 2)
	assert.NoError(t, err)
}

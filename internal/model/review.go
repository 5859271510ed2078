// internal/model/review.go
package model

import "time"

// SubmitRatingRequest is the review-result submission DTO. Rating rejects
// unknown values during unmarshalling.
type SubmitRatingRequest struct {
	Rating Rating `json:"rating" validate:"required"`
}

// ReviewResult is what a caller observes after a rating is applied. Both
// sides of a duplicate delivery observe the same ReviewResult.
type ReviewResult struct {
	ItemID   uint64      `json:"item_id"`
	NewState ReviewState `json:"new_state"`
	DueAt    time.Time   `json:"due_at"`
}

// ReviewReceipt records the outcome of one applied rating for the duration
// of the dedup window. A duplicate delivery of the same (item, rating) pair
// inside the window replays the stored result instead of transitioning the
// item a second time. The composite primary key is the dedup key.
type ReviewReceipt struct {
	ItemID    uint64      `gorm:"primaryKey;autoIncrement:false"`
	Rating    Rating      `gorm:"primaryKey"`
	Bucket    int64       `gorm:"primaryKey"` // unix seconds of the window start
	State     ReviewState `gorm:"not null"`
	DueAt     time.Time   `gorm:"not null"`
	AppliedAt time.Time   `gorm:"not null;index"`
}

func (ReviewReceipt) TableName() string {
	return "review_receipts"
}

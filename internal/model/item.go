// internal/model/item.go
package model

import (
	"time"
)

// Item is one captured sentence under spaced review. Text and partition are
// fixed at ingestion; only the review coordinator mutates the scheduling
// fields. Items are never physically deleted by the core.
type Item struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Text        string      `gorm:"not null" json:"text"`
	Partition   Partition   `gorm:"column:language_partition;type:varchar(8);not null;index" json:"partition"`
	ReviewState ReviewState `gorm:"not null;default:1" json:"review_state"`
	Repetitions uint32      `gorm:"not null;default:0" json:"repetitions"`
	Lapses      uint32      `gorm:"not null;default:0" json:"lapses"`
	LastRating  *Rating     `gorm:"default:null" json:"last_rating,omitempty"`

	// DueAt is never zero. At creation it is ingestion time plus the
	// configured grace (app.ingest_grace, default 0 = immediately due).
	DueAt time.Time `gorm:"not null;index" json:"due_at"`

	// Version backs the update-if-unchanged primitive; bumped on every
	// state-affecting write.
	Version   uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Item) TableName() string {
	return "items"
}

// Ingest rejection reasons. Rejections are outcomes, not errors.
const (
	IngestReasonEmpty     = "empty"
	IngestReasonDuplicate = "duplicate"
)

// IngestRequest is the item-capture request DTO.
type IngestRequest struct {
	Text      string `json:"text"`
	Partition string `json:"partition" validate:"required"`
}

// IngestResult reports whether a sentence was stored. Blank and duplicate
// text come back with Accepted=false and a reason so upstream webhook
// retries never see a hard failure.
type IngestResult struct {
	Accepted bool   `json:"accepted"`
	ID       uint64 `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

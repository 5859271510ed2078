package scheduler

import (
	"fmt"
	"time"

	"github.com/samerrd/language-reminder-server/internal/model"
)

// Advance applies one rating to a copy of the item and returns the advanced
// copy. It is a pure step: the caller persists the result (or discards it on
// failure, so no partial state ever escapes).
//
// Counter rules, applied together with the state transition:
//
//	repetitions += 1 unless the rating is again
//	lapses      += 1 iff the rating is again
//	last_rating  = rating
func Advance(item model.Item, rating model.Rating, now time.Time, policy IntervalPolicy) (model.Item, error) {
	if !rating.IsValid() {
		return model.Item{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}

	dueAt, newState, err := policy.Next(now, item.ReviewState, rating)
	if err != nil {
		return model.Item{}, err
	}

	item.ReviewState = newState
	if rating == model.Again {
		item.Lapses++
	} else {
		item.Repetitions++
	}
	r := rating
	item.LastRating = &r
	item.DueAt = dueAt
	return item, nil
}

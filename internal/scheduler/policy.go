// Package scheduler decides when a reviewed item is shown next. The interval
// policy and the state transition are co-designed: one call yields both the
// new due timestamp and the new review state, so there is a single source of
// truth per transition.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/samerrd/language-reminder-server/internal/model"
)

// ErrInvalidRating is returned for ratings outside again/hard/good/easy.
// Such ratings are rejected before any state is touched, never mapped to a
// default interval.
var ErrInvalidRating = errors.New("scheduler: invalid rating")

// IntervalPolicy maps a rating and the current review state to the next due
// timestamp and review state. Implementations must be deterministic
// functions of their inputs. The coordinator only ever talks to this
// interface, so a stability/difficulty based algorithm can be substituted
// without touching its control flow.
type IntervalPolicy interface {
	Next(now time.Time, state model.ReviewState, rating model.Rating) (time.Time, model.ReviewState, error)
}

// FixedTablePolicy is the default policy: a fixed offset per rating,
// independent of the current state.
//
//	again → +10 minutes, relearning
//	hard  → +12 hours,   learning
//	good  → +1 day,      review
//	easy  → +EasyInterval, review
type FixedTablePolicy struct {
	// EasyInterval is the offset applied for an easy rating. Historical
	// deployments disagreed between 3 and 7 days, so it is configuration,
	// not a constant baked into the table.
	EasyInterval time.Duration
}

// NewFixedTablePolicy builds the default policy. easyIntervalDays <= 0
// selects the standard 3-day interval.
func NewFixedTablePolicy(easyIntervalDays int) *FixedTablePolicy {
	if easyIntervalDays <= 0 {
		easyIntervalDays = 3
	}
	return &FixedTablePolicy{EasyInterval: time.Duration(easyIntervalDays) * 24 * time.Hour}
}

// Next implements IntervalPolicy.
func (p *FixedTablePolicy) Next(now time.Time, state model.ReviewState, rating model.Rating) (time.Time, model.ReviewState, error) {
	if !state.IsValid() {
		return time.Time{}, 0, fmt.Errorf("scheduler: invalid review state %d", int(state))
	}
	switch rating {
	case model.Again:
		return now.Add(10 * time.Minute), model.StateRelearning, nil
	case model.Hard:
		return now.Add(12 * time.Hour), model.StateLearning, nil
	case model.Good:
		return now.Add(24 * time.Hour), model.StateReview, nil
	case model.Easy:
		return now.Add(p.EasyInterval), model.StateReview, nil
	default:
		return time.Time{}, 0, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
}

package model

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// ReviewState is the coarse lifecycle stage of an item, distinct from its
// raw due timestamp.
type ReviewState int

const (
	StateNew        ReviewState = iota + 1 // Captured, never reviewed.
	StateLearning                          // Recalled with difficulty, still being learned.
	StateReview                            // In the long-term review cycle.
	StateRelearning                        // Forgotten, being relearned.
)

var (
	stateNames  = [...]string{StateNew: "new", StateLearning: "learning", StateReview: "review", StateRelearning: "relearning"}
	stateByName = map[string]ReviewState{
		"new":        StateNew,
		"learning":   StateLearning,
		"review":     StateReview,
		"relearning": StateRelearning,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = ReviewState(0)
	_ json.Marshaler           = ReviewState(0)
	_ json.Unmarshaler         = (*ReviewState)(nil)
	_ encoding.TextMarshaler   = ReviewState(0)
	_ encoding.TextUnmarshaler = (*ReviewState)(nil)
)

// IsValid reports whether s is one of the four review states.
func (s ReviewState) IsValid() bool {
	return s >= StateNew && s <= StateRelearning
}

// String returns the wire name of the state. For invalid values it returns
// "ReviewState(n)".
func (s ReviewState) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("ReviewState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s ReviewState) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: unknown review state %d", ErrInvalidInput, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ReviewState) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: unknown review state %q", ErrInvalidInput, text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. ReviewState serializes as a JSON string.
func (s ReviewState) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (s *ReviewState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("%w: malformed review state %s", ErrInvalidInput, data)
	}
	return s.UnmarshalText([]byte(str))
}

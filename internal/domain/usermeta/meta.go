// Package usermeta models per-device facts about a recipe that never reach the
// recipe store: the "my pick" flag, the star rating and view preferences.
package usermeta

import (
	"errors"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Meta is the device-local pick/rating record for one recipe
type Meta struct {
	IsMyPick bool       `json:"isMyPick"`
	Rating   *int       `json:"rating"`
	RatedAt  *time.Time `json:"ratedAt,omitempty"`
}

// Default returns the meta of a recipe the device has never touched
func Default() Meta {
	return Meta{}
}

func (m Meta) ToggleMyPick() Meta {
	m.IsMyPick = !m.IsMyPick
	return m
}

// SetRating records a 1-5 star rating stamped with now
func (m Meta) SetRating(rating int, now time.Time) (Meta, error) {
	if rating < MinRating || rating > MaxRating {
		return m, ErrInvalidRating
	}
	r := rating
	at := now.UTC()
	m.Rating = &r
	m.RatedAt = &at
	return m, nil
}

func (m Meta) ClearRating() Meta {
	m.Rating = nil
	m.RatedAt = nil
	return m
}

// HasRatingAtLeast reports whether a rating exists and reaches min
func (m Meta) HasRatingAtLeast(min int) bool {
	return m.Rating != nil && *m.Rating >= min
}

// IsZero reports whether the meta carries nothing worth persisting
func (m Meta) IsZero() bool {
	return !m.IsMyPick && m.Rating == nil
}

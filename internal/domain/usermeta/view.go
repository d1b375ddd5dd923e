package usermeta

import (
	"errors"
	"sort"
	"strings"
)

const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"

	LayoutList  = "list"
	LayoutCards = "cards"

	MaxNotesLength = 5000
	MaxServings    = 100
)

var (
	ErrInvalidUnits    = errors.New("units must be metric or imperial")
	ErrInvalidLayout   = errors.New("layout must be list or cards")
	ErrInvalidServings = errors.New("servings must be between 0 and 100")
	ErrNotesTooLong    = errors.New("notes must not exceed 5000 characters")
	ErrInvalidStep     = errors.New("completed steps must be non-negative step indexes")
)

// ViewPreferences is how a device last looked at a recipe. Servings of zero
// means the recipe's own servings.
type ViewPreferences struct {
	Units          string `json:"units"`
	Servings       int    `json:"servings"`
	Layout         string `json:"layout"`
	Notes          string `json:"notes"`
	CompletedSteps []int  `json:"completedSteps"`
}

func DefaultViewPreferences() ViewPreferences {
	return ViewPreferences{
		Units:          UnitsMetric,
		Layout:         LayoutList,
		CompletedSteps: []int{},
	}
}

// HasNotes reports whether the device wrote a non-blank note
func (v ViewPreferences) HasNotes() bool {
	return strings.TrimSpace(v.Notes) != ""
}

// Normalize fills blank fields with defaults and sorts and dedupes the
// completed steps.
func (v ViewPreferences) Normalize() ViewPreferences {
	if v.Units == "" {
		v.Units = UnitsMetric
	}
	if v.Layout == "" {
		v.Layout = LayoutList
	}
	seen := make(map[int]bool, len(v.CompletedSteps))
	steps := make([]int, 0, len(v.CompletedSteps))
	for _, s := range v.CompletedSteps {
		if !seen[s] {
			seen[s] = true
			steps = append(steps, s)
		}
	}
	sort.Ints(steps)
	v.CompletedSteps = steps
	return v
}

func (v ViewPreferences) Validate() error {
	switch v.Units {
	case UnitsMetric, UnitsImperial:
	default:
		return ErrInvalidUnits
	}
	switch v.Layout {
	case LayoutList, LayoutCards:
	default:
		return ErrInvalidLayout
	}
	if v.Servings < 0 || v.Servings > MaxServings {
		return ErrInvalidServings
	}
	if len([]rune(v.Notes)) > MaxNotesLength {
		return ErrNotesTooLong
	}
	for _, s := range v.CompletedSteps {
		if s < 0 {
			return ErrInvalidStep
		}
	}
	return nil
}

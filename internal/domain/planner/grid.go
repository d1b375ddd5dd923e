package planner

import (
	"errors"
	"fmt"
	"strings"
)

// DaysPerWeek is the width of the grid
const DaysPerWeek = 7

// MealType is a row of the grid
type MealType string

const (
	Breakfast MealType = MealBreakfast
	Lunch     MealType = MealLunch
	Dinner    MealType = MealDinner
)

// GridMealTypes lists the grid rows in display order
var GridMealTypes = []MealType{Breakfast, Lunch, Dinner}

var (
	ErrInvalidMealType = errors.New("meal type must be Breakfast, Lunch or Dinner")
	ErrInvalidDay      = errors.New("day must be between 0 and 6")
	ErrOverlap         = errors.New("assignments overlap")
	ErrOutOfGrid       = errors.New("assignment extends past the end of the week")
)

// ParseMealType accepts a grid row name case-insensitively
func ParseMealType(s string) (MealType, error) {
	for _, m := range GridMealTypes {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", ErrInvalidMealType
}

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

// Assignment places a recipe on a row for SpanDays consecutive days
type Assignment struct {
	RecipeID string   `json:"recipeId"`
	MealType MealType `json:"mealType"`
	StartDay int      `json:"startDay"`
	SpanDays int      `json:"spanDays"`
}

// EndDay is the exclusive end of the covered range
func (a Assignment) EndDay() int { return a.StartDay + a.SpanDays }

func (a Assignment) Covers(day int) bool {
	return day >= a.StartDay && day < a.EndDay()
}

// CellState describes one (meal type, day) cell
type CellState string

const (
	CellEmpty CellState = "empty"
	CellStart CellState = "start"
	CellSpan  CellState = "span"
)

// Plan is the set of assignments on the grid. The zero value is an empty plan.
// Every mutating method keeps assignments of the same meal type disjoint and
// inside the week, and reports whether anything changed.
type Plan struct {
	assignments []Assignment
}

// NewPlan wraps a set of assignments without checking them; call Validate
// on anything loaded from storage.
func NewPlan(assignments []Assignment) *Plan {
	return &Plan{assignments: append([]Assignment(nil), assignments...)}
}

// Assignments returns a copy in insertion order
func (p *Plan) Assignments() []Assignment {
	out := make([]Assignment, len(p.assignments))
	copy(out, p.assignments)
	return out
}

func (p *Plan) Len() int { return len(p.assignments) }

// Cell reports the state of a cell and the assignment covering it
func (p *Plan) Cell(meal MealType, day int) (CellState, *Assignment) {
	i := p.covering(meal, day)
	if i < 0 {
		return CellEmpty, nil
	}
	a := p.assignments[i]
	if a.StartDay == day {
		return CellStart, &a
	}
	return CellSpan, &a
}

// Place puts recipeID on a free cell with a span of one day. Any earlier
// assignment of the same recipe on the same row is removed.
func (p *Plan) Place(recipeID string, meal MealType, day int) bool {
	if recipeID == "" || !meal.Valid() || !inWeek(day) {
		return false
	}
	if p.covering(meal, day) >= 0 {
		return false
	}

	kept := p.assignments[:0:0]
	for _, a := range p.assignments {
		if a.RecipeID == recipeID && a.MealType == meal {
			continue
		}
		kept = append(kept, a)
	}
	p.assignments = append(kept, Assignment{
		RecipeID: recipeID,
		MealType: meal,
		StartDay: day,
		SpanDays: 1,
	})
	return true
}

// Extend grows the assignment starting at startDay by one day if the next
// day is inside the week and free.
func (p *Plan) Extend(meal MealType, startDay int) bool {
	i := p.startingAt(meal, startDay)
	if i < 0 {
		return false
	}
	next := p.assignments[i].EndDay()
	if next >= DaysPerWeek {
		return false
	}
	if j := p.covering(meal, next); j >= 0 && j != i {
		return false
	}
	p.assignments[i].SpanDays++
	return true
}

// Shrink reduces the span of the assignment starting at startDay, never below one
func (p *Plan) Shrink(meal MealType, startDay int) bool {
	i := p.startingAt(meal, startDay)
	if i < 0 || p.assignments[i].SpanDays <= 1 {
		return false
	}
	p.assignments[i].SpanDays--
	return true
}

// Remove deletes the assignment that starts on day. Span cells are not removable.
func (p *Plan) Remove(meal MealType, day int) bool {
	i := p.startingAt(meal, day)
	if i < 0 {
		return false
	}
	p.assignments = append(p.assignments[:i:i], p.assignments[i+1:]...)
	return true
}

// PruneRecipe removes every assignment of recipeID and returns how many went
func (p *Plan) PruneRecipe(recipeID string) int {
	kept := p.assignments[:0:0]
	for _, a := range p.assignments {
		if a.RecipeID != recipeID {
			kept = append(kept, a)
		}
	}
	removed := len(p.assignments) - len(kept)
	p.assignments = kept
	return removed
}

// RecipeIDs returns the distinct recipe ids in assignment order
func (p *Plan) RecipeIDs() []string {
	seen := make(map[string]bool, len(p.assignments))
	ids := make([]string, 0, len(p.assignments))
	for _, a := range p.assignments {
		if !seen[a.RecipeID] {
			seen[a.RecipeID] = true
			ids = append(ids, a.RecipeID)
		}
	}
	return ids
}

// Validate checks that every assignment is inside the grid and that
// assignments of the same meal type do not overlap.
func (p *Plan) Validate() error {
	var occupied [3][DaysPerWeek]bool
	for _, a := range p.assignments {
		row := rowIndex(a.MealType)
		if row < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidMealType, a.MealType)
		}
		if !inWeek(a.StartDay) || a.SpanDays < 1 {
			return fmt.Errorf("%w: start %d span %d", ErrInvalidDay, a.StartDay, a.SpanDays)
		}
		if a.EndDay() > DaysPerWeek {
			return fmt.Errorf("%w: %s day %d span %d", ErrOutOfGrid, a.MealType, a.StartDay, a.SpanDays)
		}
		for d := a.StartDay; d < a.EndDay(); d++ {
			if occupied[row][d] {
				return fmt.Errorf("%w: %s day %d", ErrOverlap, a.MealType, d)
			}
			occupied[row][d] = true
		}
	}
	return nil
}

func (p *Plan) covering(meal MealType, day int) int {
	for i, a := range p.assignments {
		if a.MealType == meal && a.Covers(day) {
			return i
		}
	}
	return -1
}

func (p *Plan) startingAt(meal MealType, day int) int {
	for i, a := range p.assignments {
		if a.MealType == meal && a.StartDay == day {
			return i
		}
	}
	return -1
}

func rowIndex(m MealType) int {
	for i, g := range GridMealTypes {
		if g == m {
			return i
		}
	}
	return -1
}

func inWeek(day int) bool {
	return day >= 0 && day < DaysPerWeek
}

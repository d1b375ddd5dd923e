package planner

import (
	"errors"
	"slices"
)

const (
	// StateKey names the weekly planner state in the device store
	StateKey = "weeklyMealsState"

	MaxSelections       = 12
	MinSelectionsToPlan = 6
)

var ErrSelectionLimit = errors.New("at most 12 recipes can be selected")

// WeeklyState is everything a device remembers about its weekly plan
type WeeklyState struct {
	Filters          Filters      `json:"filters"`
	SelectedIDs      []string     `json:"selectedIds"`
	ExpandedSections []string     `json:"expandedSections"`
	ShowMoreFilters  bool         `json:"showMoreFilters"`
	PlanAssignments  []Assignment `json:"planAssignments"`
}

func DefaultWeeklyState() WeeklyState {
	return WeeklyState{
		Filters:          DefaultFilters(),
		SelectedIDs:      []string{},
		ExpandedSections: []string{"time", "dietary"},
		PlanAssignments:  []Assignment{},
	}
}

// ToggleSelection adds or removes a recipe from the selection. Adding beyond
// MaxSelections fails with ErrSelectionLimit and leaves the state unchanged.
func (s *WeeklyState) ToggleSelection(recipeID string) (selected bool, err error) {
	if i := slices.Index(s.SelectedIDs, recipeID); i >= 0 {
		s.SelectedIDs = slices.Delete(slices.Clone(s.SelectedIDs), i, i+1)
		return false, nil
	}
	if len(s.SelectedIDs) >= MaxSelections {
		return false, ErrSelectionLimit
	}
	s.SelectedIDs = append(s.SelectedIDs, recipeID)
	return true, nil
}

// CanGenerate reports whether enough recipes are selected to build a plan
func (s WeeklyState) CanGenerate() bool {
	return len(s.SelectedIDs) >= MinSelectionsToPlan
}

// ToggleSection opens or collapses a filter rail section
func (s *WeeklyState) ToggleSection(section string) {
	if i := slices.Index(s.ExpandedSections, section); i >= 0 {
		s.ExpandedSections = slices.Delete(slices.Clone(s.ExpandedSections), i, i+1)
		return
	}
	s.ExpandedSections = append(s.ExpandedSections, section)
}

func (s *WeeklyState) Plan() *Plan {
	return NewPlan(s.PlanAssignments)
}

func (s *WeeklyState) SetPlan(p *Plan) {
	s.PlanAssignments = p.Assignments()
}

// PruneRecipe drops recipeID from the selection and the plan
func (s *WeeklyState) PruneRecipe(recipeID string) bool {
	changed := false
	if i := slices.Index(s.SelectedIDs, recipeID); i >= 0 {
		s.SelectedIDs = slices.Delete(slices.Clone(s.SelectedIDs), i, i+1)
		changed = true
	}
	plan := s.Plan()
	if plan.PruneRecipe(recipeID) > 0 {
		s.SetPlan(plan)
		changed = true
	}
	return changed
}

// Sanitize repairs state read from storage: missing lists become empty,
// duplicate selections collapse, the selection is capped and an invalid
// plan is dropped.
func (s WeeklyState) Sanitize() WeeklyState {
	s.Filters = s.Filters.Normalize()

	ids := make([]string, 0, len(s.SelectedIDs))
	for _, id := range s.SelectedIDs {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) > MaxSelections {
		ids = ids[:MaxSelections]
	}
	s.SelectedIDs = ids

	if s.ExpandedSections == nil {
		s.ExpandedSections = []string{}
	}
	if s.PlanAssignments == nil || NewPlan(s.PlanAssignments).Validate() != nil {
		s.PlanAssignments = []Assignment{}
	}
	return s
}

// Package planner provides the weekly planner, grocery list and per-recipe
// user meta use cases. All state is device scoped and lives in the device
// state store; recipes are read from the recipe repository.
package planner

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/application/devicestate"
	"github.com/tablewise/server/internal/domain/grocery"
	"github.com/tablewise/server/internal/domain/planner"
	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/domain/usermeta"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
)

// Service implements inbound.PlannerService and inbound.UserMetaService
type Service struct {
	recipes outbound.RecipeRepository
	state   *devicestate.Store
	now     func() time.Time
	logger  *zap.Logger
}

// NewService creates the planner service
func NewService(recipes outbound.RecipeRepository, state *devicestate.Store, logger *zap.Logger) *Service {
	return &Service{
		recipes: recipes,
		state:   state,
		now:     time.Now,
		logger:  logger.Named("planner-service"),
	}
}

var (
	_ inbound.PlannerService  = (*Service)(nil)
	_ inbound.UserMetaService = (*Service)(nil)
)

func (s *Service) loadState(ctx context.Context, deviceID string) planner.WeeklyState {
	st := devicestate.Load(ctx, s.state, devicestate.Key(deviceID, planner.StateKey), planner.DefaultWeeklyState())
	return st.Sanitize()
}

func (s *Service) saveState(ctx context.Context, deviceID string, st planner.WeeklyState) {
	devicestate.Save(ctx, s.state, devicestate.Key(deviceID, planner.StateKey), st)
}

func stateDTO(st planner.WeeklyState) *inbound.PlannerStateDTO {
	return &inbound.PlannerStateDTO{
		WeeklyState:       st,
		ActiveFilterCount: planner.ActiveFilterCount(st.Filters),
		CanGenerate:       st.CanGenerate(),
	}
}

// GetState returns the device's weekly state
func (s *Service) GetState(ctx context.Context, deviceID string) (*inbound.PlannerStateDTO, error) {
	return stateDTO(s.loadState(ctx, deviceID)), nil
}

// UpdateFilters replaces the filter set
func (s *Service) UpdateFilters(ctx context.Context, deviceID string, filters planner.Filters) (*inbound.PlannerStateDTO, error) {
	if filters.MaxMinutes != nil && *filters.MaxMinutes <= 0 {
		return nil, errors.NewBadRequestError("maxMinutes must be positive")
	}
	if filters.MinRating != nil && (*filters.MinRating < usermeta.MinRating || *filters.MinRating > usermeta.MaxRating) {
		return nil, errors.NewBadRequestError(usermeta.ErrInvalidRating.Error())
	}

	st := s.loadState(ctx, deviceID)
	st.Filters = filters.Normalize()
	s.saveState(ctx, deviceID, st)

	s.logger.Debug("Filters updated",
		zap.String("device_id", deviceID),
		zap.Int("active", planner.ActiveFilterCount(st.Filters)),
	)
	return stateDTO(st), nil
}

// ClearFilters resets every filter group
func (s *Service) ClearFilters(ctx context.Context, deviceID string) (*inbound.PlannerStateDTO, error) {
	st := s.loadState(ctx, deviceID)
	st.Filters = planner.DefaultFilters()
	s.saveState(ctx, deviceID, st)
	return stateDTO(st), nil
}

// UpdateLayout changes which filter rail sections are open
func (s *Service) UpdateLayout(ctx context.Context, deviceID string, cmd inbound.UpdateLayoutCommand) (*inbound.PlannerStateDTO, error) {
	st := s.loadState(ctx, deviceID)
	if cmd.ExpandedSections != nil {
		st.ExpandedSections = append([]string{}, (*cmd.ExpandedSections)...)
	}
	if cmd.ToggleSection != "" {
		st.ToggleSection(cmd.ToggleSection)
	}
	if cmd.ShowMoreFilters != nil {
		st.ShowMoreFilters = *cmd.ShowMoreFilters
	}
	s.saveState(ctx, deviceID, st)
	return stateDTO(st), nil
}

// ToggleSelection adds or removes a recipe from the week's selection
func (s *Service) ToggleSelection(ctx context.Context, deviceID, recipeID string) (*inbound.PlannerStateDTO, error) {
	st := s.loadState(ctx, deviceID)
	// deselecting never needs the recipe, so a deleted one can still be dropped
	if !slices.Contains(st.SelectedIDs, recipeID) {
		if _, err := s.findRecipe(ctx, recipeID); err != nil {
			return nil, err
		}
	}
	selected, err := st.ToggleSelection(recipeID)
	if err != nil {
		return nil, errors.NewSelectionLimitError(planner.MaxSelections)
	}
	s.saveState(ctx, deviceID, st)

	s.logger.Info("Selection toggled",
		zap.String("device_id", deviceID),
		zap.String("recipe_id", recipeID),
		zap.Bool("selected", selected),
	)
	return stateDTO(st), nil
}

// Candidates classifies every recipe and applies the device's filters
func (s *Service) Candidates(ctx context.Context, deviceID string) (*inbound.CandidatesDTO, error) {
	entities, err := s.recipes.FindAll(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}

	st := s.loadState(ctx, deviceID)
	meta, notes := s.deviceRecipeState(ctx, deviceID)

	all := make([]planner.PlannerRecipe, 0, len(entities))
	for _, e := range entities {
		all = append(all, planner.ToPlannerRecipe(e.Snapshot(), planner.Hints{HasNotes: notes[e.ID()]}))
	}
	filtered := planner.FilterRecipes(all, st.Filters, meta)

	return &inbound.CandidatesDTO{
		Recipes:           filtered,
		Total:             len(all),
		ActiveFilterCount: planner.ActiveFilterCount(st.Filters),
		SelectedIDs:       st.SelectedIDs,
	}, nil
}

// deviceRecipeState loads every user meta and notes flag stored for a device
func (s *Service) deviceRecipeState(ctx context.Context, deviceID string) (map[string]usermeta.Meta, map[string]bool) {
	meta := make(map[string]usermeta.Meta)
	notes := make(map[string]bool)

	for _, key := range s.state.Keys(ctx, devicestate.DevicePrefix(deviceID)) {
		_, name, ok := devicestate.SplitKey(key)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(name, devicestate.UserMetaPrefix):
			id := strings.TrimPrefix(name, devicestate.UserMetaPrefix)
			meta[id] = devicestate.Load(ctx, s.state, key, usermeta.Default())
		case strings.HasPrefix(name, devicestate.ViewPrefix):
			id := strings.TrimPrefix(name, devicestate.ViewPrefix)
			notes[id] = devicestate.Load(ctx, s.state, key, usermeta.DefaultViewPreferences()).HasNotes()
		}
	}
	return meta, notes
}

// Grid operations

func parseCell(mealType string) (planner.MealType, error) {
	meal, err := planner.ParseMealType(mealType)
	if err != nil {
		return "", errors.NewBadRequestError("mealType must be one of Breakfast, Lunch, Dinner")
	}
	return meal, nil
}

func (s *Service) gridOp(ctx context.Context, deviceID string, op func(*planner.Plan) bool) *inbound.GridResultDTO {
	st := s.loadState(ctx, deviceID)
	plan := st.Plan()
	changed := op(plan)
	if changed {
		st.SetPlan(plan)
		s.saveState(ctx, deviceID, st)
	}
	return &inbound.GridResultDTO{Changed: changed, Assignments: plan.Assignments()}
}

// Place drops a recipe on a cell
func (s *Service) Place(ctx context.Context, deviceID string, cmd inbound.PlaceCommand) (*inbound.GridResultDTO, error) {
	meal, err := parseCell(cmd.MealType)
	if err != nil {
		return nil, err
	}
	if _, err := s.findRecipe(ctx, cmd.RecipeID); err != nil {
		return nil, err
	}

	result := s.gridOp(ctx, deviceID, func(p *planner.Plan) bool {
		return p.Place(cmd.RecipeID, meal, cmd.Day)
	})
	s.logger.Info("Recipe placed",
		zap.String("device_id", deviceID),
		zap.String("recipe_id", cmd.RecipeID),
		zap.String("meal_type", string(meal)),
		zap.Int("day", cmd.Day),
		zap.Bool("changed", result.Changed),
	)
	return result, nil
}

// Extend grows the assignment starting on the cell by one day
func (s *Service) Extend(ctx context.Context, deviceID string, cmd inbound.GridCommand) (*inbound.GridResultDTO, error) {
	meal, err := parseCell(cmd.MealType)
	if err != nil {
		return nil, err
	}
	return s.gridOp(ctx, deviceID, func(p *planner.Plan) bool { return p.Extend(meal, cmd.Day) }), nil
}

// Shrink shortens the assignment starting on the cell by one day
func (s *Service) Shrink(ctx context.Context, deviceID string, cmd inbound.GridCommand) (*inbound.GridResultDTO, error) {
	meal, err := parseCell(cmd.MealType)
	if err != nil {
		return nil, err
	}
	return s.gridOp(ctx, deviceID, func(p *planner.Plan) bool { return p.Shrink(meal, cmd.Day) }), nil
}

// Remove deletes the assignment starting on the cell
func (s *Service) Remove(ctx context.Context, deviceID string, cmd inbound.GridCommand) (*inbound.GridResultDTO, error) {
	meal, err := parseCell(cmd.MealType)
	if err != nil {
		return nil, err
	}
	return s.gridOp(ctx, deviceID, func(p *planner.Plan) bool { return p.Remove(meal, cmd.Day) }), nil
}

// Grocery list

// GroceryList builds the shopping list of the current plan
func (s *Service) GroceryList(ctx context.Context, deviceID string) (*grocery.List, error) {
	list, err := s.buildGroceryList(ctx, s.loadState(ctx, deviceID))
	if err != nil {
		return nil, err
	}
	checked := s.loadChecked(ctx, deviceID)
	out := list.WithChecked(checked)
	return &out, nil
}

// ToggleGroceryItem flips the checked mark of an item
func (s *Service) ToggleGroceryItem(ctx context.Context, deviceID, key string) (*grocery.List, error) {
	if grocery.Key(key) == "" {
		return nil, errors.NewBadRequestError("Item key is required")
	}
	checked := grocery.ToggleChecked(s.loadChecked(ctx, deviceID), key)
	devicestate.Save(ctx, s.state, devicestate.Key(deviceID, grocery.CheckedKey), checked)
	return s.GroceryList(ctx, deviceID)
}

func (s *Service) loadChecked(ctx context.Context, deviceID string) []string {
	return devicestate.Load(ctx, s.state, devicestate.Key(deviceID, grocery.CheckedKey), []string{})
}

func (s *Service) buildGroceryList(ctx context.Context, st planner.WeeklyState) (grocery.List, error) {
	ids := st.Plan().RecipeIDs()
	if len(ids) == 0 {
		return grocery.Build(nil, nil), nil
	}

	entities, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		return grocery.List{}, errors.NewDatabaseError("load plan recipes", err)
	}
	sources := make([]grocery.Source, 0, len(entities))
	for _, e := range entities {
		sources = append(sources, grocery.Source{ID: e.ID(), Title: e.Title(), Ingredients: e.Ingredients()})
	}
	return grocery.Build(ids, sources), nil
}

func (s *Service) findRecipe(ctx context.Context, recipeID string) (*recipe.Recipe, error) {
	r, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil && !errorsIsNotFound(err) {
		return nil, errors.NewDatabaseError("find recipe", err)
	}
	if r == nil {
		return nil, errors.NewRecipeNotFoundError(recipeID)
	}
	return r, nil
}

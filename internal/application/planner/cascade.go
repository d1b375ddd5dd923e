package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/application/devicestate"
	"github.com/tablewise/server/internal/domain/grocery"
	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/ports/outbound"
)

// Subscribe registers the deletion cascade on the bus
func (s *Service) Subscribe(ctx context.Context, bus outbound.MessageBus) error {
	return bus.Subscribe(ctx, recipe.EventRecipeDeleted, s.HandleRecipeDeleted)
}

// HandleRecipeDeleted removes every trace of a deleted recipe from every
// device: user meta, view preferences, selection, plan assignments and the
// checked grocery items the plan no longer produces.
func (s *Service) HandleRecipeDeleted(ctx context.Context, msg outbound.Message) error {
	var event recipe.RecipeDeletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	if event.RecipeID == "" {
		return fmt.Errorf("%s without recipe id", msg.Type)
	}

	devices := s.state.Devices(ctx)
	for _, deviceID := range devices {
		s.state.Delete(ctx, devicestate.Key(deviceID, devicestate.UserMetaName(event.RecipeID)))
		s.state.Delete(ctx, devicestate.Key(deviceID, devicestate.ViewName(event.RecipeID)))

		st := s.loadState(ctx, deviceID)
		if !st.PruneRecipe(event.RecipeID) {
			continue
		}
		s.saveState(ctx, deviceID, st)

		list, err := s.buildGroceryList(ctx, st)
		if err != nil {
			s.logger.Warn("Skipping grocery cleanup", zap.String("device_id", deviceID), zap.Error(err))
			continue
		}
		checked := s.loadChecked(ctx, deviceID)
		devicestate.Save(ctx, s.state, devicestate.Key(deviceID, grocery.CheckedKey), grocery.RetainChecked(checked, list))
	}

	s.logger.Info("Cleaned up deleted recipe",
		zap.String("recipe_id", event.RecipeID),
		zap.Int("devices", len(devices)),
	)
	return nil
}

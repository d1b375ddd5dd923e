package planner

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/application/devicestate"
	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/domain/usermeta"
	"github.com/tablewise/server/pkg/errors"
)

// Meta endpoints work for any recipe id. Device state outlives the server
// side recipe lifecycle and is cleaned up by the deletion cascade.

func (s *Service) metaKey(deviceID, recipeID string) string {
	return devicestate.Key(deviceID, devicestate.UserMetaName(recipeID))
}

func (s *Service) loadMeta(ctx context.Context, deviceID, recipeID string) usermeta.Meta {
	return devicestate.Load(ctx, s.state, s.metaKey(deviceID, recipeID), usermeta.Default())
}

func (s *Service) storeMeta(ctx context.Context, deviceID, recipeID string, m usermeta.Meta) *usermeta.Meta {
	if m.IsZero() {
		s.state.Delete(ctx, s.metaKey(deviceID, recipeID))
	} else {
		devicestate.Save(ctx, s.state, s.metaKey(deviceID, recipeID), m)
	}
	return &m
}

// GetMeta returns the pick/rating record of a recipe
func (s *Service) GetMeta(ctx context.Context, deviceID, recipeID string) (*usermeta.Meta, error) {
	m := s.loadMeta(ctx, deviceID, recipeID)
	return &m, nil
}

// ToggleMyPick flips the "my pick" flag
func (s *Service) ToggleMyPick(ctx context.Context, deviceID, recipeID string) (*usermeta.Meta, error) {
	m := s.loadMeta(ctx, deviceID, recipeID).ToggleMyPick()
	return s.storeMeta(ctx, deviceID, recipeID, m), nil
}

// SetRating stores a 1-5 star rating
func (s *Service) SetRating(ctx context.Context, deviceID, recipeID string, rating int) (*usermeta.Meta, error) {
	m, err := s.loadMeta(ctx, deviceID, recipeID).SetRating(rating, s.now())
	if err != nil {
		return nil, errors.NewBadRequestError(err.Error())
	}
	s.logger.Debug("Rating set", zap.String("recipe_id", recipeID), zap.Int("rating", rating))
	return s.storeMeta(ctx, deviceID, recipeID, m), nil
}

// ClearRating removes the rating
func (s *Service) ClearRating(ctx context.Context, deviceID, recipeID string) (*usermeta.Meta, error) {
	m := s.loadMeta(ctx, deviceID, recipeID).ClearRating()
	return s.storeMeta(ctx, deviceID, recipeID, m), nil
}

// GetViewPreferences returns how the device last viewed a recipe
func (s *Service) GetViewPreferences(ctx context.Context, deviceID, recipeID string) (*usermeta.ViewPreferences, error) {
	key := devicestate.Key(deviceID, devicestate.ViewName(recipeID))
	v := devicestate.Load(ctx, s.state, key, usermeta.DefaultViewPreferences()).Normalize()
	return &v, nil
}

// SaveViewPreferences replaces the view preferences of a recipe
func (s *Service) SaveViewPreferences(ctx context.Context, deviceID, recipeID string, prefs usermeta.ViewPreferences) (*usermeta.ViewPreferences, error) {
	prefs = prefs.Normalize()
	if err := prefs.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	devicestate.Save(ctx, s.state, devicestate.Key(deviceID, devicestate.ViewName(recipeID)), prefs)
	return &prefs, nil
}

func errorsIsNotFound(err error) bool {
	return stderrors.Is(err, recipe.ErrRecipeNotFound)
}

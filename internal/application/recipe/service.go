// Package recipe provides the application layer for the recipe store
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/domain/shared"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
)

const (
	listCacheKey    = "recipes:all"
	defaultCacheTTL = 5 * time.Minute
)

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipeRepo outbound.RecipeRepository
	cache      outbound.CacheRepository
	events     outbound.MessageBus
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// Option configures a RecipeService
type Option func(*RecipeService)

// WithCacheTTL sets how long list and item reads stay cached
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *RecipeService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewRecipeService creates a new recipe service
func NewRecipeService(
	recipeRepo outbound.RecipeRepository,
	cache outbound.CacheRepository,
	events outbound.MessageBus,
	logger *zap.Logger,
	opts ...Option,
) *RecipeService {
	s := &RecipeService{
		recipeRepo: recipeRepo,
		cache:      cache,
		events:     events,
		cacheTTL:   defaultCacheTTL,
		logger:     logger.Named("recipe-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ inbound.RecipeService = (*RecipeService)(nil)

// CreateRecipe validates and stores a new recipe
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	s.logger.Info("Creating new recipe", zap.String("title", cmd.Title))

	recipeEntity, err := recipe.NewRecipe(cmd.ToDraft())
	if err != nil {
		return nil, toValidationError(err)
	}

	if err := s.recipeRepo.Create(ctx, recipeEntity); err != nil {
		return nil, errors.NewDatabaseError("create recipe", err)
	}

	s.publishEvents(ctx, recipeEntity.Events())
	s.invalidate(ctx, "")

	dto := inbound.NewRecipeDTO(recipeEntity)

	s.logger.Info("Recipe created successfully",
		zap.String("recipe_id", dto.ID),
		zap.String("title", dto.Title),
	)

	return &dto, nil
}

// UpdateRecipe applies a partial update
func (s *RecipeService) UpdateRecipe(ctx context.Context, cmd inbound.UpdateRecipeCommand) (*inbound.RecipeDTO, error) {
	s.logger.Info("Updating recipe", zap.String("recipe_id", cmd.RecipeID))

	recipeEntity, err := s.load(ctx, cmd.RecipeID)
	if err != nil {
		return nil, err
	}

	changed, err := recipeEntity.Apply(cmd.ToPatch())
	if err != nil {
		return nil, toValidationError(err)
	}
	if !changed {
		dto := inbound.NewRecipeDTO(recipeEntity)
		return &dto, nil
	}

	if err := s.recipeRepo.Update(ctx, recipeEntity); err != nil {
		if stderrors.Is(err, recipe.ErrRecipeNotFound) {
			return nil, errors.NewRecipeNotFoundError(cmd.RecipeID)
		}
		return nil, errors.NewDatabaseError("update recipe", err)
	}

	s.publishEvents(ctx, recipeEntity.Events())
	s.invalidate(ctx, cmd.RecipeID)

	dto := inbound.NewRecipeDTO(recipeEntity)
	return &dto, nil
}

// DeleteRecipe removes a recipe; unknown ids leave the store untouched
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipeID string) error {
	s.logger.Info("Deleting recipe", zap.String("recipe_id", recipeID))

	recipeEntity, err := s.load(ctx, recipeID)
	if err != nil {
		return err
	}

	if err := recipeEntity.Delete(); err != nil {
		return errors.NewRecipeNotFoundError(recipeID)
	}

	if err := s.recipeRepo.Delete(ctx, recipeID); err != nil {
		if stderrors.Is(err, recipe.ErrRecipeNotFound) {
			return errors.NewRecipeNotFoundError(recipeID)
		}
		return errors.NewDatabaseError("delete recipe", err)
	}

	s.invalidate(ctx, recipeID)
	s.publishEvents(ctx, recipeEntity.Events())

	s.logger.Info("Recipe deleted successfully", zap.String("recipe_id", recipeID))
	return nil
}

// ListRecipes returns every recipe, newest first
func (s *RecipeService) ListRecipes(ctx context.Context) ([]inbound.RecipeDTO, error) {
	var cached []inbound.RecipeDTO
	if s.fromCache(ctx, listCacheKey, &cached) {
		return cached, nil
	}

	entities, err := s.recipeRepo.FindAll(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}

	dtos := make([]inbound.RecipeDTO, 0, len(entities))
	for _, e := range entities {
		dtos = append(dtos, inbound.NewRecipeDTO(e))
	}

	s.toCache(ctx, listCacheKey, dtos)
	return dtos, nil
}

// GetRecipe returns a single recipe
func (s *RecipeService) GetRecipe(ctx context.Context, recipeID string) (*inbound.RecipeDTO, error) {
	var cached inbound.RecipeDTO
	if s.fromCache(ctx, itemCacheKey(recipeID), &cached) {
		return &cached, nil
	}

	recipeEntity, err := s.load(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	dto := inbound.NewRecipeDTO(recipeEntity)
	s.toCache(ctx, itemCacheKey(recipeID), dto)
	return &dto, nil
}

func (s *RecipeService) load(ctx context.Context, recipeID string) (*recipe.Recipe, error) {
	recipeEntity, err := s.recipeRepo.FindByID(ctx, recipeID)
	if err != nil {
		if stderrors.Is(err, recipe.ErrRecipeNotFound) {
			return nil, errors.NewRecipeNotFoundError(recipeID)
		}
		return nil, errors.NewDatabaseError("find recipe", err)
	}
	if recipeEntity == nil {
		return nil, errors.NewRecipeNotFoundError(recipeID)
	}
	return recipeEntity, nil
}

// publishEvents serializes domain events onto the message bus. Failures are
// logged; the mutation has already been committed.
func (s *RecipeService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.events == nil {
		return
	}
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("Failed to encode event", zap.String("event", event.EventName()), zap.Error(err))
			continue
		}
		msg := outbound.Message{
			ID:        uuid.NewString(),
			Type:      event.EventName(),
			Payload:   payload,
			Timestamp: event.OccurredAt(),
		}
		if err := s.events.Publish(ctx, event.EventName(), msg); err != nil {
			s.logger.Error("Failed to publish event",
				zap.String("event", event.EventName()),
				zap.Error(err),
			)
		}
	}
}

// Cache operations

func itemCacheKey(recipeID string) string {
	return "recipe:" + recipeID
}

func (s *RecipeService) fromCache(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *RecipeService) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate drops the list and, when given, the single-recipe entry
func (s *RecipeService) invalidate(ctx context.Context, recipeID string) {
	if s.cache == nil {
		return
	}
	keys := []string{listCacheKey}
	if recipeID != "" {
		keys = append(keys, itemCacheKey(recipeID))
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("Cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// toValidationError maps domain validation failures onto the API error shape
func toValidationError(err error) error {
	var verr recipe.ValidationError
	if !stderrors.As(err, &verr) {
		return errors.Wrap(err, "Invalid recipe data")
	}

	fields := make([]errors.ValidationError, 0, len(verr))
	for _, fe := range verr {
		fields = append(fields, errors.ValidationError{
			Field:   fe.Field,
			Tag:     tagFor(fe.Err),
			Message: fe.Err.Error(),
		})
	}
	return errors.NewValidationErrors("Invalid recipe data", fields)
}

func tagFor(err error) string {
	switch {
	case stderrors.Is(err, recipe.ErrTitleRequired):
		return "required"
	case stderrors.Is(err, recipe.ErrInvalidCookTime):
		return "range"
	case stderrors.Is(err, recipe.ErrInvalidSourceURL):
		return "url"
	case stderrors.Is(err, recipe.ErrInvalidTag):
		return "tag"
	default:
		return "max"
	}
}

package recipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/pkg/errors"
	"github.com/tablewise/server/test/testutils"
)

type RecipeServiceTestSuite struct {
	suite.Suite
	repo    *testutils.MockRecipeRepository
	cache   *testutils.MockCacheRepository
	bus     *testutils.MockMessageBus
	service *RecipeService
	ctx     context.Context
}

func (s *RecipeServiceTestSuite) SetupTest() {
	s.repo = testutils.NewMockRecipeRepository()
	s.cache = &testutils.MockCacheRepository{}
	s.bus = testutils.NewMockMessageBus()
	s.bus.SetupStandardMockBehavior()
	s.ctx = context.Background()
	s.service = NewRecipeService(s.repo, s.cache, s.bus, zaptest.NewLogger(s.T()), WithCacheTTL(time.Minute))
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_ShouldPersistAndPublish() {
	// Arrange
	s.cache.SetupMissBehavior()
	s.repo.On("Create", mock.Anything, mock.AnythingOfType("*recipe.Recipe")).Return(nil)
	cmd := inbound.CreateRecipeCommand{
		Title:       "  Pasta  ",
		Ingredients: []string{"200g spaghetti", "50g parmesan"},
		Steps:       []string{"Boil pasta.", "Add cheese."},
	}

	// Act
	dto, err := s.service.CreateRecipe(s.ctx, cmd)

	// Assert
	s.Require().NoError(err)
	s.Equal("Pasta", dto.Title)
	s.NotEmpty(dto.ID)
	s.Equal([]string{"200g spaghetti", "50g parmesan"}, dto.Ingredients)
	s.Equal([]string{recipe.EventRecipeCreated}, s.bus.PublishedTypes())
	s.cache.AssertCalled(s.T(), "Delete", mock.Anything, listCacheKey)
	s.repo.AssertExpectations(s.T())
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_ShouldRejectInvalidWithoutPersisting() {
	// Arrange
	cmd := inbound.CreateRecipeCommand{Title: "   ", Ingredients: []string{}, Steps: []string{}}
	bad := 5000
	cmd.CookTime = &bad

	// Act
	dto, err := s.service.CreateRecipe(s.ctx, cmd)

	// Assert
	s.Nil(dto)
	appErr := testutils.AssertAppError(s.T(), err, errors.CodeValidationFailed)
	s.Equal("Invalid recipe data", appErr.Message)
	s.Len(appErr.Fields, 2)
	s.Equal("title", appErr.Fields[0].Field)
	s.Equal("required", appErr.Fields[0].Tag)
	s.repo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
	s.Empty(s.bus.PublishedTypes())
}

func (s *RecipeServiceTestSuite) TestCreateRecipe_ShouldMapRepositoryFailure() {
	// Arrange
	s.repo.On("Create", mock.Anything, mock.Anything).Return(stderrors.New("disk full"))

	// Act
	_, err := s.service.CreateRecipe(s.ctx, inbound.CreateRecipeCommand{Title: "Soup"})

	// Assert
	testutils.AssertAppError(s.T(), err, errors.CodeDatabaseError)
	s.Empty(s.bus.PublishedTypes())
}

func (s *RecipeServiceTestSuite) TestGetRecipe_ShouldReturnNotFound() {
	// Arrange
	s.cache.SetupMissBehavior()
	s.repo.On("FindByID", mock.Anything, "missing").Return(nil, recipe.ErrRecipeNotFound)

	// Act
	_, err := s.service.GetRecipe(s.ctx, "missing")

	// Assert
	appErr := testutils.AssertAppError(s.T(), err, errors.CodeRecipeNotFound)
	s.Equal("Recipe not found", appErr.Message)
}

func (s *RecipeServiceTestSuite) TestGetRecipe_ShouldServeFromCache() {
	// Arrange
	cached := inbound.RecipeDTO{ID: "r1", Title: "Cached"}
	raw, err := json.Marshal(cached)
	s.Require().NoError(err)
	s.cache.On("Get", mock.Anything, "recipe:r1").Return(raw, nil)

	// Act
	dto, err := s.service.GetRecipe(s.ctx, "r1")

	// Assert
	s.Require().NoError(err)
	s.Equal("Cached", dto.Title)
	s.repo.AssertNotCalled(s.T(), "FindByID", mock.Anything, mock.Anything)
}

func (s *RecipeServiceTestSuite) TestListRecipes_ShouldIgnoreCacheFailures() {
	// Arrange
	s.cache.On("Get", mock.Anything, listCacheKey).Return(nil, stderrors.New("connection refused"))
	s.cache.On("Set", mock.Anything, listCacheKey, mock.Anything, time.Minute).Return(stderrors.New("connection refused"))
	older := testutils.NewRecipeBuilder().WithID("a").CreatedAt(time.Now().Add(-time.Hour)).Build()
	newer := testutils.NewRecipeBuilder().WithID("b").Build()
	s.repo.On("FindAll", mock.Anything).Return([]*recipe.Recipe{newer, older}, nil)

	// Act
	dtos, err := s.service.ListRecipes(s.ctx)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(dtos, 2)
	s.Equal("b", dtos[0].ID)
	s.Equal("a", dtos[1].ID)
}

func (s *RecipeServiceTestSuite) TestUpdateRecipe_ShouldApplyPatchAndInvalidate() {
	// Arrange
	s.cache.SetupMissBehavior()
	existing := testutils.NewRecipeBuilder().WithID("r1").WithTitle("Old").CreatedAt(time.Now().Add(-time.Hour)).Build()
	s.repo.On("FindByID", mock.Anything, "r1").Return(existing, nil)
	s.repo.On("Update", mock.Anything, existing).Return(nil)
	title := "New"

	// Act
	dto, err := s.service.UpdateRecipe(s.ctx, inbound.UpdateRecipeCommand{RecipeID: "r1", Title: &title})

	// Assert
	s.Require().NoError(err)
	s.Equal("New", dto.Title)
	s.Equal([]string{"200g spaghetti", "50g parmesan"}, dto.Ingredients)
	s.True(dto.UpdatedAt.After(dto.CreatedAt))
	s.cache.AssertCalled(s.T(), "Delete", mock.Anything, "recipe:r1")
	s.cache.AssertCalled(s.T(), "Delete", mock.Anything, listCacheKey)
	s.Equal([]string{recipe.EventRecipeUpdated}, s.bus.PublishedTypes())
}

func (s *RecipeServiceTestSuite) TestUpdateRecipe_ShouldRejectInvalidMerge() {
	// Arrange
	existing := testutils.NewRecipeBuilder().WithID("r1").WithTitle("Old").Build()
	s.repo.On("FindByID", mock.Anything, "r1").Return(existing, nil)
	empty := ""

	// Act
	_, err := s.service.UpdateRecipe(s.ctx, inbound.UpdateRecipeCommand{RecipeID: "r1", Title: &empty})

	// Assert
	testutils.AssertAppError(s.T(), err, errors.CodeValidationFailed)
	s.Equal("Old", existing.Title())
	s.repo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *RecipeServiceTestSuite) TestUpdateRecipe_ShouldSkipWriteWhenNothingChanges() {
	// Arrange
	s.cache.SetupMissBehavior()
	existing := testutils.NewRecipeBuilder().WithID("r1").WithTitle("Old").Build()
	s.repo.On("FindByID", mock.Anything, "r1").Return(existing, nil)
	before := existing.UpdatedAt()
	same := "Old"

	// Act
	dto, err := s.service.UpdateRecipe(s.ctx, inbound.UpdateRecipeCommand{RecipeID: "r1", Title: &same})

	// Assert
	s.Require().NoError(err)
	s.Equal(before, dto.UpdatedAt)
	s.repo.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
	s.Empty(s.bus.PublishedTypes())
}

func (s *RecipeServiceTestSuite) TestDeleteRecipe_ShouldPublishDeletedEvent() {
	// Arrange
	s.cache.SetupMissBehavior()
	existing := testutils.NewRecipeBuilder().WithID("r1").Build()
	s.repo.On("FindByID", mock.Anything, "r1").Return(existing, nil)
	s.repo.On("Delete", mock.Anything, "r1").Return(nil)

	// Act
	err := s.service.DeleteRecipe(s.ctx, "r1")

	// Assert
	s.Require().NoError(err)
	s.Equal([]string{recipe.EventRecipeDeleted}, s.bus.PublishedTypes())
}

func (s *RecipeServiceTestSuite) TestDeleteRecipe_ShouldReturnNotFoundForUnknownID() {
	// Arrange
	s.repo.On("FindByID", mock.Anything, "ghost").Return(nil, nil)

	// Act
	err := s.service.DeleteRecipe(s.ctx, "ghost")

	// Assert
	testutils.AssertAppError(s.T(), err, errors.CodeRecipeNotFound)
	s.repo.AssertNotCalled(s.T(), "Delete", mock.Anything, mock.Anything)
}

func TestRecipeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceTestSuite))
}

func TestToValidationError_ShouldWrapUnknownErrors(t *testing.T) {
	err := toValidationError(stderrors.New("boom"))

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInternal, appErr.Code)
}

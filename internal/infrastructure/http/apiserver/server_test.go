package apiserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/application/devicestate"
	importerapp "github.com/tablewise/server/internal/application/importer"
	plannerapp "github.com/tablewise/server/internal/application/planner"
	recipeapp "github.com/tablewise/server/internal/application/recipe"
	"github.com/tablewise/server/internal/domain/grocery"
	"github.com/tablewise/server/internal/domain/usermeta"
	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/internal/infrastructure/http/handlers"
	"github.com/tablewise/server/internal/infrastructure/http/middleware"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/messaging"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
	gormstore "github.com/tablewise/server/internal/infrastructure/persistence/gorm"
	"github.com/tablewise/server/internal/infrastructure/persistence/memory"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/healthcheck"
	"github.com/tablewise/server/test/testutils"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Tablewise", Version: "test", Environment: "test"},
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              0,
			ReadTimeout:       5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       10 * time.Second,
			EnableCORS:        true,
			AllowedOrigins:    []string{"*"},
			EnableCompression: true,
		},
		Monitoring: config.MonitoringConfig{
			EnableMetrics:   true,
			MetricsPath:     "/metrics",
			HealthCheckPath: "/health",
		},
	}
}

type ServerTestSuite struct {
	suite.Suite
	server      *Server
	router      http.Handler
	structurer  *testutils.MockStructurer
	transcriber *testutils.MockTranscriber
	fetcher     *testutils.MockPageFetcher
}

func (s *ServerTestSuite) SetupTest() {
	log := zaptest.NewLogger(s.T())
	db := testutils.SetupSQLite(s.T())

	bus := messaging.NewEventDispatcher(log)
	repo := gormstore.NewRecipeRepository(db)
	recipes := recipeapp.NewRecipeService(repo, memory.NewCacheRepository(100), bus, log)
	plannerService := plannerapp.NewService(repo, devicestate.NewStore(gormstore.NewStateStore(db), log), log)
	s.Require().NoError(plannerService.Subscribe(context.Background(), bus))

	s.transcriber = new(testutils.MockTranscriber)
	s.structurer = new(testutils.MockStructurer)
	s.fetcher = new(testutils.MockPageFetcher)
	imports := importerapp.NewService(s.transcriber, s.structurer, s.fetcher, recipes, log)

	metrics := monitoring.NewMetrics()
	v := validation.New()
	responder := handlers.NewResponder(log, 0)
	health := healthcheck.New("test", log)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))

	s.server = NewServer(testConfig(), log, Handlers{
		Recipes:  handlers.NewRecipeHandlers(responder, recipes, v, metrics),
		Imports:  handlers.NewImportHandlers(responder, imports, v, metrics),
		Planner:  handlers.NewPlannerHandlers(responder, plannerService, v, metrics),
		UserMeta: handlers.NewUserMetaHandlers(responder, plannerService, v),
	}, health, metrics, v)
	s.router = s.server.Router()
}

func (s *ServerTestSuite) do(req *http.Request, deviceID string) *httptest.ResponseRecorder {
	if deviceID != "" {
		req.Header.Set(middleware.DeviceIDHeader, deviceID)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *ServerTestSuite) createRecipe(title string, ingredients ...string) inbound.RecipeDTO {
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPost, "/api/recipes", map[string]interface{}{
		"title":       title,
		"ingredients": ingredients,
		"steps":       []string{"Cook."},
	}), "")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var dto inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), rr, &dto)
	return dto
}

func (s *ServerTestSuite) place(deviceID, recipeID, mealType string, day int) inbound.GridResultDTO {
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPost, "/api/planner/assignments", map[string]interface{}{
		"recipeId": recipeID,
		"mealType": mealType,
		"day":      day,
	}), deviceID)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var result inbound.GridResultDTO
	testutils.DecodeJSON(s.T(), rr, &result)
	return result
}

func (s *ServerTestSuite) TestRecipeCRUD_ShouldRoundTrip() {
	// Arrange
	created := s.createRecipe("Tomato soup", "4 tomatoes", "1 onion")

	// Act
	patch := s.do(testutils.JSONRequest(s.T(), http.MethodPatch, "/api/recipes/"+created.ID, map[string]interface{}{
		"title": "Roasted tomato soup",
	}), "")
	get := s.do(httptest.NewRequest(http.MethodGet, "/api/recipes/"+created.ID, nil), "")
	list := s.do(httptest.NewRequest(http.MethodGet, "/api/recipes", nil), "")

	// Assert
	s.Equal(http.StatusOK, patch.Code, patch.Body.String())
	s.Require().Equal(http.StatusOK, get.Code)
	var found inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), get, &found)
	s.Equal("Roasted tomato soup", found.Title)
	s.Equal([]string{"4 tomatoes", "1 onion"}, found.Ingredients)

	var all []inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), list, &all)
	s.Len(all, 1)
}

func (s *ServerTestSuite) TestCreateRecipe_ShouldRejectMissingTitle() {
	// Act
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPost, "/api/recipes", map[string]interface{}{
		"ingredients": []string{"salt"},
		"steps":       []string{"Season."},
	}), "")
	list := s.do(httptest.NewRequest(http.MethodGet, "/api/recipes", nil), "")

	// Assert
	body := testutils.AssertErrorResponse(s.T(), rr, http.StatusBadRequest, handlers.MsgInvalidRecipe)
	s.NotEmpty(body.Code)

	s.Require().Equal(http.StatusOK, list.Code)
	var all []inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), list, &all)
	s.Empty(all)
}

func (s *ServerTestSuite) TestUpdateRecipe_ShouldClearNullFieldsAndIgnoreEmptyPatch() {
	// Arrange
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPost, "/api/recipes", map[string]interface{}{
		"title":       "Stew",
		"ingredients": []string{"500g beef"},
		"steps":       []string{"Simmer."},
		"cookTime":    90,
		"image":       "https://example.com/stew.jpg",
	}), "")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var created inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), rr, &created)

	// Act
	empty := s.do(testutils.JSONRequest(s.T(), http.MethodPatch, "/api/recipes/"+created.ID, map[string]interface{}{}), "")
	cleared := s.do(testutils.JSONRequest(s.T(), http.MethodPatch, "/api/recipes/"+created.ID, map[string]interface{}{
		"cookTime": nil,
		"image":    nil,
	}), "")

	// Assert
	s.Require().Equal(http.StatusOK, empty.Code, empty.Body.String())
	var unchanged inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), empty, &unchanged)
	s.False(unchanged.UpdatedAt.After(unchanged.CreatedAt))
	s.Require().NotNil(unchanged.CookTime)
	s.Equal(90, *unchanged.CookTime)

	s.Require().Equal(http.StatusOK, cleared.Code, cleared.Body.String())
	var updated inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), cleared, &updated)
	s.Nil(updated.CookTime)
	s.Empty(updated.Image)
	s.True(updated.UpdatedAt.After(created.UpdatedAt))
}

func (s *ServerTestSuite) TestGetRecipe_ShouldReturnNotFound() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/recipes/missing", nil), "")

	testutils.AssertErrorResponse(s.T(), rr, http.StatusNotFound, "Recipe not found")
}

func (s *ServerTestSuite) TestAPI_ShouldRejectNonJSONBodies() {
	req := httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader("title=soup"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := s.do(req, "")

	s.Equal(http.StatusUnsupportedMediaType, rr.Code)
}

func (s *ServerTestSuite) TestAPI_ShouldRejectInvalidDeviceID() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/planner/state", nil), "bad device!")

	testutils.AssertErrorResponse(s.T(), rr, http.StatusBadRequest, "Invalid X-Device-ID header")
}

func (s *ServerTestSuite) TestPlanner_ShouldKeepDevicesApart() {
	// Arrange
	r := s.createRecipe("Pancakes", "2 eggs", "1 cup milk")
	s.place("kitchen", r.ID, "Breakfast", 0)

	// Act
	kitchen := s.do(httptest.NewRequest(http.MethodGet, "/api/planner/state", nil), "kitchen")
	phone := s.do(httptest.NewRequest(http.MethodGet, "/api/planner/state", nil), "phone")

	// Assert
	var kState, pState inbound.PlannerStateDTO
	testutils.DecodeJSON(s.T(), kitchen, &kState)
	testutils.DecodeJSON(s.T(), phone, &pState)
	s.Len(kState.PlanAssignments, 1)
	s.Empty(pState.PlanAssignments)
}

func (s *ServerTestSuite) TestGridOperations_ShouldExtendAndReportNoOps() {
	// Arrange
	r := s.createRecipe("Chili", "1 lb ground beef")
	s.place("d1", r.ID, "Dinner", 5)

	// Act
	extended := s.do(httptest.NewRequest(http.MethodPost, "/api/planner/assignments/Dinner/5/extend", nil), "d1")
	atEdge := s.do(httptest.NewRequest(http.MethodPost, "/api/planner/assignments/Dinner/5/extend", nil), "d1")
	outside := s.do(httptest.NewRequest(http.MethodPost, "/api/planner/assignments/Dinner/9/shrink", nil), "d1")

	// Assert
	var first, second, third inbound.GridResultDTO
	testutils.DecodeJSON(s.T(), extended, &first)
	testutils.DecodeJSON(s.T(), atEdge, &second)
	testutils.DecodeJSON(s.T(), outside, &third)
	s.True(first.Changed)
	s.Require().Len(first.Assignments, 1)
	s.Equal(2, first.Assignments[0].SpanDays)
	s.False(second.Changed)
	s.False(third.Changed)
}

func (s *ServerTestSuite) TestGridOperations_ShouldRejectUnknownMealType() {
	rr := s.do(httptest.NewRequest(http.MethodPost, "/api/planner/assignments/Brunch/0/extend", nil), "d1")

	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *ServerTestSuite) TestGridOperations_ShouldRejectNonNumericDay() {
	rr := s.do(httptest.NewRequest(http.MethodDelete, "/api/planner/assignments/Lunch/monday", nil), "d1")

	testutils.AssertErrorResponse(s.T(), rr, http.StatusBadRequest, "day must be an integer")
}

func (s *ServerTestSuite) TestGroceryList_ShouldToggleKeysWithSlashes() {
	// Arrange
	r := s.createRecipe("Cookies", "1/2 cup sugar", "2 eggs")
	s.place("d1", r.ID, "Lunch", 1)
	target := "/api/grocery-list/checked/" + url.PathEscape("1/2 cup sugar")

	// Act
	rr := s.do(httptest.NewRequest(http.MethodPost, target, nil), "d1")

	// Assert
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var list grocery.List
	testutils.DecodeJSON(s.T(), rr, &list)
	s.Equal(2, list.TotalItems)

	checked := map[string]bool{}
	for _, cat := range list.Categories {
		for _, item := range cat.Items {
			checked[item.Key] = item.Checked
		}
	}
	s.True(checked["1/2 cup sugar"])
	s.False(checked["2 eggs"])
}

func (s *ServerTestSuite) TestGroceryList_ShouldDecodeKeysExactlyOnce() {
	// Arrange
	r := s.createRecipe("Mixes", "a%41 mix", "aB mix")
	s.place("d1", r.ID, "Dinner", 0)
	target := "/api/grocery-list/checked/" + url.PathEscape("a%41 mix")

	// Act
	rr := s.do(httptest.NewRequest(http.MethodPost, target, nil), "d1")

	// Assert
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var list grocery.List
	testutils.DecodeJSON(s.T(), rr, &list)

	checked := map[string]bool{}
	for _, cat := range list.Categories {
		for _, item := range cat.Items {
			checked[item.Key] = item.Checked
		}
	}
	s.Require().Contains(checked, "a%41 mix")
	s.True(checked["a%41 mix"])
	s.False(checked["ab mix"])
}

func (s *ServerTestSuite) TestDeleteRecipe_ShouldCascadeIntoDeviceState() {
	// Arrange
	r := s.createRecipe("Salad", "1 head romaine lettuce")
	s.place("d1", r.ID, "Lunch", 2)
	s.do(httptest.NewRequest(http.MethodPost, "/api/planner/selection/"+r.ID, nil), "d1")
	s.do(httptest.NewRequest(http.MethodPost, "/api/recipes/"+r.ID+"/meta/pick", nil), "d1")

	// Act
	del := s.do(httptest.NewRequest(http.MethodDelete, "/api/recipes/"+r.ID, nil), "")

	// Assert
	s.Require().Equal(http.StatusOK, del.Code, del.Body.String())
	s.JSONEq(`{"success":true}`, del.Body.String())

	var st inbound.PlannerStateDTO
	testutils.DecodeJSON(s.T(), s.do(httptest.NewRequest(http.MethodGet, "/api/planner/state", nil), "d1"), &st)
	s.Empty(st.PlanAssignments)
	s.Empty(st.SelectedIDs)

	var meta usermeta.Meta
	testutils.DecodeJSON(s.T(), s.do(httptest.NewRequest(http.MethodGet, "/api/recipes/"+r.ID+"/meta", nil), "d1"), &meta)
	s.False(meta.IsMyPick)
}

func (s *ServerTestSuite) TestSetRating_ShouldRequireRating() {
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPut, "/api/recipes/any/meta/rating", map[string]interface{}{}), "d1")

	testutils.AssertErrorResponse(s.T(), rr, http.StatusBadRequest, "Invalid rating")
}

func (s *ServerTestSuite) TestParseRecipe_ShouldReturnStructuredRecipe() {
	// Arrange
	s.structurer.On("Structure", mock.Anything, "two eggs then fry").
		Return(&outbound.StructuredRecipe{Title: "Fried eggs", Ingredients: []string{"2 eggs"}, Steps: []string{"Fry."}}, nil)

	// Act
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPost, "/api/parse-recipe", map[string]string{
		"transcript": "two eggs then fry",
	}), "")

	// Assert
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Contains(rr.Body.String(), `"Fried eggs"`)
	s.structurer.AssertExpectations(s.T())
}

func (s *ServerTestSuite) TestImportSave_ShouldSplitPastedText() {
	rr := s.do(testutils.JSONRequest(s.T(), http.MethodPost, "/api/import/save", map[string]string{
		"text": "Garlic bread\n\nIngredients\n1 baguette\n3 cloves garlic\n\nInstructions\nSlice.\nBake.",
	}), "")

	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var dto inbound.RecipeDTO
	testutils.DecodeJSON(s.T(), rr, &dto)
	s.NotEmpty(dto.ID)
	s.NotEmpty(dto.Ingredients)
}

func (s *ServerTestSuite) TestProbes_ShouldBeServed() {
	health := s.do(httptest.NewRequest(http.MethodGet, "/health", nil), "")
	live := s.do(httptest.NewRequest(http.MethodGet, "/live", nil), "")
	metrics := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")

	s.Equal(http.StatusOK, health.Code, health.Body.String())
	s.Equal(http.StatusOK, live.Code)
	s.Equal(http.StatusOK, metrics.Code)
	s.Contains(metrics.Body.String(), "tablewise_http_requests_total")
}

func (s *ServerTestSuite) TestOpenAPI_ShouldServeDocument() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/openapi.yaml", nil), "")

	s.Equal(http.StatusOK, rr.Code)
	s.Equal("application/yaml", rr.Header().Get("Content-Type"))
	s.Contains(rr.Body.String(), "openapi:")
}

func (s *ServerTestSuite) TestUnknownRoute_ShouldReturnJSONError() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil), "")

	testutils.AssertErrorResponse(s.T(), rr, http.StatusNotFound, "Route not found")
}

func (s *ServerTestSuite) TestCORS_ShouldAnswerPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/recipes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := s.do(req, "")

	s.Equal(http.StatusNoContent, rr.Code)
	s.NotEmpty(rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

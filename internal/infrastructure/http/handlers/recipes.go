package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
	"github.com/tablewise/server/internal/ports/inbound"
)

// MsgInvalidRecipe is reported for malformed or invalid recipe payloads
const MsgInvalidRecipe = "Invalid recipe data"

// RecipeHandlers serves the recipe store
type RecipeHandlers struct {
	*Responder
	recipes   inbound.RecipeService
	validator *validation.Validator
	metrics   *monitoring.Metrics
}

// NewRecipeHandlers creates the recipe handlers
func NewRecipeHandlers(
	responder *Responder,
	recipes inbound.RecipeService,
	validator *validation.Validator,
	metrics *monitoring.Metrics,
) *RecipeHandlers {
	return &RecipeHandlers{
		Responder: responder,
		recipes:   recipes,
		validator: validator,
		metrics:   metrics,
	}
}

// Routes mounts the handlers on r
func (h *RecipeHandlers) Routes(r chi.Router) {
	r.Get("/", h.ListRecipes)
	r.Post("/", h.CreateRecipe)
	r.Get("/{id}", h.GetRecipe)
	r.Patch("/{id}", h.UpdateRecipe)
	r.Delete("/{id}", h.DeleteRecipe)
}

// ListRecipes handles GET /api/recipes
func (h *RecipeHandlers) ListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.ListRecipes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipes)
}

// GetRecipe handles GET /api/recipes/{id}
func (h *RecipeHandlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipe)
}

// CreateRecipe handles POST /api/recipes
func (h *RecipeHandlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.CreateRecipeCommand
	if err := h.decode(w, r, &cmd, MsgInvalidRecipe); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validator.Struct(cmd, MsgInvalidRecipe); err != nil {
		h.writeError(w, r, err)
		return
	}

	recipe, err := h.recipes.CreateRecipe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecipeCreated()
	h.writeJSON(w, http.StatusCreated, recipe)
}

// UpdateRecipe handles PATCH /api/recipes/{id}
func (h *RecipeHandlers) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.UpdateRecipeCommand
	if err := h.decode(w, r, &cmd, MsgInvalidRecipe); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validator.Struct(cmd, MsgInvalidRecipe); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.RecipeID = chi.URLParam(r, "id")

	recipe, err := h.recipes.UpdateRecipe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, recipe)
}

// DeleteRecipe handles DELETE /api/recipes/{id}
func (h *RecipeHandlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := h.recipes.DeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecipeDeleted()
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

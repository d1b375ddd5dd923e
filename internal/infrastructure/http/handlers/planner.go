package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablewise/server/internal/domain/planner"
	"github.com/tablewise/server/internal/infrastructure/http/middleware"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
	"github.com/tablewise/server/internal/ports/inbound"
)

// PlannerHandlers serves the weekly planner and the grocery list. Every
// route is scoped to the device resolved by the DeviceID middleware.
type PlannerHandlers struct {
	*Responder
	planner   inbound.PlannerService
	validator *validation.Validator
	metrics   *monitoring.Metrics
}

// NewPlannerHandlers creates the planner handlers
func NewPlannerHandlers(
	responder *Responder,
	plannerService inbound.PlannerService,
	validator *validation.Validator,
	metrics *monitoring.Metrics,
) *PlannerHandlers {
	return &PlannerHandlers{
		Responder: responder,
		planner:   plannerService,
		validator: validator,
		metrics:   metrics,
	}
}

// Routes mounts the planner routes on /api/planner
func (h *PlannerHandlers) Routes(r chi.Router) {
	r.Get("/state", h.GetState)
	r.Put("/filters", h.UpdateFilters)
	r.Delete("/filters", h.ClearFilters)
	r.Put("/layout", h.UpdateLayout)
	r.Post("/selection/{recipeId}", h.ToggleSelection)
	r.Get("/candidates", h.Candidates)

	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", h.Place)
		r.Post("/{mealType}/{day}/extend", h.Extend)
		r.Post("/{mealType}/{day}/shrink", h.Shrink)
		r.Delete("/{mealType}/{day}", h.Remove)
	})
}

// GroceryRoutes mounts the grocery list routes on /api/grocery-list
func (h *PlannerHandlers) GroceryRoutes(r chi.Router) {
	r.Get("/", h.GroceryList)
	r.Post("/checked/{key}", h.ToggleGroceryItem)
}

// GetState handles GET /api/planner/state
func (h *PlannerHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.planner.GetState(r.Context(), middleware.GetDeviceID(r.Context()))
	h.respond(w, r, state, err)
}

// UpdateFilters handles PUT /api/planner/filters
func (h *PlannerHandlers) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var filters planner.Filters
	if err := h.decode(w, r, &filters, "Invalid filters"); err != nil {
		h.writeError(w, r, err)
		return
	}
	state, err := h.planner.UpdateFilters(r.Context(), middleware.GetDeviceID(r.Context()), filters)
	h.respond(w, r, state, err)
}

// ClearFilters handles DELETE /api/planner/filters
func (h *PlannerHandlers) ClearFilters(w http.ResponseWriter, r *http.Request) {
	state, err := h.planner.ClearFilters(r.Context(), middleware.GetDeviceID(r.Context()))
	h.respond(w, r, state, err)
}

// UpdateLayout handles PUT /api/planner/layout
func (h *PlannerHandlers) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.UpdateLayoutCommand
	if err := h.decode(w, r, &cmd, "Invalid layout"); err != nil {
		h.writeError(w, r, err)
		return
	}
	state, err := h.planner.UpdateLayout(r.Context(), middleware.GetDeviceID(r.Context()), cmd)
	h.respond(w, r, state, err)
}

// ToggleSelection handles POST /api/planner/selection/{recipeId}
func (h *PlannerHandlers) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	state, err := h.planner.ToggleSelection(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "recipeId"))
	h.respond(w, r, state, err)
}

// Candidates handles GET /api/planner/candidates
func (h *PlannerHandlers) Candidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.planner.Candidates(r.Context(), middleware.GetDeviceID(r.Context()))
	h.respond(w, r, candidates, err)
}

// Place handles POST /api/planner/assignments
func (h *PlannerHandlers) Place(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.PlaceCommand
	if err := h.decode(w, r, &cmd, "Invalid assignment"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validator.Struct(cmd, "Invalid assignment"); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.planner.Place(r.Context(), middleware.GetDeviceID(r.Context()), cmd)
	h.gridResult(w, r, "place", result, err)
}

// Extend handles POST /api/planner/assignments/{mealType}/{day}/extend
func (h *PlannerHandlers) Extend(w http.ResponseWriter, r *http.Request) {
	h.gridOp(w, r, "extend", h.planner.Extend)
}

// Shrink handles POST /api/planner/assignments/{mealType}/{day}/shrink
func (h *PlannerHandlers) Shrink(w http.ResponseWriter, r *http.Request) {
	h.gridOp(w, r, "shrink", h.planner.Shrink)
}

// Remove handles DELETE /api/planner/assignments/{mealType}/{day}
func (h *PlannerHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	h.gridOp(w, r, "remove", h.planner.Remove)
}

type gridFunc func(ctx context.Context, deviceID string, cmd inbound.GridCommand) (*inbound.GridResultDTO, error)

func (h *PlannerHandlers) gridOp(w http.ResponseWriter, r *http.Request, name string, op gridFunc) {
	day, err := dayParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd := inbound.GridCommand{MealType: chi.URLParam(r, "mealType"), Day: day}

	result, err := op(r.Context(), middleware.GetDeviceID(r.Context()), cmd)
	h.gridResult(w, r, name, result, err)
}

func (h *PlannerHandlers) gridResult(w http.ResponseWriter, r *http.Request, name string, result *inbound.GridResultDTO, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecordGridOperation(name, result.Changed)
	h.writeJSON(w, http.StatusOK, result)
}

// GroceryList handles GET /api/grocery-list
func (h *PlannerHandlers) GroceryList(w http.ResponseWriter, r *http.Request) {
	list, err := h.planner.GroceryList(r.Context(), middleware.GetDeviceID(r.Context()))
	h.respond(w, r, list, err)
}

// ToggleGroceryItem handles POST /api/grocery-list/checked/{key}
func (h *PlannerHandlers) ToggleGroceryItem(w http.ResponseWriter, r *http.Request) {
	list, err := h.planner.ToggleGroceryItem(r.Context(), middleware.GetDeviceID(r.Context()), pathParam(r, "key"))
	h.respond(w, r, list, err)
}

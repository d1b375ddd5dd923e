package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablewise/server/internal/domain/usermeta"
	"github.com/tablewise/server/internal/infrastructure/http/middleware"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/ports/inbound"
)

// UserMetaHandlers serves picks, ratings and view preferences of a recipe.
// The recipe does not have to exist.
type UserMetaHandlers struct {
	*Responder
	meta      inbound.UserMetaService
	validator *validation.Validator
}

// NewUserMetaHandlers creates the user meta handlers
func NewUserMetaHandlers(responder *Responder, meta inbound.UserMetaService, validator *validation.Validator) *UserMetaHandlers {
	return &UserMetaHandlers{Responder: responder, meta: meta, validator: validator}
}

// Routes mounts the handlers on /api/recipes
func (h *UserMetaHandlers) Routes(r chi.Router) {
	r.Get("/{id}/meta", h.GetMeta)
	r.Post("/{id}/meta/pick", h.ToggleMyPick)
	r.Put("/{id}/meta/rating", h.SetRating)
	r.Delete("/{id}/meta/rating", h.ClearRating)
	r.Get("/{id}/view-preferences", h.GetViewPreferences)
	r.Put("/{id}/view-preferences", h.SaveViewPreferences)
}

type ratingRequest struct {
	Rating *int `json:"rating" validate:"required"`
}

// GetMeta handles GET /api/recipes/{id}/meta
func (h *UserMetaHandlers) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.meta.GetMeta(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, meta, err)
}

// ToggleMyPick handles POST /api/recipes/{id}/meta/pick
func (h *UserMetaHandlers) ToggleMyPick(w http.ResponseWriter, r *http.Request) {
	meta, err := h.meta.ToggleMyPick(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, meta, err)
}

// SetRating handles PUT /api/recipes/{id}/meta/rating
func (h *UserMetaHandlers) SetRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := h.decode(w, r, &req, "Invalid rating"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validator.Struct(req, "Invalid rating"); err != nil {
		h.writeError(w, r, err)
		return
	}

	meta, err := h.meta.SetRating(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "id"), *req.Rating)
	h.respond(w, r, meta, err)
}

// ClearRating handles DELETE /api/recipes/{id}/meta/rating
func (h *UserMetaHandlers) ClearRating(w http.ResponseWriter, r *http.Request) {
	meta, err := h.meta.ClearRating(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, meta, err)
}

// GetViewPreferences handles GET /api/recipes/{id}/view-preferences
func (h *UserMetaHandlers) GetViewPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.meta.GetViewPreferences(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "id"))
	h.respond(w, r, prefs, err)
}

// SaveViewPreferences handles PUT /api/recipes/{id}/view-preferences
func (h *UserMetaHandlers) SaveViewPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs usermeta.ViewPreferences
	if err := h.decode(w, r, &prefs, "Invalid view preferences"); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.meta.SaveViewPreferences(r.Context(), middleware.GetDeviceID(r.Context()), chi.URLParam(r, "id"), prefs)
	h.respond(w, r, saved, err)
}

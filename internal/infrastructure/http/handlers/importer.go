package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tablewise/server/internal/domain/importer"
	"github.com/tablewise/server/internal/infrastructure/http/validation"
	"github.com/tablewise/server/internal/infrastructure/monitoring"
	"github.com/tablewise/server/internal/ports/inbound"
)

// ImportHandlers serves dictation, structuring, clipping and saving
type ImportHandlers struct {
	*Responder
	imports   inbound.ImportService
	validator *validation.Validator
	metrics   *monitoring.Metrics
}

// NewImportHandlers creates the importer handlers
func NewImportHandlers(
	responder *Responder,
	imports inbound.ImportService,
	validator *validation.Validator,
	metrics *monitoring.Metrics,
) *ImportHandlers {
	return &ImportHandlers{
		Responder: responder,
		imports:   imports,
		validator: validator,
		metrics:   metrics,
	}
}

// Routes mounts the handlers on the /api router
func (h *ImportHandlers) Routes(r chi.Router) {
	r.Post("/transcribe-audio", h.TranscribeAudio)
	r.Post("/parse-recipe", h.ParseRecipe)
	r.Post("/import/fill", h.Fill)
	r.Post("/import/save", h.Save)
}

type transcriptResponse struct {
	Transcript string `json:"transcript"`
}

type parseRequest struct {
	Transcript string `json:"transcript"`
}

type fillResponse struct {
	Form *importer.Form `json:"form"`
}

// saveRequest is the importer form; a lone pasted block may be sent as text
type saveRequest struct {
	importer.Form
	Text string `json:"text,omitempty"`
}

// TranscribeAudio handles POST /api/transcribe-audio
func (h *ImportHandlers) TranscribeAudio(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.TranscribeCommand
	if err := h.decode(w, r, &cmd, "Audio data is required"); err != nil {
		h.writeError(w, r, err)
		return
	}

	transcript, err := h.imports.Transcribe(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transcriptResponse{Transcript: transcript})
}

// ParseRecipe handles POST /api/parse-recipe
func (h *ImportHandlers) ParseRecipe(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := h.decode(w, r, &req, "Transcript text is required"); err != nil {
		h.writeError(w, r, err)
		return
	}

	structured, err := h.imports.Parse(r.Context(), req.Transcript)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, structured)
}

// Fill handles POST /api/import/fill
func (h *ImportHandlers) Fill(w http.ResponseWriter, r *http.Request) {
	var cmd inbound.FillCommand
	if err := h.decode(w, r, &cmd, "Invalid import request"); err != nil {
		h.writeError(w, r, err)
		return
	}
	cmd.URL = strings.TrimSpace(cmd.URL)
	if err := h.validator.Struct(cmd, "Invalid import request"); err != nil {
		h.writeError(w, r, err)
		return
	}

	form, err := h.imports.Fill(r.Context(), cmd)
	h.metrics.RecordImport(fillSource(cmd), err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fillResponse{Form: form})
}

// Save handles POST /api/import/save
func (h *ImportHandlers) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := h.decode(w, r, &req, MsgInvalidRecipe); err != nil {
		h.writeError(w, r, err)
		return
	}

	form := req.Form
	if strings.TrimSpace(req.Text) != "" && !form.HasContent() {
		pasted := importer.SplitRecipeText(req.Text)
		pasted.Image = form.Image
		pasted.SourceURL = form.SourceURL
		pasted.CookTime = form.CookTime
		pasted.Servings = form.Servings
		pasted.Tags = form.Tags
		form = pasted
	}

	recipe, err := h.imports.Save(r.Context(), form)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.RecipeCreated()
	h.writeJSON(w, http.StatusCreated, recipe)
}

func fillSource(cmd inbound.FillCommand) string {
	switch {
	case cmd.Audio != "":
		return "audio"
	case strings.TrimSpace(cmd.Text) != "":
		return "text"
	case strings.TrimSpace(cmd.URL) != "":
		return "url"
	default:
		return "none"
	}
}

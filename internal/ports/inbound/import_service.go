package inbound

import (
	"context"

	"github.com/tablewise/server/internal/domain/importer"
)

// ImportService covers every way of getting a recipe into the store
type ImportService interface {
	Transcribe(ctx context.Context, cmd TranscribeCommand) (string, error)
	Parse(ctx context.Context, transcript string) (*importer.Structured, error)
	Fill(ctx context.Context, cmd FillCommand) (*importer.Form, error)
	Save(ctx context.Context, form importer.Form) (*RecipeDTO, error)
}

// TranscribeCommand carries base64 encoded audio
type TranscribeCommand struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType"`
	Language string `json:"language,omitempty"`
}

// FillCommand fills the importer form from audio, text or a URL, in that
// order of preference.
type FillCommand struct {
	Form     importer.Form `json:"form"`
	Audio    string        `json:"audio,omitempty"`
	MimeType string        `json:"mimeType,omitempty"`
	Language string        `json:"language,omitempty"`
	Text     string        `json:"text,omitempty"`
	URL      string        `json:"url,omitempty" validate:"omitempty,url"`
	Confirm  bool          `json:"confirm"`
}

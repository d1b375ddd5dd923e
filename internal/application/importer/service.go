// Package importer provides the recipe import use cases: dictation,
// transcript structuring, page clipping and saving the importer form.
package importer

import (
	"context"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/domain/importer"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
)

// Messages returned to clients. They are shown verbatim in the importer.
const (
	MsgAudioRequired      = "Audio data is required"
	MsgAudioInvalid       = "Audio data is invalid"
	MsgTranscriptRequired = "Transcript text is required"
	MsgTranscribeFailed   = "Failed to transcribe audio"
	MsgParseFailed        = "Failed to parse recipe"
	MsgFetchFailed        = "Failed to fetch recipe page"
	MsgNothingToImport    = "Provide audio, text or a URL to import from"
	MsgConfirmOverwrite   = "The form already has content. Confirm to replace it."
)

// Service implements inbound.ImportService
type Service struct {
	transcriber outbound.Transcriber
	structurer  outbound.RecipeStructurer
	fetcher     outbound.PageFetcher
	recipes     inbound.RecipeService
	logger      *zap.Logger
}

// NewService creates the import service
func NewService(
	transcriber outbound.Transcriber,
	structurer outbound.RecipeStructurer,
	fetcher outbound.PageFetcher,
	recipes inbound.RecipeService,
	logger *zap.Logger,
) *Service {
	return &Service{
		transcriber: transcriber,
		structurer:  structurer,
		fetcher:     fetcher,
		recipes:     recipes,
		logger:      logger.Named("import-service"),
	}
}

var _ inbound.ImportService = (*Service)(nil)

// Transcribe decodes base64 audio and turns it into text
func (s *Service) Transcribe(ctx context.Context, cmd inbound.TranscribeCommand) (string, error) {
	audio, err := decodeAudio(cmd.Audio)
	if err != nil {
		return "", err
	}

	s.logger.Info("Transcribing audio",
		zap.String("mime_type", cmd.MimeType),
		zap.Int("bytes", len(audio)),
	)

	transcript, err := s.transcriber.Transcribe(ctx, outbound.TranscriptionRequest{
		Audio:    audio,
		MimeType: cmd.MimeType,
		Language: strings.TrimSpace(cmd.Language),
	})
	if err != nil {
		s.logger.Error("Transcription failed", zap.Error(err))
		return "", upstream(err, "transcription", MsgTranscribeFailed)
	}
	return transcript, nil
}

// Parse structures a transcript into a recipe
func (s *Service) Parse(ctx context.Context, transcript string) (*importer.Structured, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.NewBadRequestError(MsgTranscriptRequired)
	}

	structured, err := s.structurer.Structure(ctx, transcript)
	if err != nil {
		s.logger.Error("Structuring failed", zap.Error(err))
		return nil, upstream(err, "structurer", MsgParseFailed)
	}

	out := fromStructured(structured)
	s.logger.Info("Recipe parsed",
		zap.String("title", out.Title),
		zap.Int("ingredients", len(out.Ingredients)),
		zap.Int("steps", len(out.Steps)),
	)
	return &out, nil
}

// Fill fills the importer form from audio, text or a URL. A form that
// already has content is only overwritten with Confirm set; that check runs
// before any external call. Any failure leaves the caller's form as it was.
func (s *Service) Fill(ctx context.Context, cmd inbound.FillCommand) (*importer.Form, error) {
	if cmd.Form.HasContent() && !cmd.Confirm {
		return nil, errors.NewConfirmationRequiredError(MsgConfirmOverwrite).WithCause(importer.ErrConfirmationRequired)
	}

	var (
		structured *importer.Structured
		err        error
	)
	switch {
	case cmd.Audio != "":
		var transcript string
		transcript, err = s.Transcribe(ctx, inbound.TranscribeCommand{
			Audio:    cmd.Audio,
			MimeType: cmd.MimeType,
			Language: cmd.Language,
		})
		if err == nil {
			structured, err = s.Parse(ctx, transcript)
		}
	case strings.TrimSpace(cmd.Text) != "":
		structured, err = s.Parse(ctx, cmd.Text)
	case strings.TrimSpace(cmd.URL) != "":
		structured, err = s.clip(ctx, strings.TrimSpace(cmd.URL))
	default:
		return nil, errors.NewBadRequestError(MsgNothingToImport).WithCause(importer.ErrNothingToImport)
	}
	if err != nil {
		return nil, err
	}

	filled := cmd.Form.Apply(*structured)
	return &filled, nil
}

// clip fetches a recipe page and structures its readable text
func (s *Service) clip(ctx context.Context, url string) (*importer.Structured, error) {
	s.logger.Info("Clipping recipe page", zap.String("url", url))

	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Error("Page fetch failed", zap.String("url", url), zap.Error(err))
		return nil, upstream(err, "page fetcher", MsgFetchFailed)
	}

	text := strings.TrimSpace(page.Text)
	if page.Title != "" {
		text = page.Title + "\n\n" + text
	}
	structured, err := s.Parse(ctx, text)
	if err != nil {
		return nil, err
	}

	structured.SourceURL = url
	if page.URL != "" {
		structured.SourceURL = page.URL
	}
	if structured.Image == "" {
		structured.Image = page.Image
	}
	return structured, nil
}

// Save creates a recipe from the importer form
func (s *Service) Save(ctx context.Context, form importer.Form) (*inbound.RecipeDTO, error) {
	d := form.ToDraft()
	return s.recipes.CreateRecipe(ctx, inbound.CreateRecipeCommand{
		Title:       d.Title,
		Ingredients: d.Ingredients,
		Steps:       d.Steps,
		Image:       d.Image,
		SourceURL:   d.SourceURL,
		CookTime:    d.CookTime,
		Servings:    d.Servings,
		Tags:        d.Tags,
	})
}

func decodeAudio(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.NewBadRequestError(MsgAudioRequired)
	}
	// data URLs are accepted as sent by browsers
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(audio) == 0 {
		return nil, errors.NewBadRequestError(MsgAudioInvalid)
	}
	return audio, nil
}

// upstream passes AppErrors from adapters through and wraps anything else
// as an external service failure carrying the upstream message.
func upstream(err error, service, fallback string) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = fallback
	}
	return errors.NewExternalServiceError(service, message, err)
}

func fromStructured(s *outbound.StructuredRecipe) importer.Structured {
	if s == nil {
		return importer.Structured{Ingredients: []string{}, Steps: []string{}}
	}
	out := importer.Structured{
		Title:       strings.TrimSpace(s.Title),
		Ingredients: s.Ingredients,
		Steps:       s.Steps,
		CookTime:    s.CookTime,
		Servings:    s.Servings,
		Tags:        s.Tags,
	}
	if out.Ingredients == nil {
		out.Ingredients = []string{}
	}
	if out.Steps == nil {
		out.Steps = []string{}
	}
	return out
}

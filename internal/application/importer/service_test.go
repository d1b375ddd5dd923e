package importer

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/domain/importer"
	"github.com/tablewise/server/internal/ports/inbound"
	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
	"github.com/tablewise/server/test/testutils"
)

// recipeServiceStub records what Save hands to the recipe service
type recipeServiceStub struct {
	inbound.RecipeService
	created []inbound.CreateRecipeCommand
}

func (r *recipeServiceStub) CreateRecipe(_ context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	r.created = append(r.created, cmd)
	return &inbound.RecipeDTO{ID: "new", Title: cmd.Title, Ingredients: cmd.Ingredients, Steps: cmd.Steps}, nil
}

type ImportServiceTestSuite struct {
	suite.Suite
	transcriber *testutils.MockTranscriber
	structurer  *testutils.MockStructurer
	fetcher     *testutils.MockPageFetcher
	recipes     *recipeServiceStub
	service     *Service
	ctx         context.Context
}

func (s *ImportServiceTestSuite) SetupTest() {
	s.transcriber = &testutils.MockTranscriber{}
	s.structurer = &testutils.MockStructurer{}
	s.fetcher = &testutils.MockPageFetcher{}
	s.recipes = &recipeServiceStub{}
	s.service = NewService(s.transcriber, s.structurer, s.fetcher, s.recipes, zaptest.NewLogger(s.T()))
	s.ctx = context.Background()
}

func audio(b string) string {
	return base64.StdEncoding.EncodeToString([]byte(b))
}

func (s *ImportServiceTestSuite) TestTranscribe_ShouldValidateAudio() {
	_, err := s.service.Transcribe(s.ctx, inbound.TranscribeCommand{Audio: "  "})
	appErr := testutils.AssertAppError(s.T(), err, errors.CodeBadRequest)
	s.Equal(MsgAudioRequired, appErr.Message)

	_, err = s.service.Transcribe(s.ctx, inbound.TranscribeCommand{Audio: "%%%not-base64"})
	appErr = testutils.AssertAppError(s.T(), err, errors.CodeBadRequest)
	s.Equal(MsgAudioInvalid, appErr.Message)

	s.transcriber.AssertNotCalled(s.T(), "Transcribe", mock.Anything, mock.Anything)
}

func (s *ImportServiceTestSuite) TestTranscribe_ShouldPassHintsAndDecodeDataURL() {
	// Arrange
	s.transcriber.On("Transcribe", mock.Anything, outbound.TranscriptionRequest{
		Audio:    []byte("RIFF"),
		MimeType: "audio/webm",
		Language: "en",
	}).Return("two eggs and toast", nil)

	// Act
	text, err := s.service.Transcribe(s.ctx, inbound.TranscribeCommand{
		Audio:    "data:audio/webm;base64," + audio("RIFF"),
		MimeType: "audio/webm",
		Language: " en ",
	})

	// Assert
	s.Require().NoError(err)
	s.Equal("two eggs and toast", text)
}

func (s *ImportServiceTestSuite) TestTranscribe_ShouldSurfaceUpstreamMessage() {
	s.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return("", stderrors.New("Invalid file format."))

	_, err := s.service.Transcribe(s.ctx, inbound.TranscribeCommand{Audio: audio("x")})

	appErr := testutils.AssertAppError(s.T(), err, errors.CodeExternalServiceError)
	s.Equal("Invalid file format.", appErr.Message)
}

func (s *ImportServiceTestSuite) TestParse_ShouldRequireTranscript() {
	_, err := s.service.Parse(s.ctx, " \n ")

	appErr := testutils.AssertAppError(s.T(), err, errors.CodeBadRequest)
	s.Equal(MsgTranscriptRequired, appErr.Message)
}

func (s *ImportServiceTestSuite) TestParse_ShouldPassAdapterErrorsThrough() {
	s.structurer.On("Structure", mock.Anything, "soup").
		Return(nil, errors.NewExternalServiceError("openai", "No response from AI", nil))

	_, err := s.service.Parse(s.ctx, "soup")

	appErr := testutils.AssertAppError(s.T(), err, errors.CodeExternalServiceError)
	s.Equal("No response from AI", appErr.Message)
}

func (s *ImportServiceTestSuite) TestFill_ShouldRequireConfirmationBeforeCallingAnything() {
	// Arrange
	cmd := inbound.FillCommand{
		Form:  importer.Form{Title: "Draft"},
		Audio: audio("x"),
	}

	// Act
	_, err := s.service.Fill(s.ctx, cmd)

	// Assert
	testutils.AssertAppError(s.T(), err, errors.CodeConfirmationRequired)
	s.ErrorIs(err, importer.ErrConfirmationRequired)
	s.transcriber.AssertNotCalled(s.T(), "Transcribe", mock.Anything, mock.Anything)
	s.structurer.AssertNotCalled(s.T(), "Structure", mock.Anything, mock.Anything)
}

func (s *ImportServiceTestSuite) TestFill_ShouldRunDictationPipeline() {
	// Arrange
	s.transcriber.On("Transcribe", mock.Anything, mock.Anything).Return("pancakes with flour and eggs", nil)
	minutes := 15
	s.structurer.On("Structure", mock.Anything, "pancakes with flour and eggs").Return(&outbound.StructuredRecipe{
		Title:       "Pancakes",
		Ingredients: []string{"flour", "eggs"},
		Steps:       []string{"Mix.", "Fry."},
		CookTime:    &minutes,
		Servings:    "3-4",
		Tags:        []string{"vegetarian"},
	}, nil)
	cmd := inbound.FillCommand{
		Form:    importer.Form{Title: "Old", Image: "https://img/p.jpg"},
		Audio:   audio("voice"),
		Confirm: true,
	}

	// Act
	form, err := s.service.Fill(s.ctx, cmd)

	// Assert
	s.Require().NoError(err)
	s.Equal("Pancakes", form.Title)
	s.Equal("flour\neggs", form.Ingredients)
	s.Equal("Mix.\nFry.", form.Steps)
	s.Equal("https://img/p.jpg", form.Image)
	s.Equal(&minutes, form.CookTime)
	s.Equal([]string{"vegetarian"}, form.Tags)
}

func (s *ImportServiceTestSuite) TestFill_ShouldAbortOnUpstreamFailure() {
	s.structurer.On("Structure", mock.Anything, "some text").Return(nil, stderrors.New("rate limited"))

	form, err := s.service.Fill(s.ctx, inbound.FillCommand{Text: "some text"})

	s.Nil(form)
	appErr := testutils.AssertAppError(s.T(), err, errors.CodeExternalServiceError)
	s.Equal("rate limited", appErr.Message)
}

func (s *ImportServiceTestSuite) TestFill_ShouldClipURLAndKeepSource() {
	// Arrange
	s.fetcher.On("Fetch", mock.Anything, "https://example.com/soup").Return(&outbound.FetchedPage{
		URL:   "https://example.com/soup",
		Title: "Tomato soup",
		Text:  "2 tomatoes\nSimmer for 20 minutes.",
		Image: "https://example.com/soup.jpg",
	}, nil)
	s.structurer.On("Structure", mock.Anything, "Tomato soup\n\n2 tomatoes\nSimmer for 20 minutes.").
		Return(&outbound.StructuredRecipe{Title: "Tomato soup", Ingredients: []string{"2 tomatoes"}, Steps: []string{"Simmer for 20 minutes."}}, nil)

	// Act
	form, err := s.service.Fill(s.ctx, inbound.FillCommand{URL: " https://example.com/soup "})

	// Assert
	s.Require().NoError(err)
	s.Equal("https://example.com/soup", form.SourceURL)
	s.Equal("https://example.com/soup.jpg", form.Image)
	s.Equal("2 tomatoes", form.Ingredients)
}

func (s *ImportServiceTestSuite) TestFill_ShouldRejectEmptySource() {
	_, err := s.service.Fill(s.ctx, inbound.FillCommand{})

	testutils.AssertAppError(s.T(), err, errors.CodeBadRequest)
	s.ErrorIs(err, importer.ErrNothingToImport)
}

func (s *ImportServiceTestSuite) TestSave_ShouldSplitLinesAndDefaultTitle() {
	// Act
	dto, err := s.service.Save(s.ctx, importer.Form{
		Ingredients: "200g spaghetti\n\n 50g parmesan ",
		Steps:       "Boil pasta.\nAdd cheese.",
	})

	// Assert
	s.Require().NoError(err)
	s.Equal(importer.DefaultTitle, dto.Title)
	s.Require().Len(s.recipes.created, 1)
	s.Equal([]string{"200g spaghetti", "50g parmesan"}, s.recipes.created[0].Ingredients)
	s.Equal([]string{"Boil pasta.", "Add cheese."}, s.recipes.created[0].Steps)
}

func TestImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceTestSuite))
}

func TestUpstream_ShouldFallBackWhenMessageIsBlank(t *testing.T) {
	err := upstream(stderrors.New(" "), "openai", MsgParseFailed)

	appErr, ok := errors.As(err)
	assert.True(t, ok)
	assert.Equal(t, MsgParseFailed, appErr.Message)
}

package structured

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/server/pkg/errors"
)

func TestDecode_ShouldReadWellFormedAnswer(t *testing.T) {
	got, err := Decode("openai", `{
		"title": " Pancakes ",
		"ingredients": ["200g flour", " ", "2 eggs"],
		"steps": ["Mix.", "Fry."],
		"cookTime": 20,
		"servings": "3-4",
		"tags": ["vegetarian"]
	}`)

	require.NoError(t, err)
	assert.Equal(t, "Pancakes", got.Title)
	assert.Equal(t, []string{"200g flour", "2 eggs"}, got.Ingredients)
	assert.Equal(t, []string{"Mix.", "Fry."}, got.Steps)
	require.NotNil(t, got.CookTime)
	assert.Equal(t, 20, *got.CookTime)
	assert.Equal(t, "3-4", got.Servings)
	assert.Equal(t, []string{"vegetarian"}, got.Tags)
}

func TestDecode_ShouldTolerateLooseTypes(t *testing.T) {
	got, err := Decode("gemini", "```json\n{\"title\":\"Soup\",\"cookTime\":\"45\",\"servings\":4}\n```")

	require.NoError(t, err)
	assert.Equal(t, "Soup", got.Title)
	require.NotNil(t, got.CookTime)
	assert.Equal(t, 45, *got.CookTime)
	assert.Equal(t, "3-4", got.Servings)
	assert.Empty(t, got.Ingredients)
	assert.Nil(t, got.Tags)
}

func TestDecode_ShouldKeepOnlyAllowedTagsAndServings(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantTags     []string
		wantServings string
	}{
		{"canonical", `{"title":"a","tags":["kidFriendly","glutenFree"],"servings":"5+"}`, []string{"kidFriendly", "glutenFree"}, "5+"},
		{"respelled", `{"title":"a","tags":["Kid friendly","gluten-free","VEGETARIAN"],"servings":"1-2"}`, []string{"kidFriendly", "glutenFree", "vegetarian"}, "1-2"},
		{"unknown dropped", `{"title":"a","tags":["spicy","vegetarian","Vegetarian"],"servings":"a crowd"}`, []string{"vegetarian"}, ""},
		{"head count bucketed", `{"title":"a","tags":[],"servings":"8"}`, []string{}, "5+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode("openai", tt.content)

			require.NoError(t, err)
			assert.Equal(t, tt.wantTags, got.Tags)
			assert.Equal(t, tt.wantServings, got.Servings)
		})
	}
}

func TestDecode_ShouldDropOutOfRangeCookTime(t *testing.T) {
	got, err := Decode("openai", `{"title":"Stock","cookTime":5000}`)

	require.NoError(t, err)
	assert.Nil(t, got.CookTime)
}

func TestDecode_ShouldReportUnusableAnswers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "  ", MsgNoResponse},
		{"prose", "Sure! Here is your recipe.", MsgInvalidFormat},
		{"array", `["not","an","object"]`, MsgInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("openai", tt.content)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.CodeExternalServiceError, appErr.Code)
			assert.Equal(t, tt.want, appErr.Message)
		})
	}
}

func TestSystemPrompt_ShouldRestrictTags(t *testing.T) {
	prompt := SystemPrompt()

	assert.Contains(t, prompt, `"kidFriendly", "vegetarian", "glutenFree"`)
	assert.Contains(t, prompt, `"1-2", "3-4", or "5+"`)
}

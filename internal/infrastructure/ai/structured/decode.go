// Package structured holds the prompt and response decoding shared by the
// recipe structuring adapters.
package structured

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tablewise/server/internal/ports/outbound"
	"github.com/tablewise/server/pkg/errors"
)

// Messages returned when a model answer cannot be used
const (
	MsgNoResponse    = "No response from AI"
	MsgInvalidFormat = "AI returned invalid format. Please try again."
)

// allowedTags maps a squashed, lowercased tag onto the tags a recipe may carry
var allowedTags = map[string]string{
	"kidfriendly": "kidFriendly",
	"vegetarian":  "vegetarian",
	"glutenfree":  "glutenFree",
}

// servingsBuckets are the only servings descriptors the prompt allows
var servingsBuckets = []string{"1-2", "3-4", "5+"}

//go:embed prompts/parse_recipe.txt
var parseRecipePrompt string

// SystemPrompt returns the instructions sent ahead of the recipe text
func SystemPrompt() string {
	return strings.TrimSpace(parseRecipePrompt)
}

// answer is lenient about the types a model sends back
type answer struct {
	Title       string          `json:"title"`
	Ingredients []string        `json:"ingredients"`
	Steps       []string        `json:"steps"`
	CookTime    json.RawMessage `json:"cookTime"`
	Servings    json.RawMessage `json:"servings"`
	Tags        []string        `json:"tags"`
}

// Decode turns the model's JSON answer into a structured recipe. Blank
// content and anything that is not a JSON object are reported with the
// user facing messages above; service names the provider in the error.
func Decode(service, content string) (*outbound.StructuredRecipe, error) {
	content = strings.TrimSpace(stripFence(content))
	if content == "" {
		return nil, errors.NewExternalServiceError(service, MsgNoResponse, nil)
	}

	var a answer
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return nil, errors.NewExternalServiceError(service, MsgInvalidFormat, err)
	}

	out := &outbound.StructuredRecipe{
		Title:       strings.TrimSpace(a.Title),
		Ingredients: compact(a.Ingredients),
		Steps:       compact(a.Steps),
		CookTime:    minutes(a.CookTime),
		Servings:    servings(text(a.Servings)),
	}
	if a.Tags != nil {
		out.Tags = tags(a.Tags)
	}
	return out, nil
}

// tags keeps the known tags in their canonical spelling, deduplicated
func tags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		squashed := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(t)))
		canonical, ok := allowedTags[squashed]
		if !ok || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

// servings maps an answer onto a servings bucket. A bare head count is
// bucketed; anything else unrecognised is dropped.
func servings(s string) string {
	for _, b := range servingsBuckets {
		if s == b {
			return s
		}
	}
	n, err := strconv.Atoi(s)
	switch {
	case err != nil || n <= 0:
		return ""
	case n <= 2:
		return "1-2"
	case n <= 4:
		return "3-4"
	default:
		return "5+"
	}
}

// stripFence removes a ```json fence some models add despite instructions
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func compact(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func minutes(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil
		}
	}
	if f < 0 || f > 1440 || math.IsNaN(f) {
		return nil
	}
	m := int(math.Round(f))
	return &m
}

func text(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return fmt.Sprint(f)
	}
	return ""
}

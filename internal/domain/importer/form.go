// Package importer turns raw recipe input (typed text, a structured AI
// response or a fetched page) into a recipe draft.
package importer

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tablewise/server/internal/domain/recipe"
)

// DefaultTitle is used when a recipe is saved without a title
const DefaultTitle = "Untitled Recipe"

var (
	ErrConfirmationRequired = errors.New("the form already has content; confirm to overwrite it")
	ErrNothingToImport      = errors.New("no audio, text or url to import from")
)

// Form is the importer's editable state. Ingredients and Steps hold one entry per line.
type Form struct {
	Title       string   `json:"title"`
	Ingredients string   `json:"ingredients"`
	Steps       string   `json:"steps"`
	Image       string   `json:"image,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
	CookTime    *int     `json:"cookTime,omitempty"`
	Servings    string   `json:"servings,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Structured is a recipe as returned by the structuring service
type Structured struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	CookTime    *int     `json:"cookTime,omitempty"`
	Servings    string   `json:"servings,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Image       string   `json:"image,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
}

// SplitLines splits text on newlines, trims each line and drops blank ones
func SplitLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// HasContent reports whether any of title, ingredients or steps is filled
// in. Overwriting such a form needs confirmation.
func (f Form) HasContent() bool {
	return strings.TrimSpace(f.Title) != "" ||
		strings.TrimSpace(f.Ingredients) != "" ||
		strings.TrimSpace(f.Steps) != ""
}

// Apply fills the form from a structured recipe. Image and source URL are
// kept unless the structured recipe brings its own.
func (f Form) Apply(s Structured) Form {
	out := Form{
		Title:       strings.TrimSpace(s.Title),
		Ingredients: strings.Join(trimAll(s.Ingredients), "\n"),
		Steps:       strings.Join(trimAll(s.Steps), "\n"),
		Image:       f.Image,
		SourceURL:   f.SourceURL,
		CookTime:    s.CookTime,
		Servings:    strings.TrimSpace(s.Servings),
		Tags:        s.Tags,
	}
	if s.Image != "" {
		out.Image = s.Image
	}
	if s.SourceURL != "" {
		out.SourceURL = s.SourceURL
	}
	return out
}

// ToDraft converts the form into a recipe draft
func (f Form) ToDraft() recipe.Draft {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = DefaultTitle
	}
	return recipe.Draft{
		Title:       title,
		Ingredients: SplitLines(f.Ingredients),
		Steps:       SplitLines(f.Steps),
		Image:       f.Image,
		SourceURL:   f.SourceURL,
		CookTime:    f.CookTime,
		Servings:    f.Servings,
		Tags:        f.Tags,
	}
}

var (
	sectionHeader = regexp.MustCompile(`(?i)^(ingredients|steps|instructions|directions|method|preparation)\s*:?\s*$`)
	sentenceEnd   = regexp.MustCompile(`[.!?]$`)
	bulletPrefix  = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)
)

// SplitRecipeText parses a single pasted block: the first non-blank line is
// the title. Explicit "Ingredients" and "Steps" headers are honoured; without
// them the leading lines that do not end like a sentence are ingredients and
// the rest are steps.
func SplitRecipeText(text string) Form {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return Form{}
	}
	form := Form{Title: lines[0]}
	body := lines[1:]

	var ingredients, steps []string
	if hasHeaders(body) {
		var current *[]string
		for _, line := range body {
			if m := sectionHeader.FindStringSubmatch(line); m != nil {
				if strings.EqualFold(m[1], "ingredients") {
					current = &ingredients
				} else {
					current = &steps
				}
				continue
			}
			if current == nil {
				current = &ingredients
			}
			*current = append(*current, stripBullet(line))
		}
	} else {
		i := 0
		for i < len(body) && !sentenceEnd.MatchString(body[i]) {
			i++
		}
		for _, l := range body[:i] {
			ingredients = append(ingredients, stripBullet(l))
		}
		for _, l := range body[i:] {
			steps = append(steps, stripBullet(l))
		}
	}

	form.Ingredients = strings.Join(ingredients, "\n")
	form.Steps = strings.Join(steps, "\n")
	return form
}

func hasHeaders(lines []string) bool {
	for _, l := range lines {
		if sectionHeader.MatchString(l) {
			return true
		}
	}
	return false
}

func stripBullet(line string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
}

func trimAll(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

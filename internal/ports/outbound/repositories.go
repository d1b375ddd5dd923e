// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/tablewise/server/internal/domain/recipe"
)

// RecipeRepository defines the interface for recipe persistence
type RecipeRepository interface {
	Create(ctx context.Context, recipe *recipe.Recipe) error
	Update(ctx context.Context, recipe *recipe.Recipe) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*recipe.Recipe, error)

	// FindAll returns every recipe, newest first
	FindAll(ctx context.Context) ([]*recipe.Recipe, error)
	FindByIDs(ctx context.Context, ids []string) ([]*recipe.Recipe, error)
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ErrStateNotFound is returned by StateStore.Get when nothing is stored under a key
var ErrStateNotFound = errors.New("state entry not found")

// StateStore is a key/value store for device-scoped state. Values are opaque
// JSON documents.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every key that starts with prefix, in lexical order
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MessageBus defines the interface for publishing messages
type MessageBus interface {
	Publish(ctx context.Context, topic string, message Message) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
	Unsubscribe(ctx context.Context, topic string) error
}

// Message represents a message to be published
type Message struct {
	ID        string
	Type      string
	Payload   []byte
	Metadata  map[string]string
	Timestamp time.Time
}

// MessageHandler handles incoming messages
type MessageHandler func(ctx context.Context, message Message) error

// Transcriber turns recorded speech into text
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

// TranscriptionRequest carries decoded audio and its hints
type TranscriptionRequest struct {
	Audio    []byte
	MimeType string
	Language string
}

// RecipeStructurer extracts a structured recipe from free text
type RecipeStructurer interface {
	Structure(ctx context.Context, text string) (*StructuredRecipe, error)
}

// StructuredRecipe is the structurer's answer
type StructuredRecipe struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	CookTime    *int     `json:"cookTime,omitempty"`
	Servings    string   `json:"servings,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// PageFetcher downloads a web page and returns its readable text
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedPage, error)
}

// FetchedPage is the readable content of a recipe page
type FetchedPage struct {
	URL   string
	Title string
	Text  string
	Image string
}

// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tablewise/server/internal/domain/recipe"
	"github.com/tablewise/server/internal/ports/outbound"
)

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

// NewMockRecipeRepository creates a new mock recipe repository
func NewMockRecipeRepository() *MockRecipeRepository {
	return &MockRecipeRepository{}
}

func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.Recipe) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRecipeRepository) Update(ctx context.Context, r *recipe.Recipe) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*recipe.Recipe); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecipeRepository) FindAll(ctx context.Context) ([]*recipe.Recipe, error) {
	args := m.Called(ctx)
	if rs, ok := args.Get(0).([]*recipe.Recipe); ok {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecipeRepository) FindByIDs(ctx context.Context, ids []string) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ids)
	if fn, ok := args.Get(0).(func(context.Context, []string) []*recipe.Recipe); ok {
		return fn(ctx, ids), args.Error(1)
	}
	if rs, ok := args.Get(0).([]*recipe.Recipe); ok {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCacheRepository is a mock implementation of the cache repository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if b, ok := args.Get(0).([]byte); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// SetupMissBehavior makes every read miss and every write succeed
func (m *MockCacheRepository) SetupMissBehavior() {
	m.On("Get", mock.Anything, mock.AnythingOfType("string")).Return(nil, outbound.ErrCacheMiss)
	m.On("Set", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(nil)
	m.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)
	m.On("Exists", mock.Anything, mock.AnythingOfType("string")).Return(false, nil)
}

// MockMessageBus provides a mock implementation of message bus
type MockMessageBus struct {
	mock.Mock
	published []outbound.Message
	mu        sync.RWMutex
}

// NewMockMessageBus creates a new mock message bus
func NewMockMessageBus() *MockMessageBus {
	return &MockMessageBus{}
}

func (m *MockMessageBus) Publish(ctx context.Context, topic string, message outbound.Message) error {
	args := m.Called(ctx, topic, message)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.published = append(m.published, message)
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockMessageBus) Subscribe(ctx context.Context, topic string, handler outbound.MessageHandler) error {
	args := m.Called(ctx, topic, handler)
	return args.Error(0)
}

func (m *MockMessageBus) Unsubscribe(ctx context.Context, topic string) error {
	args := m.Called(ctx, topic)
	return args.Error(0)
}

// PublishedTypes returns the types of every successfully published message
func (m *MockMessageBus) PublishedTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]string, 0, len(m.published))
	for _, msg := range m.published {
		types = append(types, msg.Type)
	}
	return types
}

// SetupStandardMockBehavior sets up common mock behaviors
func (m *MockMessageBus) SetupStandardMockBehavior() {
	m.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	m.On("Subscribe", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	m.On("Unsubscribe", mock.Anything, mock.AnythingOfType("string")).Return(nil)
}

// MockTranscriber mocks the speech-to-text adapter
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, req outbound.TranscriptionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockStructurer mocks the recipe structuring adapter
type MockStructurer struct {
	mock.Mock
}

func (m *MockStructurer) Structure(ctx context.Context, text string) (*outbound.StructuredRecipe, error) {
	args := m.Called(ctx, text)
	if s, ok := args.Get(0).(*outbound.StructuredRecipe); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPageFetcher mocks the web page fetcher
type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) Fetch(ctx context.Context, url string) (*outbound.FetchedPage, error) {
	args := m.Called(ctx, url)
	if p, ok := args.Get(0).(*outbound.FetchedPage); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// FakeStateStore is a map backed StateStore. Unlike the mocks above it keeps
// real state so services can be exercised across several calls.
type FakeStateStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	// Err, when set, is returned by every operation
	Err error
}

// NewFakeStateStore creates an empty store
func NewFakeStateStore() *FakeStateStore {
	return &FakeStateStore{entries: make(map[string][]byte)}
}

func (s *FakeStateStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, outbound.ErrStateNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *FakeStateStore) Put(_ context.Context, key string, value []byte) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	s.entries[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *FakeStateStore) Delete(_ context.Context, key string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *FakeStateStore) Keys(_ context.Context, prefix string) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Has reports whether key is stored
func (s *FakeStateStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

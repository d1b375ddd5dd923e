// Package devicestate persists small per-device JSON documents on top of an
// outbound.StateStore. Reads never fail: a missing, unreadable or undecodable
// entry yields the caller's default.
package devicestate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/tablewise/server/internal/ports/outbound"
)

// DefaultDevice is used when a request carries no device id
const DefaultDevice = "default"

const keyPrefix = "device/"

// Names of the documents kept per device
const (
	UserMetaPrefix = "recipe_user_meta_"
	ViewPrefix     = "recipe_view_"
)

// Store wraps a StateStore with logging and JSON encoding
type Store struct {
	backend outbound.StateStore
	logger  *zap.Logger
}

// NewStore creates a device state store
func NewStore(backend outbound.StateStore, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.Named("device-state"),
	}
}

// Key scopes name to a device
func Key(deviceID, name string) string {
	if deviceID == "" {
		deviceID = DefaultDevice
	}
	return keyPrefix + deviceID + "/" + name
}

// DevicePrefix returns the key prefix shared by every entry of a device
func DevicePrefix(deviceID string) string {
	return Key(deviceID, "")
}

// SplitKey is the inverse of Key
func SplitKey(key string) (deviceID, name string, ok bool) {
	rest, found := strings.CutPrefix(key, keyPrefix)
	if !found {
		return "", "", false
	}
	deviceID, name, ok = strings.Cut(rest, "/")
	return deviceID, name, ok && deviceID != ""
}

// UserMetaName is the document name of a recipe's user meta
func UserMetaName(recipeID string) string { return UserMetaPrefix + recipeID }

// ViewName is the document name of a recipe's view preferences
func ViewName(recipeID string) string { return ViewPrefix + recipeID }

// Load decodes the value stored under key, or returns def
func Load[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, outbound.ErrStateNotFound) {
			s.logger.Warn("Failed to read state", zap.String("key", key), zap.Error(err))
		}
		return def
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Warn("Discarding unreadable state", zap.String("key", key), zap.Error(err))
		return def
	}
	return value
}

// Save encodes and writes value. Failures are logged and reported as false.
func Save[T any](ctx context.Context, s *Store, key string, value T) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to encode state", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.backend.Put(ctx, key, raw); err != nil {
		s.logger.Error("Failed to write state", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes key; failures are logged
func (s *Store) Delete(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Error("Failed to delete state", zap.String("key", key), zap.Error(err))
	}
}

// Keys lists the keys under prefix. A failing backend yields no keys.
func (s *Store) Keys(ctx context.Context, prefix string) []string {
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		s.logger.Error("Failed to list state keys", zap.String("prefix", prefix), zap.Error(err))
		return nil
	}
	return keys
}

// Devices returns the distinct device ids that hold any state
func (s *Store) Devices(ctx context.Context) []string {
	seen := make(map[string]bool)
	var devices []string
	for _, key := range s.Keys(ctx, keyPrefix) {
		id, _, ok := SplitKey(key)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		devices = append(devices, id)
	}
	return devices
}

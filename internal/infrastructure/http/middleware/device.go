package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tablewise/server/pkg/errors"
)

const (
	// DeviceIDHeader scopes planner and user meta state to one client
	DeviceIDHeader = "X-Device-ID"
	// DefaultDeviceID is used when a client sends no header
	DefaultDeviceID = "default"
)

type deviceKey struct{}

// DeviceIDValidator checks a device identifier
type DeviceIDValidator interface {
	DeviceID(id string) bool
}

// DeviceID resolves the X-Device-ID header into the request context.
// Malformed ids are rejected with 400.
func DeviceID(v DeviceIDValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
			if id == "" {
				id = DefaultDeviceID
			}
			if !v.DeviceID(id) {
				WriteError(w, r, errors.NewBadRequestError("Invalid "+DeviceIDHeader+" header"), 0)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
		})
	}
}

// WithDeviceID stores a device id in ctx
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceKey{}, id)
}

// GetDeviceID returns the device of the request, or the default device
func GetDeviceID(ctx context.Context) string {
	if id, ok := ctx.Value(deviceKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultDeviceID
}

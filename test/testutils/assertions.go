// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/server/pkg/errors"
)

// AssertAppError asserts that err is an AppError carrying code
func AssertAppError(t *testing.T, err error, code errors.ErrorCode, msgAndArgs ...interface{}) *errors.AppError {
	t.Helper()
	require.Error(t, err, msgAndArgs...)

	appErr, ok := errors.As(err)
	require.True(t, ok, "expected *errors.AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, msgAndArgs...)
	return appErr
}

// JSONRequest builds a request with a JSON encoded body
func JSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes a recorded response body into dst
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), "body: %s", rr.Body.String())
}

// AssertErrorResponse checks the status and the "error" message of an error body
func AssertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) errors.ErrorResponse {
	t.Helper()
	require.Equal(t, status, rr.Code, "body: %s", rr.Body.String())

	var body errors.ErrorResponse
	DecodeJSON(t, rr, &body)
	if message != "" {
		assert.Equal(t, message, body.Error)
	}
	return body
}

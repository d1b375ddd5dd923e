// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tablewise/server/internal/infrastructure/http/middleware"
	"github.com/tablewise/server/pkg/errors"
)

// DefaultMaxBodyBytes bounds JSON request bodies; dictation uploads are the
// largest payloads the API accepts.
const DefaultMaxBodyBytes int64 = 25 << 20

// Responder writes JSON responses and decodes JSON requests
type Responder struct {
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewResponder creates a responder; maxBodyBytes <= 0 uses the default
func NewResponder(logger *zap.Logger, maxBodyBytes int64) *Responder {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Responder{logger: logger, maxBodyBytes: maxBodyBytes}
}

// writeJSON writes a JSON response
func (h *Responder) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError renders err. Anything that is not an AppError is logged and
// reported as an internal error without leaking its text.
func (h *Responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		h.logger.Error("Unhandled error",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		appErr = errors.NewInternalError("An unexpected error occurred")
	} else if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("code", string(appErr.Code)),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Unwrap()),
		)
	}
	middleware.WriteError(w, r, appErr, 0)
}

// respond writes data with 200, or the error
func (h *Responder) respond(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

// decode reads a JSON body into dst. message is reported for malformed JSON.
func (h *Responder) decode(w http.ResponseWriter, r *http.Request, dst interface{}, message string) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return errors.NewAppError(errors.CodeBadRequest, "Request body too large", err.Error())
	case stderrors.Is(err, io.EOF):
		return errors.NewAppError(errors.CodeBadRequest, message, "request body is empty")
	default:
		return errors.NewAppError(errors.CodeBadRequest, message, err.Error())
	}
}

// pathParam returns an unescaped URL parameter. Grocery keys may contain
// slashes ("1/2 cup sugar") and arrive percent-encoded. chi matches on
// RawPath when it is set and on the already decoded Path otherwise, so the
// value is unescaped only in the first case.
func pathParam(r *http.Request, name string) string {
	value := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return value
	}
	if v, err := url.PathUnescape(value); err == nil {
		return v
	}
	return value
}

// dayParam parses the {day} URL parameter
func dayParam(r *http.Request) (int, error) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		return 0, errors.NewBadRequestError("day must be an integer")
	}
	return day, nil
}

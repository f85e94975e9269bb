package http

import (
	"errors"
	"log/slog"
	"net/http"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUploadUnsupported), errors.Is(err, core.ErrReadOnlyBackend):
		return http.StatusNotImplemented
	case core.RejectionReason(err) == core.ReasonWrongPassword:
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrValidationRejected):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDataUnavailable), errors.Is(err, core.ErrServiceFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse builds the body for err. Server-side failures hide the
// underlying message.
func errorResponse(err error) *ResponseBuilder {
	status := statusFor(err)
	body := ErrorBody{Error: err.Error(), Kind: core.RejectionReason(err)}
	switch status {
	case http.StatusBadGateway:
		body = ErrorBody{Error: "statement service unavailable"}
	case http.StatusInternalServerError:
		body = ErrorBody{Error: "internal error"}
	case http.StatusNotImplemented:
		body.Kind = "unsupported"
	}
	return NewResponse().Status(status).JSON(body)
}

func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	writeErrorLog(r, operation, err)
	errorResponse(err).Write(w)
}

func writeErrorLog(r *http.Request, operation string, err error) {
	status := statusFor(err)
	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	log.FromContext(r.Context()).Log(r.Context(), level, "Request failed",
		log.FieldOperation, operation,
		log.FieldStatusCode, status,
		log.FieldError, err)
}

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means a fetch from the statement service failed.
	// No partial data accompanies it.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrValidationRejected means the service refused an update or upload.
	ErrValidationRejected = errors.New("validation rejected")
	ErrNotFound           = errors.New("not found")
	ErrServiceFailure     = errors.New("statement service failure")
	ErrUploadUnsupported  = errors.New("backend does not accept uploads")
	ErrReadOnlyBackend    = errors.New("backend is read-only")
)

// Rejection reasons carried by RejectedError.
const (
	ReasonInvalidCategory = "invalid_category"
	ReasonInvalidFormat   = "invalid_format"
	ReasonWrongPassword   = "wrong_password"
)

// Upload failure kinds distinguishable by the presentation layer.
const (
	UploadInvalidFormat = ReasonInvalidFormat
	UploadWrongPassword = ReasonWrongPassword
	UploadServerError   = "server_error"
)

// RejectedError is a ValidationRejected failure with a sub-kind.
type RejectedError struct {
	Reason string
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation rejected: %s", e.Reason)
	}
	return fmt.Sprintf("validation rejected: %s: %s", e.Reason, e.Detail)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrValidationRejected
}

func Reject(reason, detail string) error {
	return &RejectedError{Reason: reason, Detail: detail}
}

// RejectionReason returns the sub-kind of a ValidationRejected error, or "".
func RejectionReason(err error) string {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

// UploadFailureKind classifies an upload error.
func UploadFailureKind(err error) string {
	switch RejectionReason(err) {
	case ReasonWrongPassword:
		return UploadWrongPassword
	case ReasonInvalidFormat:
		return UploadInvalidFormat
	default:
		return UploadServerError
	}
}

package drive

import (
	"errors"
	"fmt"
)

// Operation names used in errors, logs and metrics.
const (
	OpList         = "list"
	OpCreateFolder = "create folder"
	OpDelete       = "delete"
	OpMove         = "move"
	OpUpload       = "upload"
	OpDownload     = "download"
	OpUsage        = "drive info"
	OpThumbnail    = "thumbnail"
)

// ValidationError is a local rejection raised before any network call.
type ValidationError struct {
	Op      string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid builds a ValidationError.
func Invalid(op, message string) error {
	return &ValidationError{Op: op, Message: message}
}

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed (status %d)", e.Op, e.Status)
}

// NetworkError wraps a transport failure or timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: could not reach the drive: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UserMessage maps an error to the text shown in a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}

	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return rerr.Error()
	}

	var nerr *NetworkError
	if errors.As(err, &nerr) {
		return "Could not reach the drive. Check your connection and try again."
	}

	return err.Error()
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsRemote reports whether err came from a non-2xx backend response.
func IsRemote(err error) bool {
	var rerr *RemoteError
	return errors.As(err, &rerr)
}

// IsNetwork reports whether err is a connectivity failure.
func IsNetwork(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr)
}

package cli

import (
	"errors"
	"fmt"

	apperrors "fretlog/internal/errors"
	"fretlog/internal/validation"
)

// ErrorHandler provides centralized error handling for command handlers
type ErrorHandler struct{}

// NewErrorHandler creates a new error handler
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// Handle provides user-friendly error messages for validation and other errors
func (eh *ErrorHandler) Handle(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", operation, userError{msg: eh.message(err), cause: err})
}

// HandleSimple provides user-friendly error messages without operation context
func (eh *ErrorHandler) HandleSimple(err error) error {
	if err == nil {
		return nil
	}
	return userError{msg: eh.message(err), cause: err}
}

func (eh *ErrorHandler) message(err error) string {
	// AppErrors first: a validation AppError carries the friendly text as
	// its message and the ValidationError as its cause.
	if _, ok := apperrors.AsAppError(err); ok {
		return apperrors.GetUserMessage(err)
	}
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return ve.GetUserFriendlyMessage()
	}
	return err.Error()
}

// userError shows a friendly message while keeping the cause for errors.Is.
type userError struct {
	msg   string
	cause error
}

func (e userError) Error() string { return e.msg }
func (e userError) Unwrap() error { return e.cause }

// IsValidationError checks if an error is a validation error
func (eh *ErrorHandler) IsValidationError(err error) bool {
	if validation.IsValidationError(err) {
		return true
	}
	return apperrors.IsErrorType(err, apperrors.ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a not found error
func (eh *ErrorHandler) IsNotFoundError(err error) bool {
	return apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound)
}

// IsRemoteError reports failures talking to the remote store.
func (eh *ErrorHandler) IsRemoteError(err error) bool {
	return apperrors.IsErrorType(err, apperrors.ErrorTypeRemote) ||
		apperrors.IsErrorType(err, apperrors.ErrorTypeTimeout)
}

// GetErrorCode returns the error code for structured errors
func (eh *ErrorHandler) GetErrorCode(err error) string {
	return apperrors.GetErrorCode(err)
}

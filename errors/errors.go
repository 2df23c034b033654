package errors

import (
	goerrors "errors"
	"fmt"
)

var (
	ErrNotAuthenticated   = fmt.Errorf("connection is not authenticated")
	ErrAlreadyBound       = fmt.Errorf("connection is already bound to an identity")
	ErrSessionClosed      = fmt.Errorf("session is closed")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrInvalidGroupName   = fmt.Errorf("invalid group name")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid token")
	ErrDocumentNotFound   = fmt.Errorf("document not found")
	ErrDocumentTooLarge   = fmt.Errorf("document is too large")
	ErrInvalidMetadata    = fmt.Errorf("metadata must be a JSON object")
	ErrConnectionClosed   = fmt.Errorf("connection is closed")
	ErrDeliveryTimeout    = fmt.Errorf("delivery timed out")
	ErrOperationFailed    = fmt.Errorf("operation failed")
	ErrUnknownMethod      = fmt.Errorf("unknown method")
	ErrUnknownPlugin      = fmt.Errorf("unknown plugin")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

// Wire codes carried by error frames.
const (
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeAlreadyBound     = "ALREADY_BOUND"
	CodeSessionClosed    = "SESSION_CLOSED"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeUnknownMethod    = "UNKNOWN_METHOD"
	CodeOperationFailed  = "OPERATION_FAILED"
)

// Code maps an error to the code sent back to remote clients.
// Anything not recognised is reported as a generic failure so internal
// details never leak through the wire.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, ErrNotAuthenticated):
		return CodeNotAuthenticated
	case goerrors.Is(err, ErrAlreadyBound):
		return CodeAlreadyBound
	case goerrors.Is(err, ErrSessionClosed):
		return CodeSessionClosed
	case goerrors.Is(err, ErrInvalidUsername),
		goerrors.Is(err, ErrInvalidGroupName),
		goerrors.Is(err, ErrInvalidArgument),
		goerrors.Is(err, ErrInvalidMetadata),
		goerrors.Is(err, ErrDocumentTooLarge):
		return CodeInvalidArgument
	case goerrors.Is(err, ErrDocumentNotFound), goerrors.Is(err, ErrUnknownPlugin):
		return CodeNotFound
	case goerrors.Is(err, ErrUserAlreadyExists):
		return CodeAlreadyExists
	case goerrors.Is(err, ErrUnknownMethod):
		return CodeUnknownMethod
	default:
		return CodeOperationFailed
	}
}

// Message returns the text paired with Code. Generic failures get a fixed text.
func Message(err error) string {
	if Code(err) == CodeOperationFailed {
		return ErrOperationFailed.Error()
	}
	return err.Error()
}

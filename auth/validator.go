package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type CredentialsRequest struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateCredentials checks the shape of a login or register request.
// Argon2 keys are derived from at most 72 bytes on purpose, longer inputs
// are rejected rather than truncated.
func ValidateCredentials(req CredentialsRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	if !domain.Username(req.Username).IsValid() {
		return errors.ErrInvalidUsername
	}
	return nil
}

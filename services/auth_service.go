package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
)

// AuthService is the AuthStore backed by the user repository.
// Refused credentials are a false result, never an error, so nothing
// tells a client whether the username exists.
type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository) *AuthService {
	return &AuthService{log: log, userRepository: repo}
}

func (s *AuthService) Register(ctx context.Context, username domain.Username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	// Validated before any expensive cryptographic operation
	if err := auth.ValidateCredentials(auth.CredentialsRequest{Username: username.String(), Password: password}); err != nil {
		s.log.Debug("Registration refused", "user", username, "error", err)
		return false, nil
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hashing failed: %w", err)
	}

	err = s.userRepository.CreateUser(username, hashedPassword)
	switch {
	case goerrors.Is(err, errors.ErrUserAlreadyExists):
		s.log.Debug("Registration refused, username taken", "user", username)
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *AuthService) Authenticate(ctx context.Context, username domain.Username, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	user, err := s.userRepository.GetUserByUsername(username)
	switch {
	case goerrors.Is(err, errors.ErrInvalidCredentials):
		return false, nil
	case err != nil:
		return false, err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil {
		s.log.Warn("Stored password hash is unreadable", "user", username, "error", err)
		return false, nil
	}
	return match, nil
}

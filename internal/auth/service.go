package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/model"
	"github.com/26haroon26/chatapp-server/internal/repo"
)

// AuthService orchestrates signup, login, and password change
type AuthService struct {
	tokens   *TokenService
	userRepo repo.UserRepo
}

// NewAuthService creates a new auth service
func NewAuthService(tokens *TokenService, userRepo repo.UserRepo) *AuthService {
	return &AuthService{
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// Signup creates a user with a bcrypt-hashed password. The email is
// lowercased before storage so duplicates differing only in case collide.
func (s *AuthService) Signup(ctx context.Context, firstName, lastName, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	passwordHash, err := HashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.userRepo.Create(ctx, firstName, lastName, email, passwordHash)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login checks the credentials and returns the user plus a fresh session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", fmt.Errorf("look up user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return model.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user.ID, user.Email)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// ChangePassword verifies the current password before storing the new hash
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, passwordHash)
}

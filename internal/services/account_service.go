package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anonto42/yatube/backend/internal/auth"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/validators"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

const (
	msgUsernameTaken   = "A user with that username already exists."
	msgPasswordTooLong = "Ensure this value has at most 72 bytes."
)

// AccountService registers and authenticates users.
type AccountService struct {
	users    repositories.UserRepository
	validate Validator
}

func NewAccountService(users repositories.UserRepository, validate Validator) *AccountService {
	return &AccountService{users: users, validate: validate}
}

// Signup creates a user with a hashed password.
func (s *AccountService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	fe := validators.FieldErrors{}
	if err := collect(fe, s.validate.Validate(req)); err != nil {
		return nil, err
	}
	if fe.Get("username") == "" && req.Username != "" {
		_, err := s.users.GetUserByUsername(ctx, req.Username)
		switch {
		case err == nil:
			fe.Add("username", msgUsernameTaken)
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}
	if fe.Get("password") == "" && len(req.Password) > auth.MaxPasswordBytes {
		fe.Add("password", msgPasswordTooLong)
	}
	if len(fe) > 0 {
		return nil, fe
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: req.Username, Email: req.Email, Password: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, validators.FieldErrors{"username": {msgUsernameTaken}}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks a username and password.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FederatedLogin returns the user linked to a verified Firebase identity,
// creating one on first sign-in.
func (s *AccountService) FederatedLogin(ctx context.Context, uid, email string) (*models.User, error) {
	user, err := s.users.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		if email != "" && user.Email != email {
			user.Email = email
			if err := s.users.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to update user: %w", err)
			}
		}
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	cleanUID := validators.CleanUsername(uid, validators.MaxUsernameLength)
	if cleanUID == "" {
		cleanUID = "user"
	}
	base := cleanUID
	if local, _, ok := strings.Cut(email, "@"); ok {
		if name := validators.CleanUsername(local, validators.MaxUsernameLength); name != "" {
			base = name
		}
	}
	suffix := "-" + shortUID(cleanUID)
	candidates := []string{
		base,
		validators.CleanUsername(base, validators.MaxUsernameLength-len(suffix)) + suffix,
		cleanUID,
	}
	for _, username := range candidates {
		firebaseUID := uid
		user = &models.User{Username: username, Email: email, FirebaseUID: &firebaseUID}
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			slog.Info("federated user registered", "user_id", user.ID, "username", username)
			return user, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to create user: %w", err)
}

func shortUID(uid string) string {
	if len(uid) > 6 {
		return uid[:6]
	}
	return uid
}

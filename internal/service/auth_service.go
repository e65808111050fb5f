package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slotswapper/slotswapper/internal/auth"
	"github.com/slotswapper/slotswapper/internal/model"
	"github.com/slotswapper/slotswapper/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when login email or password is wrong.
// The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles account creation and credential exchange.
type AuthService struct {
	store  repository.Store
	issuer *auth.TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(store repository.Store, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{store: store, issuer: issuer}
}

// Signup creates an account and returns a bearer token for it.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*model.TokenResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if !isValidEmail(req.Email) {
		return nil, fmt.Errorf("%w: a valid email is required", repository.ErrInvalidOperation)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", repository.ErrInvalidOperation)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", repository.ErrInvalidOperation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return s.mint(user.ID)
}

// Login verifies credentials and returns a bearer token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.TokenResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.mint(user.ID)
}

func (s *AuthService) mint(userID uuid.UUID) (*model.TokenResponse, error) {
	token, err := s.issuer.Mint(userID)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

package service

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"task-manager/internal/auth"
	"task-manager/internal/model"
	"task-manager/internal/repository"
)

const (
	maxNameLength  = 50
	maxEmailLength = 50
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is a signed token plus the account it was issued for.
type LoginResult struct {
	Token string
	User  *model.User
}

// AuthService registers accounts, verifies credentials and validates tokens.
type AuthService struct {
	users  *repository.UserRepository
	hasher auth.PasswordHasher
	tokens auth.TokenService
}

func NewAuthService(users *repository.UserRepository, hasher auth.PasswordHasher, tokens auth.TokenService) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Register creates a regular user. Roles cannot be chosen at registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, newError(ErrValidation, "Name must be between 1 and %d characters.", maxNameLength)
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, newError(ErrValidation, "Password is required.")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, newError(ErrConflict, "Email already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateStoreError(err, "Email already taken")
	}

	log.Printf("[info] user registered id=%d", user.ID)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrUnauthenticated, "Invalid credentials")
		}
		return nil, err
	}

	if err := s.hasher.Compare([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, newError(ErrUnauthenticated, "Invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Authenticate turns a bearer token into the caller's identity.
func (s *AuthService) Authenticate(raw string) (Identity, error) {
	claims, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		return Identity{}, newError(ErrUnauthenticated, "Invalid or expired token.")
	}
	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, newError(ErrUnauthenticated, "Invalid user ID in token.")
	}
	return Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   model.Role(claims.Role),
	}, nil
}

// SeedAdmin creates the bootstrap admin account, or resets its password and role.
func (s *AuthService) SeedAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, newError(ErrValidation, "Password is required.")
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin User"
	}
	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	return s.users.UpsertAdmin(ctx, strings.TrimSpace(name), email, string(hash))
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", newError(ErrValidation, "Email must be between 1 and %d characters.", maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newError(ErrValidation, "Email '%s' is not a valid address.", raw)
	}
	return email, nil
}

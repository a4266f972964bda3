package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"product-ledger/internal/auth"
	"product-ledger/internal/domain"
	"product-ledger/internal/repository"
)

var (
	// ErrInvalidEmail indicates the supplied email does not look like an address.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = errors.New("user already exists")
	// ErrUserNotFound indicates no account matches the supplied username.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrInvalidCredentials indicates the password check failed.
	ErrInvalidCredentials = errors.New("wrong password")
)

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

const bcryptCost = 10

// AuthService handles account registration and login.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// TokenPolicy holds the signing secret and per-operation token lifetimes.
// Registration tokens outlive login tokens, matching the original issuance
// policy this service replaces.
type TokenPolicy struct {
	Secret      []byte
	RegisterTTL time.Duration
	LoginTTL    time.Duration
}

type authService struct {
	users  repository.UserRepository
	tokens TokenPolicy
}

func NewAuthService(users repository.UserRepository, tokens TokenPolicy) AuthService {
	return &authService{
		users:  users,
		tokens: tokens,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return "", errors.New("name is required")
	}
	if password == "" {
		return "", errors.New("password is required")
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Products:     []domain.Product{},
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", ErrEmailTaken
		}
		return "", err
	}

	return auth.GenerateToken(user.ID, s.tokens.Secret, s.tokens.RegisterTTL)
}

func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return auth.GenerateToken(user.ID, s.tokens.Secret, s.tokens.LoginTTL)
}

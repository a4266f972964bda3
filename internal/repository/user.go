package repository

import (
	"context"
	"errors"

	"product-ledger/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when creating a user whose email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrVersionConflict is returned when Save loses a concurrent write race.
	ErrVersionConflict = errors.New("stale user version")
)

// UserRepository defines persistence operations for the User aggregate.
// Every product mutation is a whole-document read-modify-write through Save.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

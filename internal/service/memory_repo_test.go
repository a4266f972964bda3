package service

import (
	"context"
	"sync"
	"time"

	"product-ledger/internal/domain"
	"product-ledger/internal/repository"
)

// memoryUserRepo is an in-memory UserRepository with the same aggregate
// semantics as the real drivers: copy-on-read, compare-and-swap on save.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by email
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) Init(ctx context.Context) error { return nil }

func (r *memoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1
	r.users[user.Email] = cloneUser(user)
	return nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *memoryUserRepo) Save(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, stored := range r.users {
		if stored.ID != user.ID {
			continue
		}
		if stored.Version != user.Version {
			return repository.ErrVersionConflict
		}
		user.UpdatedAt = time.Now().UTC()
		user.Version++
		delete(r.users, email)
		r.users[user.Email] = cloneUser(user)
		return nil
	}
	return repository.ErrNotFound
}

func cloneUser(user *domain.User) *domain.User {
	clone := *user
	clone.Products = append([]domain.Product(nil), user.Products...)
	return &clone
}

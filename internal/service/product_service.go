package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"product-ledger/internal/domain"
	"product-ledger/internal/repository"
)

var (
	// ErrProductNotFound indicates no ledger entry matches the given id.
	ErrProductNotFound = errors.New("product not found")
	// ErrForbidden indicates the caller does not own the requested ledger.
	ErrForbidden = errors.New("not the ledger owner")
)

// ProductInput carries the line-item fields supplied by the caller. Total and
// GST are stored as given; the report recomputes totals on render.
type ProductInput struct {
	Name  string
	Qty   float64
	Rate  float64
	Total float64
	GST   float64
}

// ProductService manages the product ledger embedded in a user aggregate.
// Every mutation is a read-modify-write of the whole aggregate. The callerID
// is the authenticated user id from the bearer token and must own the ledger.
type ProductService interface {
	Add(ctx context.Context, callerID, username string, input ProductInput) ([]domain.Product, error)
	List(ctx context.Context, callerID, username string) ([]domain.Product, error)
	Delete(ctx context.Context, callerID, username, productID string) error
}

type productService struct {
	users repository.UserRepository
}

func NewProductService(users repository.UserRepository) ProductService {
	return &productService{users: users}
}

func (s *productService) Add(ctx context.Context, callerID, username string, input ProductInput) ([]domain.Product, error) {
	user, err := s.resolveOwner(ctx, callerID, username)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user.Products = append(user.Products, domain.Product{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Qty:       input.Qty,
		Rate:      input.Rate,
		Total:     input.Total,
		GST:       input.GST,
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user.Products, nil
}

func (s *productService) List(ctx context.Context, callerID, username string) ([]domain.Product, error) {
	user, err := s.resolveOwner(ctx, callerID, username)
	if err != nil {
		return nil, err
	}
	if user.Products == nil {
		return []domain.Product{}, nil
	}
	return user.Products, nil
}

func (s *productService) Delete(ctx context.Context, callerID, username, productID string) error {
	user, err := s.resolveOwner(ctx, callerID, username)
	if err != nil {
		return err
	}

	// ledger sizes are small per tenant, a linear scan is fine
	idx := -1
	for i := range user.Products {
		if user.Products[i].ID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrProductNotFound
	}

	user.Products = append(user.Products[:idx], user.Products[idx+1:]...)
	return s.users.Save(ctx, user)
}

func (s *productService) resolveOwner(ctx context.Context, callerID, username string) (*domain.User, error) {
	return resolveOwner(ctx, s.users, callerID, username)
}

// resolveOwner looks a user up by username(=email) and checks that the
// authenticated caller owns the ledger.
func resolveOwner(ctx context.Context, users repository.UserRepository, callerID, username string) (*domain.User, error) {
	user, err := users.FindByEmail(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.ID != callerID {
		return nil, ErrForbidden
	}
	return user, nil
}

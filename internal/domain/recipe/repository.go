package recipe

import "context"

// Repository abstracts recipe persistence.
type Repository interface {
	List(ctx context.Context) ([]Recipe, error)
	GetByID(ctx context.Context, id string) (Recipe, bool, error)
	Create(ctx context.Context, r Recipe) (Recipe, error)
	Update(ctx context.Context, r Recipe) (Recipe, error)
	Delete(ctx context.Context, id string) error
}

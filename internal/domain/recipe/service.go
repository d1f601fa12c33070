package recipe

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	apperrors "github.com/jchen-dev/recipebox/pkg/errors"
)

const (
	CodeNotFound  = "not_found"
	CodeForbidden = auth.CodeInsufficientPermissions
)

// Service exposes the recipe CRUD workflows.
type Service interface {
	List(ctx context.Context) ([]Recipe, error)
	Get(ctx context.Context, id string) (Recipe, error)
	Create(ctx context.Context, actor auth.Claims, input Input) (Recipe, error)
	Update(ctx context.Context, actor auth.Claims, id string, input Input) (Recipe, error)
	Delete(ctx context.Context, actor auth.Claims, id string) error
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a Service instance.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger.With("component", "recipe.service")}
}

func (s *service) List(ctx context.Context) ([]Recipe, error) {
	recipes, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap("internal_error", "failed to list recipes", err)
	}
	return recipes, nil
}

func (s *service) Get(ctx context.Context, id string) (Recipe, error) {
	r, found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Recipe{}, apperrors.Wrap("internal_error", "failed to load recipe", err)
	}
	if !found {
		return Recipe{}, apperrors.Wrap(CodeNotFound, "recipe not found", nil)
	}
	return r, nil
}

func (s *service) Create(ctx context.Context, actor auth.Claims, input Input) (Recipe, error) {
	if err := validateInput(input); err != nil {
		return Recipe{}, err
	}
	now := time.Now().UTC()
	r := Recipe{
		ID:          uuid.NewString(),
		OwnerID:     actor.UserID,
		Title:       strings.TrimSpace(input.Title),
		Summary:     strings.TrimSpace(input.Summary),
		Ingredients: input.Ingredients,
		Steps:       input.Steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.Create(ctx, r)
	if err != nil {
		return Recipe{}, apperrors.Wrap("internal_error", "failed to create recipe", err)
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, actor auth.Claims, id string, input Input) (Recipe, error) {
	if err := validateInput(input); err != nil {
		return Recipe{}, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Recipe{}, err
	}
	if !canMutate(actor, existing) {
		return Recipe{}, apperrors.Wrap(CodeForbidden, "not allowed to modify this recipe", nil)
	}
	existing.Title = strings.TrimSpace(input.Title)
	existing.Summary = strings.TrimSpace(input.Summary)
	existing.Ingredients = input.Ingredients
	existing.Steps = input.Steps
	existing.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return Recipe{}, apperrors.Wrap("internal_error", "failed to update recipe", err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Claims, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canMutate(actor, existing) {
		return apperrors.Wrap(CodeForbidden, "not allowed to delete this recipe", nil)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Wrap("internal_error", "failed to delete recipe", err)
	}
	return nil
}

func canMutate(actor auth.Claims, r Recipe) bool {
	return actor.Role == auth.RoleAdmin || actor.UserID == r.OwnerID
}

func validateInput(input Input) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperrors.Wrap("bad_request", "title cannot be empty", nil)
	}
	if len(input.Ingredients) == 0 {
		return apperrors.Wrap("bad_request", "at least one ingredient is required", nil)
	}
	return nil
}

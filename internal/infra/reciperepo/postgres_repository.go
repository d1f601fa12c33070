package reciperepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jchen-dev/recipebox/internal/domain/recipe"
)

// PostgresRepository persists recipes in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns every recipe, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]recipe.Recipe, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, title, summary, ingredients, steps, created_at, updated_at
		FROM recipes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []recipe.Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetByID fetches by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (recipe.Recipe, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, summary, ingredients, steps, created_at, updated_at
		FROM recipes
		WHERE id = $1
	`, id)
	rec, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return recipe.Recipe{}, false, nil
	}
	if err != nil {
		return recipe.Recipe{}, false, err
	}
	return rec, true, nil
}

// Create inserts a new recipe row.
func (r *PostgresRepository) Create(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recipes (id, owner_id, title, summary, ingredients, steps, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.OwnerID, rec.Title, rec.Summary, rec.Ingredients, rec.Steps, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return recipe.Recipe{}, err
	}
	return rec, nil
}

// Update replaces the mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE recipes
		SET title = $2, summary = $3, ingredients = $4, steps = $5, updated_at = $6
		WHERE id = $1
	`, rec.ID, rec.Title, rec.Summary, rec.Ingredients, rec.Steps, rec.UpdatedAt)
	if err != nil {
		return recipe.Recipe{}, err
	}
	return rec, nil
}

// Delete removes the row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (recipe.Recipe, error) {
	var rec recipe.Recipe
	var created, updated time.Time
	if err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Title, &rec.Summary, &rec.Ingredients, &rec.Steps, &created, &updated); err != nil {
		return recipe.Recipe{}, err
	}
	rec.CreatedAt = created.UTC()
	rec.UpdatedAt = updated.UTC()
	return rec, nil
}

var _ recipe.Repository = (*PostgresRepository)(nil)

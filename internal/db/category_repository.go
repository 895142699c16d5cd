package db

import (
	"context"
	"fmt"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// defines methods for category db operations
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.CategoryWithCount, error)
}

type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create inserts the category. A second category with the same owner and
// exact name fails with ErrDuplicate.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return insertCategory(ctx, r.db, category)
}

// GetByID looks the category up regardless of owner; callers compare
// OwnerID themselves.
func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	query := `SELECT id, owner_id, name, color, created_at FROM categories WHERE id = $1`
	category := &models.Category{}
	if err := r.db.GetContext(ctx, category, query, id); err != nil {
		return nil, notFound(err)
	}
	return category, nil
}

type categoryCountRow struct {
	models.Category
	TaskCount int `db:"task_count"`
}

func (r *CategoryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.CategoryWithCount, error) {
	query := `SELECT c.id, c.owner_id, c.name, c.color, c.created_at, COUNT(t.id) AS task_count
	 FROM categories c
	 LEFT JOIN tasks t ON t.category_id = c.id
	 WHERE c.owner_id = $1
	 GROUP BY c.id, c.owner_id, c.name, c.color, c.created_at
	 ORDER BY c.name ASC, c.id ASC`

	var rows []categoryCountRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]*models.CategoryWithCount, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, &models.CategoryWithCount{
			Category: row.Category,
			Count:    models.CategoryCount{Tasks: row.TaskCount},
		})
	}
	return categories, nil
}

func insertCategory(ctx context.Context, q sqlx.ExecerContext, category *models.Category) error {
	query := `INSERT INTO categories (id, owner_id, name, color, created_at)
	 VALUES ($1, $2, $3, $4, $5)`

	_, err := q.ExecContext(
		ctx, query, category.ID, category.OwnerID, category.Name, category.Color, category.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", category.Name, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

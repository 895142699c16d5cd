package db

import (
	"context"
	"fmt"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// defines methods for user db operations
type UserRepositoryInterface interface {
	CreateWithSeed(ctx context.Context, user *models.User, categories []*models.Category, tasks []*models.Task) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithSeed inserts the user together with its starter categories and
// tasks. Either everything is stored or nothing is.
func (r *UserRepository) CreateWithSeed(
	ctx context.Context, user *models.User, categories []*models.Category, tasks []*models.Task,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	for _, category := range categories {
		if err := insertCategory(ctx, tx, category); err != nil {
			return err
		}
	}
	for _, task := range tasks {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, name, created_at, updated_at FROM users WHERE email = $1`
	user := &models.User{}
	if err := r.db.GetContext(ctx, user, query, email); err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, email, password_hash, name, created_at, updated_at FROM users WHERE id = $1`
	user := &models.User{}
	if err := r.db.GetContext(ctx, user, query, id); err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func insertUser(ctx context.Context, q sqlx.ExecerContext, user *models.User) error {
	query := `INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := q.ExecContext(
		ctx, query, user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

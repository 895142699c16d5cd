package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// defines methods for task db operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter, sort models.TaskSort) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskRow is a task joined with its (possibly missing) category.
type taskRow struct {
	ID                uuid.UUID      `db:"id"`
	OwnerID           uuid.UUID      `db:"owner_id"`
	CategoryID        uuid.NullUUID  `db:"category_id"`
	Title             string         `db:"title"`
	Description       sql.NullString `db:"description"`
	Completed         bool           `db:"completed"`
	Priority          string         `db:"priority"`
	DueDate           sql.NullTime   `db:"due_date"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	CategoryName      sql.NullString `db:"category_name"`
	CategoryColor     sql.NullString `db:"category_color"`
	CategoryOwnerID   uuid.NullUUID  `db:"category_owner_id"`
	CategoryCreatedAt sql.NullTime   `db:"category_created_at"`
}

func (row *taskRow) toModel() *models.Task {
	task := &models.Task{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Description: row.Description.String,
		Completed:   row.Completed,
		Priority:    models.Priority(row.Priority),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.DueDate.Valid {
		due := row.DueDate.Time
		task.DueDate = &due
	}
	if row.CategoryID.Valid {
		id := row.CategoryID.UUID
		task.CategoryID = &id
		task.Category = &models.Category{
			ID:        id,
			OwnerID:   row.CategoryOwnerID.UUID,
			Name:      row.CategoryName.String,
			Color:     row.CategoryColor.String,
			CreatedAt: row.CategoryCreatedAt.Time,
		}
	}
	return task
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return insertTask(ctx, r.db, task)
}

// GetByID returns the task only when ownerID owns it; a foreign task is
// reported exactly like a missing one.
func (r *TaskRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + taskFrom + ` WHERE t.id = $1 AND t.owner_id = $2`
	var row taskRow
	if err := r.db.GetContext(ctx, &row, query, id, ownerID); err != nil {
		return nil, notFound(err)
	}
	return row.toModel(), nil
}

func (r *TaskRepository) List(
	ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter, sort models.TaskSort,
) ([]*models.Task, error) {
	query, args, err := buildListTasksQuery(ownerID, filter, sort)
	if err != nil {
		return nil, err
	}
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]*models.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toModel())
	}
	return tasks, nil
}

// Update writes every mutable column. The owner is part of the WHERE clause
// so a task can never be rewritten on behalf of someone else.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET category_id = $1, title = $2, description = $3, completed = $4,
	 priority = $5, due_date = $6, updated_at = $7
	 WHERE id = $8 AND owner_id = $9`

	res, err := r.db.ExecContext(ctx, query,
		nullableUUID(task.CategoryID), task.Title, nullableString(task.Description), task.Completed,
		string(task.Priority), nullableTime(task.DueDate), task.UpdatedAt, task.ID, task.OwnerID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectOneRow(res)
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOneRow(res)
}

func insertTask(ctx context.Context, q sqlx.ExecerContext, task *models.Task) error {
	query := `INSERT INTO tasks (id, owner_id, category_id, title, description, completed,
	 priority, due_date, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := q.ExecContext(ctx, query,
		task.ID, task.OwnerID, nullableUUID(task.CategoryID), task.Title, nullableString(task.Description),
		task.Completed, string(task.Priority), nullableTime(task.DueDate), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	db         *sqlx.DB
	tasks      *TaskService
	categories *CategoryService
	users      *UserService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	dbx, err := db.Open(context.Background(), "sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbx.Close() })

	categoryRepo := db.NewCategoryRepository(dbx)
	users := NewUserService(db.NewUserRepository(dbx), nil)
	users.bcryptCost = bcrypt.MinCost

	return &testEnv{
		db:         dbx,
		tasks:      NewTaskService(db.NewTaskRepository(dbx), categoryRepo, nil, nil),
		categories: NewCategoryService(categoryRepo, nil),
		users:      users,
	}
}

func (e *testEnv) register(t *testing.T, email string) uuid.UUID {
	t.Helper()
	user, err := e.users.Register(context.Background(), email, "secret1", "")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user.ID
}

func (e *testEnv) category(t *testing.T, owner uuid.UUID, name string) *models.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), owner, name, "")
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func (e *testEnv) task(t *testing.T, owner uuid.UUID, in CreateTaskInput) *models.Task {
	t.Helper()
	task, err := e.tasks.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create task %q: %v", in.Title, err)
	}
	return task
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	if err := e.db.Get(&n, query, args...); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// validationFields fails the test unless err is a *ValidationError.
func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Fields
}

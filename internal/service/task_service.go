package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chepyr/go-task-manager/internal/cache"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const maxTitleLength = 200

// TaskService is the query and mutation engine for tasks. Every call takes
// the caller's identity explicitly and only ever touches that user's rows.
type TaskService struct {
	tasks      db.TaskRepositoryInterface
	categories db.CategoryRepositoryInterface
	cache      *cache.TaskCache
	sf         singleflight.Group
	log        *slog.Logger
	now        func() time.Time
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(
	tasks db.TaskRepositoryInterface, categories db.CategoryRepositoryInterface, c *cache.TaskCache, log *slog.Logger,
) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	return &TaskService{
		tasks:      tasks,
		categories: categories,
		cache:      c,
		log:        log,
		now:        time.Now,
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     string
	CategoryID  string
}

// UpdateTaskInput carries a partial update; nil or absent fields are left
// untouched. DueDate and CategoryID distinguish absent from explicit null.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *string
	DueDate     models.NullableString
	CategoryID  models.NullableString
}

func (in UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Completed == nil &&
		in.Priority == nil && !in.DueDate.Present && !in.CategoryID.Present
}

// List returns the identity's tasks matching filter, ordered by sort.
func (s *TaskService) List(
	ctx context.Context, identity uuid.UUID, filter models.TaskFilter, sort models.TaskSort,
) ([]*models.Task, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if err := validateQuery(filter, sort); err != nil {
		return nil, err
	}
	if s.cache == nil {
		return s.tasks.List(ctx, identity, filter, sort)
	}

	key, err := s.cache.ListKey(ctx, identity, filter, sort)
	if err != nil {
		s.log.Warn("task cache unavailable", "err", err)
		return s.tasks.List(ctx, identity, filter, sort)
	}
	v, err, _ := s.sf.Do(key, func() (any, error) {
		if list, err := s.cache.GetList(ctx, key); err == nil && list != nil {
			return list, nil
		} else if err != nil {
			s.log.Warn("task cache read failed", "err", err)
		}
		list, err := s.tasks.List(ctx, identity, filter, sort)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, key, list); err != nil {
			s.log.Warn("task cache write failed", "err", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.Task), nil
}

func validateQuery(filter models.TaskFilter, sort models.TaskSort) error {
	verr := &ValidationError{Message: "Invalid query parameters"}
	if filter.CategoryID != nil && filter.WithoutCategory {
		verr.add("category", "cannot filter by a category and by no category at once")
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		verr.add("priority", "must be one of LOW, MEDIUM, HIGH")
	}
	switch sort.Field {
	case models.SortByCreatedAt, models.SortByDueDate, models.SortByTitle, models.SortByPriority:
	default:
		verr.add("sortField", "must be one of createdAt, dueDate, title, priority")
	}
	if sort.Direction != models.SortAsc && sort.Direction != models.SortDesc {
		verr.add("sortDirection", "must be asc or desc")
	}
	return verr.err()
}

func (s *TaskService) Get(ctx context.Context, identity, id uuid.UUID) (*models.Task, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	task, err := s.tasks.GetByID(ctx, identity, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, identity uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	verr := &ValidationError{Message: "Invalid input data"}
	title, msg := normalizeTitle(in.Title)
	if msg != "" {
		verr.add("title", msg)
	}
	priority := models.PriorityMedium
	if strings.TrimSpace(in.Priority) != "" {
		p, err := models.ParsePriority(in.Priority)
		if err != nil {
			verr.add("priority", "must be one of LOW, MEDIUM, HIGH")
		}
		priority = p
	}
	var due *time.Time
	if strings.TrimSpace(in.DueDate) != "" {
		d, err := ParseDueDate(in.DueDate)
		if err != nil {
			verr.add("dueDate", err.Error())
		}
		due = d
	}
	var categoryID *uuid.UUID
	if raw := strings.TrimSpace(in.CategoryID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr.add("categoryId", "must be a valid uuid")
		}
		categoryID = &id
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	var category *models.Category
	if categoryID != nil {
		c, err := s.ownedCategory(ctx, identity, *categoryID)
		if err != nil {
			return nil, err
		}
		category = c
	}

	now := timestamp(s.now)
	task := &models.Task{
		ID:          uuid.New(),
		OwnerID:     identity,
		CategoryID:  categoryID,
		Category:    category,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.invalidateCache(ctx, identity)
	s.log.Debug("task created", "task_id", task.ID, "user_id", identity)
	return task, nil
}

// Update applies the fields present in in. Ownership is resolved before any
// input is looked at, so a foreign or missing id is always ErrNotFound.
func (s *TaskService) Update(ctx context.Context, identity, id uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	task, err := s.tasks.GetByID(ctx, identity, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if in.empty() {
		return nil, &ValidationError{Message: "No fields to update"}
	}

	verr := &ValidationError{Message: "Invalid input data"}
	if in.Title != nil {
		title, msg := normalizeTitle(*in.Title)
		if msg != "" {
			verr.add("title", msg)
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}
	if in.Priority != nil {
		p, err := models.ParsePriority(*in.Priority)
		if err != nil {
			verr.add("priority", "must be one of LOW, MEDIUM, HIGH")
		}
		task.Priority = p
	}
	if in.DueDate.Present {
		if in.DueDate.Value == nil || strings.TrimSpace(*in.DueDate.Value) == "" {
			task.DueDate = nil
		} else {
			d, err := ParseDueDate(*in.DueDate.Value)
			if err != nil {
				verr.add("dueDate", err.Error())
			}
			task.DueDate = d
		}
	}
	var newCategory *uuid.UUID
	if in.CategoryID.Present {
		if in.CategoryID.Value == nil || strings.TrimSpace(*in.CategoryID.Value) == "" {
			task.CategoryID = nil
			task.Category = nil
		} else {
			cid, err := uuid.Parse(strings.TrimSpace(*in.CategoryID.Value))
			if err != nil {
				verr.add("categoryId", "must be a valid uuid")
			}
			newCategory = &cid
		}
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	if newCategory != nil {
		c, err := s.ownedCategory(ctx, identity, *newCategory)
		if err != nil {
			return nil, err
		}
		task.CategoryID = newCategory
		task.Category = c
	}

	// updated_at must move forward even when the clock has not
	now := timestamp(s.now)
	if !now.After(task.UpdatedAt) {
		now = task.UpdatedAt.Add(time.Microsecond)
	}
	task.UpdatedAt = now

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, mapStoreErr(err)
	}
	s.invalidateCache(ctx, identity)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, identity, id uuid.UUID) error {
	if identity == uuid.Nil {
		return ErrUnauthenticated
	}
	if err := s.tasks.Delete(ctx, identity, id); err != nil {
		return mapStoreErr(err)
	}
	s.invalidateCache(ctx, identity)
	s.log.Debug("task deleted", "task_id", id, "user_id", identity)
	return nil
}

// ownedCategory loads a category for assignment. A missing category is a
// validation failure on categoryId; someone else's is ErrForeignOwnership.
func (s *TaskService) ownedCategory(ctx context.Context, identity, id uuid.UUID) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, invalidField("categoryId", "category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	if c.OwnerID != identity {
		return nil, ErrForeignOwnership
	}
	return c, nil
}

func (s *TaskService) invalidateCache(ctx context.Context, identity uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, identity); err != nil {
		s.log.Warn("task cache invalidation failed", "user_id", identity, "err", err)
	}
}

func normalizeTitle(raw string) (string, string) {
	title := strings.TrimSpace(raw)
	switch {
	case title == "":
		return "", "title is required"
	case utf8.RuneCountInString(title) > maxTitleLength:
		return "", fmt.Sprintf("title too long (max %d chars)", maxTitleLength)
	}
	return title, ""
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC 3339 (with or without fractional seconds), a
// zone-less local datetime read as UTC, or a bare date at midnight UTC.
func ParseDueDate(raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC().Truncate(time.Microsecond)
			return &t, nil
		}
	}
	return nil, errors.New("use a date (YYYY-MM-DD) or an RFC 3339 datetime")
}

// timestamp is the current UTC time at the microsecond precision the
// stores keep.
func timestamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}

func mapStoreErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

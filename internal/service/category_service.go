package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

const maxCategoryNameLength = 50

var colorPattern = regexp.MustCompile(`(?i)^#[0-9A-F]{6}$`)

type CategoryService struct {
	categories db.CategoryRepositoryInterface
	log        *slog.Logger
	now        func() time.Time
}

func NewCategoryService(categories db.CategoryRepositoryInterface, log *slog.Logger) *CategoryService {
	if log == nil {
		log = slog.Default()
	}
	return &CategoryService{categories: categories, log: log, now: time.Now}
}

// Create adds a category for identity. Names are unique per owner with an
// exact, case-sensitive comparison; the store's unique constraint decides.
func (s *CategoryService) Create(ctx context.Context, identity uuid.UUID, name, color string) (*models.Category, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	verr := &ValidationError{Message: "Invalid input data"}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		verr.add("name", "name is required")
	case utf8.RuneCountInString(name) > maxCategoryNameLength:
		verr.add("name", fmt.Sprintf("name too long (max %d chars)", maxCategoryNameLength))
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = models.DefaultCategoryColor
	} else if !colorPattern.MatchString(color) {
		verr.add("color", "must be a hex color like #3B82F6")
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	category := &models.Category{
		ID:        uuid.New(),
		OwnerID:   identity,
		Name:      name,
		Color:     color,
		CreatedAt: timestamp(s.now),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.log.Debug("category created", "category_id", category.ID, "user_id", identity)
	return category, nil
}

// List returns identity's categories ordered by name, with task counts.
func (s *CategoryService) List(ctx context.Context, identity uuid.UUID) ([]*models.CategoryWithCount, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.categories.ListByOwner(ctx, identity)
}

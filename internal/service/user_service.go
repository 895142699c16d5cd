package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt ignores nothing past this; GenerateFromPassword rejects it
	maxPasswordBytes = 72

	DemoEmail    = "demo@taskmanagement.com"
	DemoPassword = "demo123"
	DemoName     = "Demo User"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type seedCategory struct {
	name  string
	color string
}

// every new account starts with these
var defaultCategories = []seedCategory{
	{"Work", "#3B82F6"},
	{"Personal", "#10B981"},
}

var demoCategories = []seedCategory{
	{"Work", "#3B82F6"},
	{"Personal", "#10B981"},
	{"Shopping", "#F59E0B"},
	{"Health", "#EF4444"},
}

type demoTask struct {
	title       string
	description string
	priority    models.Priority
	completed   bool
	dueInDays   int // 0 = no due date
	category    string
}

var demoTasks = []demoTask{
	{"Complete project presentation", "Prepare slides and practice presentation for the quarterly review", models.PriorityHigh, false, 7, "Work"},
	{"Review team reports", "Go through all team member reports and provide feedback", models.PriorityMedium, true, 0, "Work"},
	{"Call dentist for appointment", "Schedule routine dental checkup", models.PriorityLow, false, 3, "Personal"},
	{"Buy groceries", "Milk, bread, eggs, fruits, vegetables", models.PriorityMedium, false, 1, "Shopping"},
	{"Plan weekend trip", "Research destinations and book accommodation", models.PriorityLow, false, 0, "Personal"},
	{"Update resume", "Add recent achievements and projects", models.PriorityMedium, true, 0, "Work"},
}

// UserService handles accounts: registration, login checks and the demo
// account.
type UserService struct {
	users      db.UserRepositoryInterface
	log        *slog.Logger
	now        func() time.Time
	bcryptCost int

	// compared against when the email is unknown, so both paths pay for bcrypt
	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService returns a new UserService.
func NewUserService(users db.UserRepositoryInterface, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, log: log, now: time.Now, bcryptCost: bcrypt.DefaultCost}
}

// Register creates a user together with the default categories in one
// transaction. An existing email is ErrConflict.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	verr := &ValidationError{Message: "Invalid input data"}
	if !emailPattern.MatchString(email) {
		verr.add("email", "invalid email")
	}
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		verr.add("password", fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
	case len(password) > maxPasswordBytes:
		verr.add("password", fmt.Sprintf("password must be at most %d bytes long", maxPasswordBytes))
	}
	if err := verr.err(); err != nil {
		return nil, err
	}

	user, err := s.newUser(email, password, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	categories, _ := seedCategories(user, defaultCategories)
	if err := s.users.CreateWithSeed(ctx, user, categories, nil); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("register user: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks email and password; any mismatch is
// ErrInvalidCredentials so callers cannot tell which accounts exist.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			bcrypt.CompareHashAndPassword(s.missingUserHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) missingUserHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-user-password"), s.bcryptCost)
	})
	return s.dummyHash
}

// Get returns the account behind an authenticated id. A deleted account is
// ErrUnauthenticated.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// BootstrapDemo makes sure the demo account exists with its sample data.
// It reports whether this call created it; repeated or racing calls are a
// successful no-op.
func (s *UserService) BootstrapDemo(ctx context.Context) (bool, error) {
	_, err := s.users.GetByEmail(ctx, DemoEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return false, fmt.Errorf("look up demo user: %w", err)
	}

	user, err := s.newUser(DemoEmail, DemoPassword, DemoName)
	if err != nil {
		return false, err
	}
	categories, byName := seedCategories(user, demoCategories)
	tasks := make([]*models.Task, 0, len(demoTasks))
	for _, d := range demoTasks {
		task := &models.Task{
			ID:          uuid.New(),
			OwnerID:     user.ID,
			Title:       d.title,
			Description: d.description,
			Completed:   d.completed,
			Priority:    d.priority,
			CreatedAt:   user.CreatedAt,
			UpdatedAt:   user.CreatedAt,
		}
		if c, ok := byName[d.category]; ok {
			task.CategoryID = &c.ID
		}
		if d.dueInDays > 0 {
			due := user.CreatedAt.AddDate(0, 0, d.dueInDays)
			task.DueDate = &due
		}
		tasks = append(tasks, task)
	}

	if err := s.users.CreateWithSeed(ctx, user, categories, tasks); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("create demo user: %w", err)
	}
	s.log.Info("demo user created", "user_id", user.ID)
	return true, nil
}

func (s *UserService) newUser(email, password, name string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := timestamp(s.now)
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func seedCategories(user *models.User, seeds []seedCategory) ([]*models.Category, map[string]*models.Category) {
	list := make([]*models.Category, 0, len(seeds))
	byName := make(map[string]*models.Category, len(seeds))
	for _, sc := range seeds {
		c := &models.Category{
			ID:        uuid.New(),
			OwnerID:   user.ID,
			Name:      sc.name,
			Color:     sc.color,
			CreatedAt: user.CreatedAt,
		}
		list = append(list, c)
		byName[c.Name] = c
	}
	return list, byName
}

package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

const (
	ExportFilename = "tasks.csv"
	exportDate     = "2006-01-02"
)

var exportHeader = []string{"Title", "Description", "Priority", "Status", "Category", "Due Date", "Created At"}

// Export renders every task of identity as CSV, newest first.
func (s *TaskService) Export(ctx context.Context, identity uuid.UUID) ([]byte, error) {
	if identity == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	tasks, err := s.tasks.List(ctx, identity, models.TaskFilter{}, models.DefaultTaskSort())
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	if err := WriteCSV(&sb, tasks); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// WriteCSV writes the header and one line per task. Title, Description and
// Category are always quoted, the rest never; lines are joined by "\n"
// without a trailing newline.
func WriteCSV(w io.Writer, tasks []*models.Task) error {
	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, strings.Join(exportHeader, ","))
	for _, t := range tasks {
		status := "Pending"
		if t.Completed {
			status = "Completed"
		}
		category := "No Category"
		if t.Category != nil {
			category = t.Category.Name
		}
		lines = append(lines, strings.Join([]string{
			quote(t.Title),
			quote(t.Description),
			string(t.Priority),
			status,
			quote(category),
			formatDate(t.DueDate),
			t.CreatedAt.UTC().Format(exportDate),
		}, ","))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportDate)
}

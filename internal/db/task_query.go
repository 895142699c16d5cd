package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

const taskColumns = `t.id, t.owner_id, t.category_id, t.title, t.description, t.completed,
 t.priority, t.due_date, t.created_at, t.updated_at,
 c.name AS category_name, c.color AS category_color, c.owner_id AS category_owner_id,
 c.created_at AS category_created_at`

const taskFrom = ` FROM tasks t LEFT JOIN categories c ON c.id = t.category_id`

// clause is one predicate of a WHERE list. Placeholders are written as "?"
// and numbered when the list is compiled.
type clause struct {
	expr string
	args []any
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func ownerClause(ownerID uuid.UUID) clause {
	return clause{expr: "t.owner_id = ?", args: []any{ownerID}}
}

// filterClauses translates the optional filter fields, in a fixed order.
func filterClauses(f models.TaskFilter) []clause {
	var clauses []clause
	if f.CategoryID != nil {
		clauses = append(clauses, clause{expr: "t.category_id = ?", args: []any{*f.CategoryID}})
	}
	if f.WithoutCategory {
		clauses = append(clauses, clause{expr: "t.category_id IS NULL"})
	}
	if f.Priority != nil {
		clauses = append(clauses, clause{expr: "t.priority = ?", args: []any{string(*f.Priority)}})
	}
	if f.Completed != nil {
		clauses = append(clauses, clause{expr: "t.completed = ?", args: []any{*f.Completed}})
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		clauses = append(clauses, clause{
			expr: `(LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(t.description, '')) LIKE ? ESCAPE '\')`,
			args: []any{pattern, pattern},
		})
	}
	return clauses
}

// compileWhere joins the clauses with AND and numbers placeholders $1..$n.
func compileWhere(clauses []clause) (string, []any) {
	if len(clauses) == 0 {
		return "", nil
	}
	var (
		sb   strings.Builder
		args []any
		n    = 1
	)
	sb.WriteString(" WHERE ")
	for i, c := range clauses {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		for _, r := range c.expr {
			if r == '?' {
				sb.WriteString("$" + strconv.Itoa(n))
				n++
				continue
			}
			sb.WriteRune(r)
		}
		args = append(args, c.args...)
	}
	return sb.String(), args
}

func priorityRank() string {
	var sb strings.Builder
	sb.WriteString("CASE t.priority")
	for _, p := range models.Priorities() {
		fmt.Fprintf(&sb, " WHEN '%s' THEN %d", p, p.Ordinal())
	}
	sb.WriteString(" END")
	return sb.String()
}

// orderBy returns the ORDER BY clause for s. Tasks without a due date go
// last in both directions, and created_at/id tie-breakers make the order
// total.
func orderBy(s models.TaskSort) (string, error) {
	var dir string
	switch s.Direction {
	case models.SortAsc:
		dir = "ASC"
	case models.SortDesc:
		dir = "DESC"
	default:
		return "", fmt.Errorf("unknown sort direction %q", s.Direction)
	}

	var keys []string
	switch s.Field {
	case models.SortByCreatedAt:
		keys = []string{"t.created_at " + dir, "t.id ASC"}
	case models.SortByDueDate:
		keys = []string{"CASE WHEN t.due_date IS NULL THEN 1 ELSE 0 END ASC", "t.due_date " + dir}
	case models.SortByTitle:
		keys = []string{"LOWER(t.title) " + dir, "t.title " + dir}
	case models.SortByPriority:
		keys = []string{priorityRank() + " " + dir}
	default:
		return "", fmt.Errorf("unknown sort field %q", s.Field)
	}
	if s.Field != models.SortByCreatedAt {
		keys = append(keys, "t.created_at DESC", "t.id ASC")
	}
	return " ORDER BY " + strings.Join(keys, ", "), nil
}

// buildListTasksQuery is the whole filter/sort translation: the owner
// predicate always comes first and cannot be replaced by filter input.
func buildListTasksQuery(ownerID uuid.UUID, f models.TaskFilter, s models.TaskSort) (string, []any, error) {
	order, err := orderBy(s)
	if err != nil {
		return "", nil, err
	}
	clauses := append([]clause{ownerClause(ownerID)}, filterClauses(f)...)
	where, args := compileWhere(clauses)
	return "SELECT " + taskColumns + taskFrom + where + order, args, nil
}

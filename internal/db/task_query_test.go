package db

import (
	"strings"
	"testing"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
)

func TestBuildListTasksQuery_OwnerFirst(t *testing.T) {
	owner := uuid.New()
	cat := uuid.New()
	high := models.PriorityHigh
	done := true

	query, args, err := buildListTasksQuery(owner, models.TaskFilter{
		CategoryID: &cat,
		Priority:   &high,
		Completed:  &done,
		Search:     "  Report ",
	}, models.DefaultTaskSort())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantWhere := ` WHERE t.owner_id = $1 AND t.category_id = $2 AND t.priority = $3 AND t.completed = $4` +
		` AND (LOWER(t.title) LIKE $5 ESCAPE '\' OR LOWER(COALESCE(t.description, '')) LIKE $6 ESCAPE '\')`
	if !strings.Contains(query, wantWhere) {
		t.Errorf("where clause mismatch\n got: %s\nwant: %s", query, wantWhere)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d: %v", len(args), args)
	}
	if args[0] != owner {
		t.Errorf("first arg must be the owner, got %v", args[0])
	}
	if args[1] != cat || args[2] != "HIGH" || args[3] != true {
		t.Errorf("unexpected filter args: %v", args[1:4])
	}
	if args[4] != "%report%" || args[5] != "%report%" {
		t.Errorf("unexpected search pattern: %v %v", args[4], args[5])
	}
}

func TestBuildListTasksQuery_EmptyFilter(t *testing.T) {
	owner := uuid.New()
	query, args, err := buildListTasksQuery(owner, models.TaskFilter{Search: "   "}, models.DefaultTaskSort())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(query, " WHERE t.owner_id = $1 ORDER BY ") {
		t.Errorf("expected only the owner predicate, got %s", query)
	}
	if len(args) != 1 || args[0] != owner {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestFilterClauses_EscapesLikeMetacharacters(t *testing.T) {
	clauses := filterClauses(models.TaskFilter{Search: `50%_off\`})
	if len(clauses) != 1 {
		t.Fatalf("expected one clause, got %d", len(clauses))
	}
	want := `%50\%\_off\\%`
	if got := clauses[0].args[0]; got != want {
		t.Errorf("pattern = %q, want %q", got, want)
	}
}

func TestFilterClauses_WithoutCategoryHasNoArgs(t *testing.T) {
	clauses := filterClauses(models.TaskFilter{WithoutCategory: true})
	if len(clauses) != 1 || clauses[0].expr != "t.category_id IS NULL" || len(clauses[0].args) != 0 {
		t.Errorf("unexpected clauses: %+v", clauses)
	}
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name    string
		sort    models.TaskSort
		want    string
		wantErr bool
	}{
		{
			name: "created at desc",
			sort: models.TaskSort{Field: models.SortByCreatedAt, Direction: models.SortDesc},
			want: " ORDER BY t.created_at DESC, t.id ASC",
		},
		{
			name: "due date asc keeps nulls last",
			sort: models.TaskSort{Field: models.SortByDueDate, Direction: models.SortAsc},
			want: " ORDER BY CASE WHEN t.due_date IS NULL THEN 1 ELSE 0 END ASC, t.due_date ASC, t.created_at DESC, t.id ASC",
		},
		{
			name: "due date desc keeps nulls last",
			sort: models.TaskSort{Field: models.SortByDueDate, Direction: models.SortDesc},
			want: " ORDER BY CASE WHEN t.due_date IS NULL THEN 1 ELSE 0 END ASC, t.due_date DESC, t.created_at DESC, t.id ASC",
		},
		{
			name: "priority uses ordinal rank",
			sort: models.TaskSort{Field: models.SortByPriority, Direction: models.SortAsc},
			want: " ORDER BY CASE t.priority WHEN 'LOW' THEN 0 WHEN 'MEDIUM' THEN 1 WHEN 'HIGH' THEN 2 END ASC, t.created_at DESC, t.id ASC",
		},
		{
			name: "title",
			sort: models.TaskSort{Field: models.SortByTitle, Direction: models.SortDesc},
			want: " ORDER BY LOWER(t.title) DESC, t.title DESC, t.created_at DESC, t.id ASC",
		},
		{
			name:    "unknown field",
			sort:    models.TaskSort{Field: "owner_id; DROP TABLE tasks", Direction: models.SortAsc},
			wantErr: true,
		},
		{
			name:    "unknown direction",
			sort:    models.TaskSort{Field: models.SortByTitle, Direction: "sideways"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderBy(tt.sort)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

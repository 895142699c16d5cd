package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TaskFilter holds the optional list predicates. Every set field narrows
// the result; unset fields do not filter.
type TaskFilter struct {
	CategoryID      *uuid.UUID
	WithoutCategory bool
	Priority        *Priority
	Completed       *bool
	Search          string
}

type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDueDate   SortField = "dueDate"
	SortByTitle     SortField = "title"
	SortByPriority  SortField = "priority"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type TaskSort struct {
	Field     SortField
	Direction SortDirection
}

func DefaultTaskSort() TaskSort {
	return TaskSort{Field: SortByCreatedAt, Direction: SortDesc}
}

// ParseTaskSort builds a sort from raw field and direction values. Empty
// values fall back to the default createdAt/desc.
func ParseTaskSort(field, direction string) (TaskSort, error) {
	s := DefaultTaskSort()
	if f := strings.TrimSpace(field); f != "" {
		switch SortField(f) {
		case SortByCreatedAt, SortByDueDate, SortByTitle, SortByPriority:
			s.Field = SortField(f)
		default:
			return TaskSort{}, fmt.Errorf("unknown sort field %q", field)
		}
	}
	if d := strings.ToLower(strings.TrimSpace(direction)); d != "" {
		switch SortDirection(d) {
		case SortAsc, SortDesc:
			s.Direction = SortDirection(d)
		default:
			return TaskSort{}, fmt.Errorf("unknown sort direction %q", direction)
		}
	}
	return s, nil
}

// NullableString is a JSON field that tells an omitted value apart from an
// explicit null. Present is false when the key was absent from the object.
type NullableString struct {
	Present bool
	Value   *string
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Present = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func SetString(s string) NullableString {
	return NullableString{Present: true, Value: &s}
}

func NullString() NullableString {
	return NullableString{Present: true}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultCategoryColor = "#3B82F6"

type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OwnerID   uuid.UUID `json:"userId" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CategoryWithCount is a category as listed to its owner, with the number
// of tasks currently referencing it.
type CategoryWithCount struct {
	Category
	Count CategoryCount `json:"_count"`
}

type CategoryCount struct {
	Tasks int `json:"tasks"`
}

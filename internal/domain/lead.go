package domain

import (
	"strings"
	"time"
)

// Lead is a prospect the platform reaches out to.
type Lead struct {
	ID           string            `json:"id" db:"id"`
	FirstName    string            `json:"first_name" db:"first_name"`
	LastName     string            `json:"last_name" db:"last_name"`
	Email        string            `json:"email" db:"email"`
	Phone        string            `json:"phone" db:"phone"`
	Company      string            `json:"company" db:"company"`
	Source       string            `json:"source" db:"source"`
	Status       string            `json:"status" db:"status"`
	CustomFields map[string]string `json:"custom_fields,omitempty" db:"custom_fields"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// FullName joins first and last name, skipping empty parts.
func (l Lead) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Component is an application registered within a domain. Its API key hash
// authenticates criteria requests; the plaintext key is shown once at
// generation time and never stored.
type Component struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DomainID    uuid.UUID `db:"domain_id" json:"domain_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	APIKeyHash  string    `db:"api_key_hash" json:"-"`
	Owner       uuid.UUID `db:"owner" json:"owner"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Component) TableName() string {
	return "components"
}

func (c Component) ElementField(field string) string {
	switch field {
	case "name":
		return c.Name
	case "id":
		return c.ID.String()
	}
	return ""
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Group is the middle tier of the hierarchy: a named collection of configs
// within a domain with its own per-environment activation.
type Group struct {
	ID          uuid.UUID                     `db:"id" json:"id"`
	DomainID    uuid.UUID                     `db:"domain_id" json:"domain_id"`
	Name        string                        `db:"name" json:"name"`
	Description string                        `db:"description" json:"description"`
	Activated   database.JSONB[ActivationMap] `db:"activated" json:"activated"`
	Owner       uuid.UUID                     `db:"owner" json:"owner"`
	CreatedAt   time.Time                     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                     `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Group) TableName() string {
	return "groups"
}

func (g Group) ElementField(field string) string {
	switch field {
	case "name":
		return g.Name
	case "id":
		return g.ID.String()
	}
	return ""
}

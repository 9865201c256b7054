package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
)

// Domain is the tenant root. Every group, config, team and component hangs
// off a domain, and LastUpdate is bumped on any mutation beneath it so
// clients can cheaply detect stale snapshots.
type Domain struct {
	ID         uuid.UUID                    `db:"id" json:"id"`
	Name       string                       `db:"name" json:"name"`
	Owner      uuid.UUID                    `db:"owner" json:"owner"`
	Activated  database.JSONB[ActivationMap] `db:"activated" json:"activated"`
	LastUpdate int64                        `db:"last_update" json:"last_update"`
	CreatedAt  time.Time                    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time                    `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Domain) TableName() string {
	return "domains"
}

func (d Domain) ElementField(field string) string {
	switch field {
	case "name":
		return d.Name
	case "id":
		return d.ID.String()
	}
	return ""
}

// Environment is a named deployment context scoped to one domain. The
// default environment is implicit and never stored.
type Environment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DomainID  uuid.UUID `db:"domain_id" json:"domain_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TableName returns the database table name
func (Environment) TableName() string {
	return "environments"
}

func (e Environment) ElementField(field string) string {
	switch field {
	case "name":
		return e.Name
	case "id":
		return e.ID.String()
	}
	return ""
}

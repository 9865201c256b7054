package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RoleAction is the operation class a role grants.
type RoleAction string

const (
	ActionCreate RoleAction = "CREATE"
	ActionRead   RoleAction = "READ"
	ActionUpdate RoleAction = "UPDATE"
	ActionDelete RoleAction = "DELETE"
	ActionAll    RoleAction = "ALL"
)

// RouterScope names the record family a role applies to.
type RouterScope string

const (
	RouterDomain      RouterScope = "DOMAIN"
	RouterGroup       RouterScope = "GROUP"
	RouterConfig      RouterScope = "CONFIG"
	RouterStrategy    RouterScope = "STRATEGY"
	RouterComponent   RouterScope = "COMPONENT"
	RouterEnvironment RouterScope = "ENVIRONMENT"
	RouterAdmin       RouterScope = "ADMIN"
	RouterAll         RouterScope = "ALL"
)

// cascadeRouters lists, per requested router, the routers whose roles also
// satisfy a cascade-mode check. The hierarchy only spans the flag tree;
// component, environment and admin routers never cascade.
var cascadeRouters = map[RouterScope][]RouterScope{
	RouterDomain:   {RouterDomain, RouterGroup, RouterConfig, RouterStrategy, RouterAll},
	RouterGroup:    {RouterGroup, RouterConfig, RouterStrategy, RouterAll},
	RouterConfig:   {RouterConfig, RouterStrategy, RouterAll},
	RouterStrategy: {RouterStrategy, RouterAll},
}

// CascadeRouters returns the routers acceptable for a cascade-mode check
// on the requested router.
func CascadeRouters(requested RouterScope) []RouterScope {
	if routers, ok := cascadeRouters[requested]; ok {
		return routers
	}
	return []RouterScope{requested, RouterAll}
}

// Role is a single grant held by a team. IdentifiedBy narrows a role whose
// router exactly matches the request to elements whose named field is in
// Values.
type Role struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	TeamID       uuid.UUID      `db:"team_id" json:"team_id"`
	Action       RoleAction     `db:"action" json:"action"`
	Active       bool           `db:"active" json:"active"`
	Router       RouterScope    `db:"router" json:"router"`
	IdentifiedBy string         `db:"identified_by" json:"identified_by"`
	Values       pq.StringArray `db:"role_values" json:"values"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Role) TableName() string {
	return "roles"
}

// AllowsAction reports whether the role grants the requested action.
func (r Role) AllowsAction(action RoleAction) bool {
	return r.Active && (r.Action == action || r.Action == ActionAll)
}

// Matches reports whether the role's identifier filter admits the element.
// A role without a filter admits everything its router covers.
func (r Role) Matches(element Element) bool {
	if r.IdentifiedBy == "" || len(r.Values) == 0 {
		return true
	}
	if element == nil {
		return false
	}
	value := element.ElementField(r.IdentifiedBy)
	for _, candidate := range r.Values {
		if candidate == value {
			return true
		}
	}
	return false
}

// Team is a set of admins sharing a role list within a domain. An inactive
// team denies everything for its members.
type Team struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DomainID  uuid.UUID `db:"domain_id" json:"domain_id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Roles []Role `db:"-" json:"roles,omitempty"`
}

// TableName returns the database table name
func (Team) TableName() string {
	return "teams"
}

func (t Team) ElementField(field string) string {
	switch field {
	case "name":
		return t.Name
	case "id":
		return t.ID.String()
	}
	return ""
}

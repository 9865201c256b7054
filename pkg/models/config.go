package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
)

// RelayType controls how a relay verdict is applied to the evaluation.
type RelayType string

const (
	// RelayValidation makes the relay response authoritative: its verdict
	// overwrites whatever the local evaluation produced.
	RelayValidation RelayType = "VALIDATION"
	// RelayNotification is fire-and-forget: the relay is told about the
	// evaluation but cannot change its outcome.
	RelayNotification RelayType = "NOTIFICATION"
)

// RelayMethod is the HTTP method used to call the relay endpoint.
type RelayMethod string

const (
	RelayGet  RelayMethod = "GET"
	RelayPost RelayMethod = "POST"
)

// ConfigRelay is the optional forwarding target attached to a config.
// Endpoint, AuthToken and Verified are keyed by environment; changing an
// endpoint resets the verified flag for that environment only.
type ConfigRelay struct {
	Type        RelayType         `json:"type"`
	Method      RelayMethod       `json:"method"`
	Description string            `json:"description,omitempty"`
	Activated   ActivationMap     `json:"activated"`
	Endpoint    map[string]string `json:"endpoint"`
	AuthPrefix  string            `json:"auth_prefix,omitempty"`
	AuthToken   map[string]string `json:"auth_token,omitempty"`
	Verified    map[string]bool   `json:"verified"`
}

// EndpointFor returns the relay endpoint for the environment. No fallback
// applies here: a relay without an endpoint for the requested environment
// does not fire.
func (r *ConfigRelay) EndpointFor(environment string) (string, bool) {
	if r == nil {
		return "", false
	}
	endpoint, ok := r.Endpoint[environment]
	return endpoint, ok
}

// IsActive reports whether the relay should be consulted for the
// environment.
func (r *ConfigRelay) IsActive(environment string) bool {
	return r != nil && r.Activated.IsActivated(environment)
}

// IsVerified reports whether the relay endpoint for the environment has
// been verified since it was last changed.
func (r *ConfigRelay) IsVerified(environment string) bool {
	return r != nil && r.Verified[environment]
}

// Config is a single switchable key within a group. Components lists the
// applications entitled to evaluate it; DisableMetrics suppresses metric
// emission per environment.
type Config struct {
	ID             uuid.UUID                     `db:"id" json:"id"`
	DomainID       uuid.UUID                     `db:"domain_id" json:"domain_id"`
	GroupID        uuid.UUID                     `db:"group_id" json:"group_id"`
	Key            string                        `db:"key" json:"key"`
	Description    string                        `db:"description" json:"description"`
	Activated      database.JSONB[ActivationMap] `db:"activated" json:"activated"`
	Components     pq.StringArray                `db:"components" json:"components"`
	Relay          database.JSONB[*ConfigRelay]  `db:"relay" json:"relay"`
	DisableMetrics database.JSONB[ActivationMap] `db:"disable_metrics" json:"disable_metrics"`
	Owner          uuid.UUID                     `db:"owner" json:"owner"`
	CreatedAt      time.Time                     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time                     `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Config) TableName() string {
	return "configs"
}

func (c Config) ElementField(field string) string {
	switch field {
	case "key", "name":
		return c.Key
	case "id":
		return c.ID.String()
	}
	return ""
}

// HasComponent reports whether the named component is registered on the
// config.
func (c Config) HasComponent(name string) bool {
	for _, component := range c.Components {
		if component == name {
			return true
		}
	}
	return false
}

// MetricsDisabled reports whether metric emission is suppressed for the
// environment.
func (c Config) MetricsDisabled(environment string) bool {
	return c.DisableMetrics.Data.IsActivated(environment)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// MetricRecord captures one criteria evaluation for later analysis. Rows
// are written asynchronously and never block or fail the evaluation that
// produced them.
type MetricRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DomainID    uuid.UUID `db:"domain_id" json:"domain_id"`
	ConfigID    uuid.UUID `db:"config_id" json:"config_id"`
	ConfigKey   string    `db:"config_key" json:"config_key"`
	GroupName   string    `db:"group_name" json:"group_name"`
	Component   string    `db:"component" json:"component"`
	Environment string    `db:"environment" json:"environment"`
	Result      bool      `db:"result" json:"result"`
	Reason      string    `db:"reason" json:"reason"`
	Message     string    `db:"message" json:"message,omitempty"`
	Entries     string    `db:"entries" json:"entries,omitempty"`
	Date        time.Time `db:"date" json:"date"`
}

// TableName returns the database table name
func (MetricRecord) TableName() string {
	return "metrics"
}

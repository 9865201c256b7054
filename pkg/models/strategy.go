package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
)

// StrategyKind identifies the evaluation family of a config strategy.
type StrategyKind string

const (
	StrategyValue   StrategyKind = "VALUE"
	StrategyNetwork StrategyKind = "NETWORK"
	StrategyNumeric StrategyKind = "NUMERIC"
	StrategyDate    StrategyKind = "DATE"
	StrategyTime    StrategyKind = "TIME"
	StrategyRegex   StrategyKind = "REGEX"
	StrategyPayload StrategyKind = "PAYLOAD"
)

// StrategyOperation is the comparison a strategy applies to its input.
type StrategyOperation string

const (
	OpExist    StrategyOperation = "EXIST"
	OpNotExist StrategyOperation = "NOT_EXIST"
	OpEqual    StrategyOperation = "EQUAL"
	OpNotEqual StrategyOperation = "NOT_EQUAL"
	OpGreater  StrategyOperation = "GREATER"
	OpLesser   StrategyOperation = "LESSER"
	OpBetween  StrategyOperation = "BETWEEN"
	OpHasOne   StrategyOperation = "HAS_ONE"
	OpHasAll   StrategyOperation = "HAS_ALL"
)

// MaxOperandLength caps each stored strategy value. Operands beyond this
// are rejected at write time.
const MaxOperandLength = 128

// strategyOperations maps each strategy kind to the operations it accepts.
var strategyOperations = map[StrategyKind][]StrategyOperation{
	StrategyValue:   {OpExist, OpNotExist, OpEqual, OpNotEqual},
	StrategyNetwork: {OpExist, OpNotExist},
	StrategyNumeric: {OpExist, OpNotExist, OpEqual, OpNotEqual, OpGreater, OpLesser, OpBetween},
	StrategyDate:    {OpGreater, OpLesser, OpBetween},
	StrategyTime:    {OpGreater, OpLesser, OpBetween},
	StrategyRegex:   {OpExist, OpNotExist, OpEqual, OpNotEqual},
	StrategyPayload: {OpHasOne, OpHasAll},
}

// ValidKind reports whether the kind is a known strategy family.
func ValidKind(kind StrategyKind) bool {
	_, ok := strategyOperations[kind]
	return ok
}

// ValidOperation reports whether the operation is accepted by the kind.
func ValidOperation(kind StrategyKind, operation StrategyOperation) bool {
	for _, op := range strategyOperations[kind] {
		if op == operation {
			return true
		}
	}
	return false
}

// OperationsFor returns the operations a strategy kind accepts.
func OperationsFor(kind StrategyKind) []StrategyOperation {
	return strategyOperations[kind]
}

// ConfigStrategy is a conditional rule attached to a config. Each document
// is scoped to a single environment entry at creation time; the same
// logical rule for another environment is a separate sibling document, so
// enforcement requires an explicit activation entry for the requested
// environment.
type ConfigStrategy struct {
	ID          uuid.UUID                     `db:"id" json:"id"`
	ConfigID    uuid.UUID                     `db:"config_id" json:"config_id"`
	DomainID    uuid.UUID                     `db:"domain_id" json:"domain_id"`
	Kind        StrategyKind                  `db:"kind" json:"strategy"`
	Description string                        `db:"description" json:"description"`
	Operation   StrategyOperation             `db:"operation" json:"operation"`
	Values      pq.StringArray                `db:"operand_values" json:"values"`
	Activated   database.JSONB[ActivationMap] `db:"activated" json:"activated"`
	Owner       uuid.UUID                     `db:"owner" json:"owner"`
	CreatedAt   time.Time                     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                     `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (ConfigStrategy) TableName() string {
	return "config_strategies"
}

func (s ConfigStrategy) ElementField(field string) string {
	switch field {
	case "strategy", "name":
		return string(s.Kind)
	case "id":
		return s.ID.String()
	}
	return ""
}

// StrategyEntry pairs a strategy kind with the caller-supplied input for
// one evaluation request.
type StrategyEntry struct {
	Strategy StrategyKind `json:"strategy" validate:"required"`
	Input    string       `json:"input" validate:"required"`
}

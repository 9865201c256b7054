package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const strategiesTable = "config_strategies"

// StrategyRepository handles database operations for config strategies
type StrategyRepository struct {
	*Repository
}

// NewStrategyRepository creates a new strategy repository
func NewStrategyRepository(db database.DB, logger ectologger.Logger) *StrategyRepository {
	return &StrategyRepository{
		Repository: NewRepository(db, logger),
	}
}

// validateStrategy checks the kind, operation and operand constraints
// before a write.
func validateStrategy(strategy *models.ConfigStrategy) error {
	if !models.ValidKind(strategy.Kind) {
		return BadRequest("Strategy %s is not supported", strategy.Kind)
	}
	if !models.ValidOperation(strategy.Kind, strategy.Operation) {
		return BadRequest("Operation %s is not supported by strategy %s", strategy.Operation, strategy.Kind)
	}
	for _, operand := range strategy.Values {
		if len(operand) > models.MaxOperandLength {
			return BadRequest("Strategy value exceeds the %d character limit", models.MaxOperandLength)
		}
	}
	return nil
}

// Create creates a strategy document. Each document is scoped to a single
// environment, so a config may only carry one document per (kind,
// environment) pair.
func (r *StrategyRepository) Create(ctx context.Context, strategy *models.ConfigStrategy, environment string) error {
	ctx, span := tracing.StartSpan(ctx, "StrategyRepository.Create")
	defer span.End()

	adminID, err := GetAdminID(ctx)
	if err != nil {
		return err
	}
	strategy.Owner = adminID

	if err := validateStrategy(strategy); err != nil {
		return err
	}

	var exists bool
	err = r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM config_strategies WHERE config_id = $1 AND kind = $2 AND activated ? $3)`,
		strategy.ConfigID, strategy.Kind, environment)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check strategy")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create strategy")
	}
	if exists {
		return BadRequest("Strategy %s already exists for this environment", strategy.Kind)
	}

	if strategy.ID == uuid.Nil {
		strategy.ID = uuid.New()
	}
	strategy.Activated.Data = models.ActivationMap{environment: true}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder().
		InsertInto(strategiesTable).
		Cols("id", "config_id", "domain_id", "kind", "description", "operation",
			"operand_values", "activated", "owner", "created_at", "updated_at").
		Values(strategy.ID, strategy.ConfigID, strategy.DomainID, strategy.Kind,
			strategy.Description, strategy.Operation, strategy.Values, strategy.Activated,
			strategy.Owner, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"strategy": strategy.Kind,
		}).Error("failed to create strategy")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create strategy")
	}

	strategy.CreatedAt = now
	strategy.UpdatedAt = now
	return r.bumpDomainVersion(ctx, strategy.DomainID)
}

// GetByID retrieves a strategy by id
func (r *StrategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConfigStrategy, error) {
	ctx, span := tracing.StartSpan(ctx, "StrategyRepository.GetByID")
	defer span.End()

	var strategy models.ConfigStrategy
	err := r.DB().GetContext(ctx, &strategy, `SELECT * FROM config_strategies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Strategy not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get strategy")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get strategy")
	}
	return &strategy, nil
}

// ListByConfig retrieves all strategy documents of a config in a stable
// order. The criteria engine relies on this ordering for deterministic
// short-circuiting.
func (r *StrategyRepository) ListByConfig(ctx context.Context, configID uuid.UUID) ([]models.ConfigStrategy, error) {
	ctx, span := tracing.StartSpan(ctx, "StrategyRepository.ListByConfig")
	defer span.End()

	strategies := []models.ConfigStrategy{}
	err := r.DB().SelectContext(ctx, &strategies,
		`SELECT * FROM config_strategies WHERE config_id = $1 ORDER BY kind, created_at`, configID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list strategies")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list strategies")
	}
	return strategies, nil
}

// Update changes a strategy's operation, operands or description
func (r *StrategyRepository) Update(ctx context.Context, strategy *models.ConfigStrategy) error {
	ctx, span := tracing.StartSpan(ctx, "StrategyRepository.Update")
	defer span.End()

	if err := validateStrategy(strategy); err != nil {
		return err
	}

	query := `UPDATE config_strategies SET operation = $1, operand_values = $2, description = $3, updated_at = NOW() WHERE id = $4`
	result, err := r.DB().ExecContext(ctx, query, strategy.Operation, strategy.Values, strategy.Description, strategy.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update strategy")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update strategy")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Strategy not found")
	}
	return r.bumpDomainVersion(ctx, strategy.DomainID)
}

// UpdateStatus toggles the strategy's activation for the environment it
// is scoped to.
func (r *StrategyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, environment string, activated bool) (*models.ConfigStrategy, error) {
	ctx, span := tracing.StartSpan(ctx, "StrategyRepository.UpdateStatus")
	defer span.End()

	strategy, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strategy.Activated.Data.Has(environment) {
		return nil, BadRequest("Strategy %s is not configured for environment %s", strategy.Kind, environment)
	}
	strategy.Activated.Data[environment] = activated

	query := `UPDATE config_strategies SET activated = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB().ExecContext(ctx, query, strategy.Activated, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update strategy status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update strategy")
	}

	if err := r.bumpDomainVersion(ctx, strategy.DomainID); err != nil {
		return nil, err
	}
	return strategy, nil
}

// Delete removes a strategy document
func (r *StrategyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "StrategyRepository.Delete")
	defer span.End()

	strategy, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.DB().ExecContext(ctx, `DELETE FROM config_strategies WHERE id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete strategy")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete strategy")
	}
	return r.bumpDomainVersion(ctx, strategy.DomainID)
}

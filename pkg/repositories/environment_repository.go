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

const environmentsTable = "environments"

// EnvironmentRepository handles database operations for environments
type EnvironmentRepository struct {
	*Repository
}

// NewEnvironmentRepository creates a new environment repository
func NewEnvironmentRepository(db database.DB, logger ectologger.Logger) *EnvironmentRepository {
	return &EnvironmentRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create registers a named environment for a domain. The default
// environment is implicit and never stored.
func (r *EnvironmentRepository) Create(ctx context.Context, environment *models.Environment) error {
	ctx, span := tracing.StartSpan(ctx, "EnvironmentRepository.Create")
	defer span.End()

	if environment.Name == models.DefaultEnvironment {
		return BadRequest("Environment %s is reserved", models.DefaultEnvironment)
	}

	var exists bool
	err := r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM environments WHERE domain_id = $1 AND name = $2)`,
		environment.DomainID, environment.Name)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check environment name")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create environment")
	}
	if exists {
		return BadRequest("Environment %s already exists", environment.Name)
	}

	if environment.ID == uuid.Nil {
		environment.ID = uuid.New()
	}
	now := time.Now().UTC()

	ib := database.NewInsertBuilder().
		InsertInto(environmentsTable).
		Cols("id", "domain_id", "name", "created_at").
		Values(environment.ID, environment.DomainID, environment.Name, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"environment": environment.Name,
		}).Error("failed to create environment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create environment")
	}

	environment.CreatedAt = now
	return r.bumpDomainVersion(ctx, environment.DomainID)
}

// GetByName retrieves an environment by domain and name
func (r *EnvironmentRepository) GetByName(ctx context.Context, domainID uuid.UUID, name string) (*models.Environment, error) {
	ctx, span := tracing.StartSpan(ctx, "EnvironmentRepository.GetByName")
	defer span.End()

	var environment models.Environment
	err := r.DB().GetContext(ctx, &environment,
		`SELECT * FROM environments WHERE domain_id = $1 AND name = $2`, domainID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Environment %s not found", name)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get environment")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get environment")
	}
	return &environment, nil
}

// ListByDomain retrieves the named environments of a domain
func (r *EnvironmentRepository) ListByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Environment, error) {
	ctx, span := tracing.StartSpan(ctx, "EnvironmentRepository.ListByDomain")
	defer span.End()

	environments := []models.Environment{}
	err := r.DB().SelectContext(ctx, &environments,
		`SELECT * FROM environments WHERE domain_id = $1 ORDER BY name`, domainID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list environments")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list environments")
	}
	return environments, nil
}

// Delete removes an environment registration. Activation entries keyed by
// the environment name elsewhere in the domain are left for their own
// repositories to clean up.
func (r *EnvironmentRepository) Delete(ctx context.Context, domainID uuid.UUID, name string) error {
	ctx, span := tracing.StartSpan(ctx, "EnvironmentRepository.Delete")
	defer span.End()

	if name == models.DefaultEnvironment {
		return BadRequest("Unable to delete the default environment")
	}

	result, err := r.DB().ExecContext(ctx,
		`DELETE FROM environments WHERE domain_id = $1 AND name = $2`, domainID, name)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete environment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete environment")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Environment %s not found", name)
	}
	return r.bumpDomainVersion(ctx, domainID)
}

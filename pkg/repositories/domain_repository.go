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

const domainsTable = "domains"

// DomainRepository handles database operations for domains
type DomainRepository struct {
	*Repository
}

// NewDomainRepository creates a new domain repository
func NewDomainRepository(db database.DB, logger ectologger.Logger) *DomainRepository {
	return &DomainRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create creates a new domain owned by the acting admin. The activation
// map always seeds the default environment as enabled.
func (r *DomainRepository) Create(ctx context.Context, domain *models.Domain) error {
	ctx, span := tracing.StartSpan(ctx, "DomainRepository.Create")
	defer span.End()

	adminID, err := GetAdminID(ctx)
	if err != nil {
		return err
	}
	domain.Owner = adminID

	var exists bool
	err = r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM domains WHERE name = $1 AND owner = $2)`, domain.Name, domain.Owner)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check domain name")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create domain")
	}
	if exists {
		return BadRequest("Domain %s already exists", domain.Name)
	}

	if domain.ID == uuid.Nil {
		domain.ID = uuid.New()
	}
	if domain.Activated.Data == nil {
		domain.Activated.Data = models.ActivationMap{}
	}
	if !domain.Activated.Data.Has(models.DefaultEnvironment) {
		domain.Activated.Data[models.DefaultEnvironment] = true
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder().
		InsertInto(domainsTable).
		Cols("id", "name", "owner", "activated", "last_update", "created_at", "updated_at").
		Values(domain.ID, domain.Name, domain.Owner, domain.Activated, 1, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"domain": domain.Name,
		}).Error("failed to create domain")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create domain")
	}

	domain.LastUpdate = 1
	domain.CreatedAt = now
	domain.UpdatedAt = now

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"domain": domain.Name,
	}).Debugf("Created %s", domainsTable)
	return nil
}

// GetByID retrieves a domain by id
func (r *DomainRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Domain, error) {
	ctx, span := tracing.StartSpan(ctx, "DomainRepository.GetByID")
	defer span.End()

	var domain models.Domain
	err := r.DB().GetContext(ctx, &domain, `SELECT * FROM domains WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Domain not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"domain_id": id,
		}).Error("failed to get domain")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get domain")
	}
	return &domain, nil
}

// ListByOwner retrieves all domains owned by the admin
func (r *DomainRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.Domain, error) {
	ctx, span := tracing.StartSpan(ctx, "DomainRepository.ListByOwner")
	defer span.End()

	domains := []models.Domain{}
	err := r.DB().SelectContext(ctx, &domains, `SELECT * FROM domains WHERE owner = $1 ORDER BY name`, owner)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list domains")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list domains")
	}
	return domains, nil
}

// UpdateStatus sets the activation entry for one environment and bumps the
// version token.
func (r *DomainRepository) UpdateStatus(ctx context.Context, id uuid.UUID, environment string, activated bool) (*models.Domain, error) {
	ctx, span := tracing.StartSpan(ctx, "DomainRepository.UpdateStatus")
	defer span.End()

	domain, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if domain.Activated.Data == nil {
		domain.Activated.Data = models.ActivationMap{}
	}
	domain.Activated.Data[environment] = activated

	query := `UPDATE domains SET activated = $1, last_update = last_update + 1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB().ExecContext(ctx, query, domain.Activated, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"domain_id": id,
		}).Error("failed to update domain status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update domain")
	}

	domain.LastUpdate++
	return domain, nil
}

// RemoveStatus deletes the activation entry for an environment, restoring
// fallback to the default environment. The default entry itself cannot be
// removed.
func (r *DomainRepository) RemoveStatus(ctx context.Context, id uuid.UUID, environment string) (*models.Domain, error) {
	ctx, span := tracing.StartSpan(ctx, "DomainRepository.RemoveStatus")
	defer span.End()

	if environment == models.DefaultEnvironment {
		return nil, BadRequest("Unable to remove the default environment status")
	}

	domain, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	delete(domain.Activated.Data, environment)

	query := `UPDATE domains SET activated = $1, last_update = last_update + 1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB().ExecContext(ctx, query, domain.Activated, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"domain_id": id,
		}).Error("failed to remove domain status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update domain")
	}

	domain.LastUpdate++
	return domain, nil
}

// Delete removes a domain and cascades to every descendant record.
func (r *DomainRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "DomainRepository.Delete")
	defer span.End()

	result, err := r.DB().ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"domain_id": id,
		}).Error("failed to delete domain")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete domain")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Domain not found")
	}
	return nil
}

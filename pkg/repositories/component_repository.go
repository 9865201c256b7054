package repositories

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
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

const componentsTable = "components"

// ComponentRepository handles database operations for components
type ComponentRepository struct {
	*Repository
}

// NewComponentRepository creates a new component repository
func NewComponentRepository(db database.DB, logger ectologger.Logger) *ComponentRepository {
	return &ComponentRepository{
		Repository: NewRepository(db, logger),
	}
}

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func generateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// Create registers a component and returns its plaintext API key. Only the
// hash is stored; the key cannot be recovered later, only regenerated.
func (r *ComponentRepository) Create(ctx context.Context, component *models.Component) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "ComponentRepository.Create")
	defer span.End()

	adminID, err := GetAdminID(ctx)
	if err != nil {
		return "", err
	}
	component.Owner = adminID

	var exists bool
	err = r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM components WHERE domain_id = $1 AND name = $2)`,
		component.DomainID, component.Name)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check component name")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to create component")
	}
	if exists {
		return "", BadRequest("Component %s already exists", component.Name)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to generate component key")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to create component")
	}
	component.APIKeyHash = hashAPIKey(apiKey)

	if component.ID == uuid.Nil {
		component.ID = uuid.New()
	}
	now := time.Now().UTC()

	ib := database.NewInsertBuilder().
		InsertInto(componentsTable).
		Cols("id", "domain_id", "name", "description", "api_key_hash", "owner", "created_at", "updated_at").
		Values(component.ID, component.DomainID, component.Name, component.Description,
			component.APIKeyHash, component.Owner, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"component": component.Name,
		}).Error("failed to create component")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to create component")
	}

	component.CreatedAt = now
	component.UpdatedAt = now
	if err := r.bumpDomainVersion(ctx, component.DomainID); err != nil {
		return "", err
	}
	return apiKey, nil
}

// GetByID retrieves a component by id
func (r *ComponentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Component, error) {
	ctx, span := tracing.StartSpan(ctx, "ComponentRepository.GetByID")
	defer span.End()

	var component models.Component
	err := r.DB().GetContext(ctx, &component, `SELECT * FROM components WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Component not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get component")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get component")
	}
	return &component, nil
}

// ListByDomain retrieves all components of a domain
func (r *ComponentRepository) ListByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Component, error) {
	ctx, span := tracing.StartSpan(ctx, "ComponentRepository.ListByDomain")
	defer span.End()

	components := []models.Component{}
	err := r.DB().SelectContext(ctx, &components,
		`SELECT * FROM components WHERE domain_id = $1 ORDER BY name`, domainID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list components")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list components")
	}
	return components, nil
}

// Authenticate resolves a component by domain, name and plaintext API key
func (r *ComponentRepository) Authenticate(ctx context.Context, domainID uuid.UUID, name, apiKey string) (*models.Component, error) {
	ctx, span := tracing.StartSpan(ctx, "ComponentRepository.Authenticate")
	defer span.End()

	var component models.Component
	err := r.DB().GetContext(ctx, &component,
		`SELECT * FROM components WHERE domain_id = $1 AND name = $2 AND api_key_hash = $3`,
		domainID, name, hashAPIKey(apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Unauthorized("invalid component credentials")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to authenticate component")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to authenticate component")
	}
	return &component, nil
}

// RegenerateKey replaces the component's API key and returns the new
// plaintext key.
func (r *ComponentRepository) RegenerateKey(ctx context.Context, id uuid.UUID) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "ComponentRepository.RegenerateKey")
	defer span.End()

	component, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to generate component key")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to regenerate key")
	}

	query := `UPDATE components SET api_key_hash = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB().ExecContext(ctx, query, hashAPIKey(apiKey), id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to regenerate component key")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to regenerate key")
	}

	if err := r.bumpDomainVersion(ctx, component.DomainID); err != nil {
		return "", err
	}
	return apiKey, nil
}

// Delete removes a component registration
func (r *ComponentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "ComponentRepository.Delete")
	defer span.End()

	component, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.DB().ExecContext(ctx, `DELETE FROM components WHERE id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete component")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete component")
	}
	return r.bumpDomainVersion(ctx, component.DomainID)
}

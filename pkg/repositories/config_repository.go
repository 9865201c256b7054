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
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const configsTable = "configs"

// ConfigRepository handles database operations for configs
type ConfigRepository struct {
	*Repository
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(db database.DB, logger ectologger.Logger) *ConfigRepository {
	return &ConfigRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create creates a config. The key must be unique within the domain and
// the activation map seeds the default environment as enabled.
func (r *ConfigRepository) Create(ctx context.Context, config *models.Config) error {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.Create")
	defer span.End()

	adminID, err := GetAdminID(ctx)
	if err != nil {
		return err
	}
	config.Owner = adminID

	var exists bool
	err = r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM configs WHERE domain_id = $1 AND key = $2)`,
		config.DomainID, config.Key)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check config key")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create config")
	}
	if exists {
		return BadRequest("Config %s already exists", config.Key)
	}

	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	if config.Activated.Data == nil {
		config.Activated.Data = models.ActivationMap{models.DefaultEnvironment: true}
	}
	if config.DisableMetrics.Data == nil {
		config.DisableMetrics.Data = models.ActivationMap{}
	}
	if config.Components == nil {
		config.Components = pq.StringArray{}
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder().
		InsertInto(configsTable).
		Cols("id", "domain_id", "group_id", "key", "description", "activated",
			"components", "relay", "disable_metrics", "owner", "created_at", "updated_at").
		Values(config.ID, config.DomainID, config.GroupID, config.Key, config.Description,
			config.Activated, config.Components, config.Relay, config.DisableMetrics,
			config.Owner, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": config.Key,
		}).Error("failed to create config")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create config")
	}

	config.CreatedAt = now
	config.UpdatedAt = now
	return r.bumpDomainVersion(ctx, config.DomainID)
}

// GetByID retrieves a config by id
func (r *ConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.GetByID")
	defer span.End()

	var config models.Config
	err := r.DB().GetContext(ctx, &config, `SELECT * FROM configs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Config not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get config")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config")
	}
	return &config, nil
}

// GetByKey retrieves a config by domain and key
func (r *ConfigRepository) GetByKey(ctx context.Context, domainID uuid.UUID, key string) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.GetByKey")
	defer span.End()

	var config models.Config
	err := r.DB().GetContext(ctx, &config,
		`SELECT * FROM configs WHERE domain_id = $1 AND key = $2`, domainID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Config %s not found", key)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": key,
		}).Error("failed to get config")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config")
	}
	return &config, nil
}

// ListByGroup retrieves all configs of a group
func (r *ConfigRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.ListByGroup")
	defer span.End()

	configs := []models.Config{}
	err := r.DB().SelectContext(ctx, &configs,
		`SELECT * FROM configs WHERE group_id = $1 ORDER BY key`, groupID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list configs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list configs")
	}
	return configs, nil
}

// ListByDomain retrieves all configs of a domain
func (r *ConfigRepository) ListByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.ListByDomain")
	defer span.End()

	configs := []models.Config{}
	err := r.DB().SelectContext(ctx, &configs,
		`SELECT * FROM configs WHERE domain_id = $1 ORDER BY key`, domainID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list configs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list configs")
	}
	return configs, nil
}

// Update changes a config's key, description or metric suppression
func (r *ConfigRepository) Update(ctx context.Context, config *models.Config) error {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.Update")
	defer span.End()

	query := `UPDATE configs SET key = $1, description = $2, disable_metrics = $3, updated_at = NOW() WHERE id = $4`
	result, err := r.DB().ExecContext(ctx, query, config.Key, config.Description, config.DisableMetrics, config.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update config")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update config")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Config not found")
	}
	return r.bumpDomainVersion(ctx, config.DomainID)
}

// UpdateStatus sets the activation entry for one environment
func (r *ConfigRepository) UpdateStatus(ctx context.Context, id uuid.UUID, environment string, activated bool) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.UpdateStatus")
	defer span.End()

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if config.Activated.Data == nil {
		config.Activated.Data = models.ActivationMap{}
	}
	config.Activated.Data[environment] = activated
	return r.save(ctx, config)
}

// RemoveStatus deletes the activation entry for an environment
func (r *ConfigRepository) RemoveStatus(ctx context.Context, id uuid.UUID, environment string) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.RemoveStatus")
	defer span.End()

	if environment == models.DefaultEnvironment {
		return nil, BadRequest("Unable to remove the default environment status")
	}

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	delete(config.Activated.Data, environment)
	return r.save(ctx, config)
}

// UpdateRelay replaces the relay sub-record. Any environment whose
// endpoint changed has its verified flag reset; untouched environments
// keep theirs.
func (r *ConfigRepository) UpdateRelay(ctx context.Context, id uuid.UUID, relay *models.ConfigRelay) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.UpdateRelay")
	defer span.End()

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := config.Relay.Data
	if relay != nil {
		verified := map[string]bool{}
		if previous != nil {
			for environment, endpoint := range relay.Endpoint {
				if previousEndpoint, ok := previous.Endpoint[environment]; ok && previousEndpoint == endpoint {
					verified[environment] = previous.Verified[environment]
				}
			}
		}
		relay.Verified = verified
	}
	config.Relay.Data = relay

	return r.save(ctx, config)
}

// VerifyRelay marks the relay endpoint for an environment as verified
func (r *ConfigRepository) VerifyRelay(ctx context.Context, id uuid.UUID, environment string) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.VerifyRelay")
	defer span.End()

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	relay := config.Relay.Data
	if relay == nil {
		return nil, NotFound("Config has no relay")
	}
	if _, ok := relay.Endpoint[environment]; !ok {
		return nil, NotFound("Relay has no endpoint for environment %s", environment)
	}
	if relay.Verified == nil {
		relay.Verified = map[string]bool{}
	}
	relay.Verified[environment] = true

	return r.save(ctx, config)
}

// AddComponent registers a component name on the config's caller whitelist
func (r *ConfigRepository) AddComponent(ctx context.Context, id uuid.UUID, component string) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.AddComponent")
	defer span.End()

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if config.HasComponent(component) {
		return nil, BadRequest("Component %s is already registered on config %s", component, config.Key)
	}
	config.Components = append(config.Components, component)
	return r.save(ctx, config)
}

// RemoveComponent removes a component name from the caller whitelist
func (r *ConfigRepository) RemoveComponent(ctx context.Context, id uuid.UUID, component string) (*models.Config, error) {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.RemoveComponent")
	defer span.End()

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	filtered := make(pq.StringArray, 0, len(config.Components))
	for _, existing := range config.Components {
		if existing != component {
			filtered = append(filtered, existing)
		}
	}
	if len(filtered) == len(config.Components) {
		return nil, NotFound("Component %s is not registered on config %s", component, config.Key)
	}
	config.Components = filtered
	return r.save(ctx, config)
}

func (r *ConfigRepository) save(ctx context.Context, config *models.Config) (*models.Config, error) {
	query := `UPDATE configs SET activated = $1, components = $2, relay = $3, disable_metrics = $4, updated_at = NOW() WHERE id = $5`
	if _, err := r.DB().ExecContext(ctx, query,
		config.Activated, config.Components, config.Relay, config.DisableMetrics, config.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": config.Key,
		}).Error("failed to update config")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update config")
	}
	if err := r.bumpDomainVersion(ctx, config.DomainID); err != nil {
		return nil, err
	}
	return config, nil
}

// Delete removes a config and cascades to its strategies
func (r *ConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "ConfigRepository.Delete")
	defer span.End()

	config, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.DB().ExecContext(ctx, `DELETE FROM configs WHERE id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete config")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete config")
	}
	return r.bumpDomainVersion(ctx, config.DomainID)
}

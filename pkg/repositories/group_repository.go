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

const groupsTable = "groups"

// GroupRepository handles database operations for config groups
type GroupRepository struct {
	*Repository
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db database.DB, logger ectologger.Logger) *GroupRepository {
	return &GroupRepository{
		Repository: NewRepository(db, logger),
	}
}

// Create creates a group. Name uniqueness per domain is enforced with a
// pre-insert check so the caller gets a descriptive message instead of a
// constraint violation.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.Create")
	defer span.End()

	adminID, err := GetAdminID(ctx)
	if err != nil {
		return err
	}
	group.Owner = adminID

	var exists bool
	err = r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM groups WHERE domain_id = $1 AND name = $2)`,
		group.DomainID, group.Name)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check group name")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create group")
	}
	if exists {
		return BadRequest("Group %s already exists", group.Name)
	}

	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if group.Activated.Data == nil {
		group.Activated.Data = models.ActivationMap{models.DefaultEnvironment: true}
	}

	now := time.Now().UTC()
	ib := database.NewInsertBuilder().
		InsertInto(groupsTable).
		Cols("id", "domain_id", "name", "description", "activated", "owner", "created_at", "updated_at").
		Values(group.ID, group.DomainID, group.Name, group.Description, group.Activated, group.Owner, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"group": group.Name,
		}).Error("failed to create group")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create group")
	}

	group.CreatedAt = now
	group.UpdatedAt = now
	return r.bumpDomainVersion(ctx, group.DomainID)
}

// GetByID retrieves a group by id
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.GetByID")
	defer span.End()

	var group models.Group
	err := r.DB().GetContext(ctx, &group, `SELECT * FROM groups WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Group not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get group")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get group")
	}
	return &group, nil
}

// GetByName retrieves a group by domain and name
func (r *GroupRepository) GetByName(ctx context.Context, domainID uuid.UUID, name string) (*models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.GetByName")
	defer span.End()

	var group models.Group
	err := r.DB().GetContext(ctx, &group,
		`SELECT * FROM groups WHERE domain_id = $1 AND name = $2`, domainID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Group %s not found", name)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get group")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get group")
	}
	return &group, nil
}

// ListByDomain retrieves all groups within a domain
func (r *GroupRepository) ListByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.ListByDomain")
	defer span.End()

	groups := []models.Group{}
	err := r.DB().SelectContext(ctx, &groups,
		`SELECT * FROM groups WHERE domain_id = $1 ORDER BY name`, domainID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list groups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list groups")
	}
	return groups, nil
}

// Update changes a group's name or description
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.Update")
	defer span.End()

	query := `UPDATE groups SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.DB().ExecContext(ctx, query, group.Name, group.Description, group.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update group")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update group")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Group not found")
	}
	return r.bumpDomainVersion(ctx, group.DomainID)
}

// UpdateStatus sets the activation entry for one environment
func (r *GroupRepository) UpdateStatus(ctx context.Context, id uuid.UUID, environment string, activated bool) (*models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.UpdateStatus")
	defer span.End()

	group, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if group.Activated.Data == nil {
		group.Activated.Data = models.ActivationMap{}
	}
	group.Activated.Data[environment] = activated

	return r.saveActivation(ctx, group)
}

// RemoveStatus deletes the activation entry for an environment, restoring
// fallback to the default environment.
func (r *GroupRepository) RemoveStatus(ctx context.Context, id uuid.UUID, environment string) (*models.Group, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.RemoveStatus")
	defer span.End()

	if environment == models.DefaultEnvironment {
		return nil, BadRequest("Unable to remove the default environment status")
	}

	group, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	delete(group.Activated.Data, environment)
	return r.saveActivation(ctx, group)
}

func (r *GroupRepository) saveActivation(ctx context.Context, group *models.Group) (*models.Group, error) {
	query := `UPDATE groups SET activated = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB().ExecContext(ctx, query, group.Activated, group.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"group_id": group.ID,
		}).Error("failed to update group activation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update group")
	}
	if err := r.bumpDomainVersion(ctx, group.DomainID); err != nil {
		return nil, err
	}
	return group, nil
}

// Delete removes a group and cascades to its configs and strategies
func (r *GroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.Delete")
	defer span.End()

	group, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.DB().ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete group")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete group")
	}
	return r.bumpDomainVersion(ctx, group.DomainID)
}

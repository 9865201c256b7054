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

const rolesTable = "roles"

var validActions = map[models.RoleAction]bool{
	models.ActionCreate: true,
	models.ActionRead:   true,
	models.ActionUpdate: true,
	models.ActionDelete: true,
	models.ActionAll:    true,
}

var validRouters = map[models.RouterScope]bool{
	models.RouterDomain:      true,
	models.RouterGroup:       true,
	models.RouterConfig:      true,
	models.RouterStrategy:    true,
	models.RouterComponent:   true,
	models.RouterEnvironment: true,
	models.RouterAdmin:       true,
	models.RouterAll:         true,
}

// RoleRepository handles database operations for team roles
type RoleRepository struct {
	*Repository
	invalidator PermissionInvalidator
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db database.DB, logger ectologger.Logger) *RoleRepository {
	return &RoleRepository{
		Repository: NewRepository(db, logger),
	}
}

// SetInvalidator attaches the permission cache invalidation hook
func (r *RoleRepository) SetInvalidator(invalidator PermissionInvalidator) {
	r.invalidator = invalidator
}

func (r *RoleRepository) invalidate(ctx context.Context, teamID uuid.UUID) {
	if r.invalidator == nil {
		return
	}
	var domainID uuid.UUID
	err := r.DB().GetContext(ctx, &domainID, `SELECT domain_id FROM teams WHERE id = $1`, teamID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("failed to resolve domain for cache invalidation")
		return
	}
	r.invalidator.InvalidateDomain(ctx, domainID)
}

func validateRole(role *models.Role) error {
	if !validActions[role.Action] {
		return BadRequest("Action %s is not supported", role.Action)
	}
	if !validRouters[role.Router] {
		return BadRequest("Router %s is not supported", role.Router)
	}
	return nil
}

// Create attaches a role to a team
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Create")
	defer span.End()

	if err := validateRole(role); err != nil {
		return err
	}

	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	now := time.Now().UTC()

	ib := database.NewInsertBuilder().
		InsertInto(rolesTable).
		Cols("id", "team_id", "action", "active", "router", "identified_by", "role_values", "created_at", "updated_at").
		Values(role.ID, role.TeamID, role.Action, role.Active, role.Router, role.IdentifiedBy, role.Values, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"team_id": role.TeamID,
		}).Error("failed to create role")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create role")
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	r.invalidate(ctx, role.TeamID)
	return nil
}

// GetByID retrieves a role by id
func (r *RoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.GetByID")
	defer span.End()

	var role models.Role
	err := r.DB().GetContext(ctx, &role, `SELECT * FROM roles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Role not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get role")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get role")
	}
	return &role, nil
}

// ListByTeam retrieves all roles of a team
func (r *RoleRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Role, error) {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.ListByTeam")
	defer span.End()

	roles := []models.Role{}
	err := r.DB().SelectContext(ctx, &roles,
		`SELECT * FROM roles WHERE team_id = $1 ORDER BY created_at`, teamID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list roles")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list roles")
	}
	return roles, nil
}

// Update changes a role's grant
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) error {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Update")
	defer span.End()

	if err := validateRole(role); err != nil {
		return err
	}

	query := `UPDATE roles SET action = $1, active = $2, router = $3, identified_by = $4, role_values = $5, updated_at = NOW() WHERE id = $6`
	result, err := r.DB().ExecContext(ctx, query,
		role.Action, role.Active, role.Router, role.IdentifiedBy, role.Values, role.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update role")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update role")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Role not found")
	}
	r.invalidate(ctx, role.TeamID)
	return nil
}

// Delete removes a role from its team
func (r *RoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "RoleRepository.Delete")
	defer span.End()

	role, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.DB().ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete role")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete role")
	}
	r.invalidate(ctx, role.TeamID)
	return nil
}

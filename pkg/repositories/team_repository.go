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

const (
	teamsTable       = "teams"
	teamMembersTable = "team_members"
)

// PermissionInvalidator drops memoized authorization verdicts for a
// domain. Wired to the permission cache so team and role mutations take
// effect immediately instead of after the cache TTL.
type PermissionInvalidator interface {
	InvalidateDomain(ctx context.Context, domainID uuid.UUID)
}

// TeamRepository handles database operations for teams and membership
type TeamRepository struct {
	*Repository
	invalidator PermissionInvalidator
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db database.DB, logger ectologger.Logger) *TeamRepository {
	return &TeamRepository{
		Repository: NewRepository(db, logger),
	}
}

// SetInvalidator attaches the permission cache invalidation hook
func (r *TeamRepository) SetInvalidator(invalidator PermissionInvalidator) {
	r.invalidator = invalidator
}

func (r *TeamRepository) invalidate(ctx context.Context, domainID uuid.UUID) {
	if r.invalidator != nil {
		r.invalidator.InvalidateDomain(ctx, domainID)
	}
}

// Create creates a team within a domain
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.Create")
	defer span.End()

	var exists bool
	err := r.DB().GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM teams WHERE domain_id = $1 AND name = $2)`,
		team.DomainID, team.Name)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to check team name")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create team")
	}
	if exists {
		return BadRequest("Team %s already exists", team.Name)
	}

	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	now := time.Now().UTC()

	ib := database.NewInsertBuilder().
		InsertInto(teamsTable).
		Cols("id", "domain_id", "name", "active", "created_at", "updated_at").
		Values(team.ID, team.DomainID, team.Name, team.Active, now, now)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"team": team.Name,
		}).Error("failed to create team")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create team")
	}

	team.CreatedAt = now
	team.UpdatedAt = now
	if err := r.bumpDomainVersion(ctx, team.DomainID); err != nil {
		return err
	}
	r.invalidate(ctx, team.DomainID)
	return nil
}

// GetByID retrieves a team with its roles loaded
func (r *TeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.GetByID")
	defer span.End()

	var team models.Team
	err := r.DB().GetContext(ctx, &team, `SELECT * FROM teams WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("Team not found")
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to get team")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get team")
	}

	if err := r.loadRoles(ctx, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListByDomain retrieves all teams of a domain, roles included
func (r *TeamRepository) ListByDomain(ctx context.Context, domainID uuid.UUID) ([]models.Team, error) {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.ListByDomain")
	defer span.End()

	teams := []models.Team{}
	err := r.DB().SelectContext(ctx, &teams,
		`SELECT * FROM teams WHERE domain_id = $1 ORDER BY name`, domainID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list teams")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list teams")
	}

	for i := range teams {
		if err := r.loadRoles(ctx, &teams[i]); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

// ListByMember retrieves the teams an admin belongs to within a domain,
// roles included. The order is stable so the authorization fold is
// deterministic.
func (r *TeamRepository) ListByMember(ctx context.Context, domainID, adminID uuid.UUID) ([]models.Team, error) {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.ListByMember")
	defer span.End()

	teams := []models.Team{}
	query := `
		SELECT t.*
		FROM teams t
		INNER JOIN team_members m ON m.team_id = t.id
		WHERE t.domain_id = $1 AND m.admin_id = $2
		ORDER BY t.name
	`
	err := r.DB().SelectContext(ctx, &teams, query, domainID, adminID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list member teams")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list teams")
	}

	for i := range teams {
		if err := r.loadRoles(ctx, &teams[i]); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

func (r *TeamRepository) loadRoles(ctx context.Context, team *models.Team) error {
	roles := []models.Role{}
	err := r.DB().SelectContext(ctx, &roles,
		`SELECT * FROM roles WHERE team_id = $1 ORDER BY created_at`, team.ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"team_id": team.ID,
		}).Error("failed to load team roles")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to load team roles")
	}
	team.Roles = roles
	return nil
}

// UpdateStatus toggles the team's active flag
func (r *TeamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, active bool) (*models.Team, error) {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.UpdateStatus")
	defer span.End()

	team, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `UPDATE teams SET active = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB().ExecContext(ctx, query, active, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update team status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update team")
	}

	team.Active = active
	if err := r.bumpDomainVersion(ctx, team.DomainID); err != nil {
		return nil, err
	}
	r.invalidate(ctx, team.DomainID)
	return team, nil
}

// AddMember adds an admin to the team
func (r *TeamRepository) AddMember(ctx context.Context, teamID, adminID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.AddMember")
	defer span.End()

	team, err := r.GetByID(ctx, teamID)
	if err != nil {
		return err
	}

	ib := database.NewInsertBuilder().
		InsertInto(teamMembersTable).
		Cols("team_id", "admin_id").
		Values(teamID, adminID).
		OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to add team member")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add team member")
	}

	if err := r.bumpDomainVersion(ctx, team.DomainID); err != nil {
		return err
	}
	r.invalidate(ctx, team.DomainID)
	return nil
}

// RemoveMember removes an admin from the team
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, adminID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.RemoveMember")
	defer span.End()

	team, err := r.GetByID(ctx, teamID)
	if err != nil {
		return err
	}

	result, err := r.DB().ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND admin_id = $2`, teamID, adminID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to remove team member")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to remove team member")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NotFound("Admin is not a member of this team")
	}

	if err := r.bumpDomainVersion(ctx, team.DomainID); err != nil {
		return err
	}
	r.invalidate(ctx, team.DomainID)
	return nil
}

// Delete removes a team, its membership and its roles
func (r *TeamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TeamRepository.Delete")
	defer span.End()

	team, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.DB().ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete team")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete team")
	}

	if err := r.bumpDomainVersion(ctx, team.DomainID); err != nil {
		return err
	}
	r.invalidate(ctx, team.DomainID)
	return nil
}

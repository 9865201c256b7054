package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/authorization"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// TeamHandler handles team and role API endpoints
type TeamHandler struct {
	teams  *repositories.TeamRepository
	roles  *repositories.RoleRepository
	authz  *authorization.Engine
	logger ectologger.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(
	teams *repositories.TeamRepository,
	roles *repositories.RoleRepository,
	authz *authorization.Engine,
	logger ectologger.Logger,
) *TeamHandler {
	return &TeamHandler{
		teams:  teams,
		roles:  roles,
		authz:  authz,
		logger: logger,
	}
}

// CreateTeamRequest represents the create team request body
type CreateTeamRequest struct {
	DomainID string `json:"domain_id" validate:"required,uuid"`
	Name     string `json:"name" validate:"required"`
}

// TeamStatusRequest toggles a team's active flag
type TeamStatusRequest struct {
	Active bool `json:"active"`
}

// TeamMemberRequest adds or removes a team member
type TeamMemberRequest struct {
	AdminID string `json:"admin_id" validate:"required,uuid"`
}

// CreateRoleRequest represents the create role request body
type CreateRoleRequest struct {
	TeamID       string   `json:"team_id" validate:"required,uuid"`
	Action       string   `json:"action" validate:"required"`
	Router       string   `json:"router" validate:"required"`
	IdentifiedBy string   `json:"identified_by,omitempty"`
	Values       []string `json:"values,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// UpdateRoleRequest represents the update role request body
type UpdateRoleRequest struct {
	Action       string   `json:"action" validate:"required"`
	Router       string   `json:"router" validate:"required"`
	IdentifiedBy string   `json:"identified_by,omitempty"`
	Values       []string `json:"values,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// Register registers team routes
func (h *TeamHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.POST("/:id/members", h.AddMember)
	g.DELETE("/:id/members/:adminId", h.RemoveMember)
	g.DELETE("/:id", h.Delete)
}

// RegisterRoles registers role routes
func (h *TeamHandler) RegisterRoles(g *echo.Group) {
	g.GET("", h.ListRoles)
	g.POST("", h.CreateRole)
	g.GET("/:id", h.GetRole)
	g.PUT("/:id", h.UpdateRole)
	g.DELETE("/:id", h.DeleteRole)
}

// List returns the teams of a domain the admin may read
func (h *TeamHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	domainIDStr := c.QueryParam("domain_id")
	if domainIDStr == "" {
		return BadRequest("domain_id query parameter is required")
	}
	domainID, err := uuid.Parse(domainIDStr)
	if err != nil {
		return BadRequest("invalid domain_id")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	teams, err := h.teams.ListByDomain(ctx, domainID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list teams")
		return err
	}

	elements := make([]models.Element, len(teams))
	for i, team := range teams {
		elements[i] = team
	}

	allowed, err := h.authz.AuthorizeList(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionRead,
		Router:   models.RouterAdmin,
	}, elements)
	if err != nil {
		return err
	}
	return SuccessResponse(c, allowed)
}

// Create creates a new team
func (h *TeamHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateTeamRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	domainID, err := uuid.Parse(req.DomainID)
	if err != nil {
		return BadRequest("invalid domain_id")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	team := &models.Team{
		DomainID: domainID,
		Name:     req.Name,
		Active:   true,
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionCreate,
		Router:   models.RouterAdmin,
	}, *team)
	if err != nil {
		return err
	}

	if err := h.teams.Create(ctx, team); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create team")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created team: %s", team.Name)
	return CreatedResponse(c, team)
}

// GetByID returns a team with its roles
func (h *TeamHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	team, err := h.authorizedTeam(c, models.ActionRead)
	if err != nil {
		return err
	}
	return SuccessResponse(c, team)
}

// UpdateStatus toggles the team's active flag
func (h *TeamHandler) UpdateStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.UpdateStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req TeamStatusRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	team, err := h.authorizedTeam(c, models.ActionUpdate)
	if err != nil {
		return err
	}

	updated, err := h.teams.UpdateStatus(ctx, team.ID, req.Active)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Set team %s active=%v", updated.Name, req.Active)
	return SuccessResponse(c, updated)
}

// AddMember adds an admin to the team
func (h *TeamHandler) AddMember(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.AddMember")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req TeamMemberRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	memberID, err := uuid.Parse(req.AdminID)
	if err != nil {
		return BadRequest("invalid admin_id")
	}

	team, err := h.authorizedTeam(c, models.ActionUpdate)
	if err != nil {
		return err
	}

	if err := h.teams.AddMember(ctx, team.ID, memberID); err != nil {
		return err
	}
	return NoContentResponse(c)
}

// RemoveMember removes an admin from the team
func (h *TeamHandler) RemoveMember(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.RemoveMember")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	memberID, err := ParseUUID(c, "adminId")
	if err != nil {
		return err
	}

	team, err := h.authorizedTeam(c, models.ActionUpdate)
	if err != nil {
		return err
	}

	if err := h.teams.RemoveMember(ctx, team.ID, memberID); err != nil {
		return err
	}
	return NoContentResponse(c)
}

// Delete removes a team and its roles
func (h *TeamHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	team, err := h.authorizedTeam(c, models.ActionDelete)
	if err != nil {
		return err
	}

	if err := h.teams.Delete(ctx, team.ID); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete team")
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted team: %s", team.Name)
	return NoContentResponse(c)
}

// ListRoles returns the roles of a team
func (h *TeamHandler) ListRoles(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.ListRoles")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	teamIDStr := c.QueryParam("team_id")
	if teamIDStr == "" {
		return BadRequest("team_id query parameter is required")
	}
	teamID, err := uuid.Parse(teamIDStr)
	if err != nil {
		return BadRequest("invalid team_id")
	}

	team, err := h.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if err := h.authorizeTeamAccess(c, team, models.ActionRead); err != nil {
		return err
	}

	roles, err := h.roles.ListByTeam(ctx, teamID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list roles")
		return err
	}
	return SuccessResponse(c, roles)
}

// CreateRole adds a role to a team
func (h *TeamHandler) CreateRole(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.CreateRole")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateRoleRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		return BadRequest("invalid team_id")
	}

	team, err := h.teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if err := h.authorizeTeamAccess(c, team, models.ActionUpdate); err != nil {
		return err
	}

	role := &models.Role{
		TeamID:       teamID,
		Action:       models.RoleAction(req.Action),
		Router:       models.RouterScope(req.Router),
		IdentifiedBy: req.IdentifiedBy,
		Values:       req.Values,
		Active:       true,
	}
	if req.Active != nil {
		role.Active = *req.Active
	}

	if err := h.roles.Create(ctx, role); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create role")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created role %s/%s on team %s", role.Action, role.Router, team.Name)
	return CreatedResponse(c, role)
}

// GetRole returns a role by ID
func (h *TeamHandler) GetRole(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.GetRole")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	role, _, err := h.authorizedRole(c, models.ActionRead)
	if err != nil {
		return err
	}
	return SuccessResponse(c, role)
}

// UpdateRole changes a role's action, router, filter or active flag
func (h *TeamHandler) UpdateRole(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.UpdateRole")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateRoleRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	role, _, err := h.authorizedRole(c, models.ActionUpdate)
	if err != nil {
		return err
	}

	role.Action = models.RoleAction(req.Action)
	role.Router = models.RouterScope(req.Router)
	role.IdentifiedBy = req.IdentifiedBy
	role.Values = req.Values
	if req.Active != nil {
		role.Active = *req.Active
	}

	if err := h.roles.Update(ctx, role); err != nil {
		return err
	}
	return SuccessResponse(c, role)
}

// DeleteRole removes a role from its team
func (h *TeamHandler) DeleteRole(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "TeamHandler.DeleteRole")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	role, _, err := h.authorizedRole(c, models.ActionUpdate)
	if err != nil {
		return err
	}

	if err := h.roles.Delete(ctx, role.ID); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete role")
		return err
	}
	return NoContentResponse(c)
}

// authorizedTeam loads the team from the path and runs the role check.
// Team management runs under the ADMIN router scope.
func (h *TeamHandler) authorizedTeam(c echo.Context, action models.RoleAction) (*models.Team, error) {
	id, err := ParseUUID(c, "id")
	if err != nil {
		return nil, err
	}

	team, err := h.teams.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}

	if err := h.authorizeTeamAccess(c, team, action); err != nil {
		return nil, err
	}
	return team, nil
}

func (h *TeamHandler) authorizeTeamAccess(c echo.Context, team *models.Team, action models.RoleAction) error {
	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	return h.authz.Authorize(c.Request().Context(), authorization.Request{
		AdminID:  adminID,
		DomainID: team.DomainID,
		Action:   action,
		Router:   models.RouterAdmin,
	}, *team)
}

// authorizedRole loads a role and authorizes through its owning team
func (h *TeamHandler) authorizedRole(c echo.Context, action models.RoleAction) (*models.Role, *models.Team, error) {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return nil, nil, err
	}

	role, err := h.roles.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	team, err := h.teams.GetByID(ctx, role.TeamID)
	if err != nil {
		return nil, nil, err
	}
	if err := h.authorizeTeamAccess(c, team, action); err != nil {
		return nil, nil, err
	}
	return role, team, nil
}

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

// GroupHandler handles group API endpoints
type GroupHandler struct {
	repo   *repositories.GroupRepository
	authz  *authorization.Engine
	logger ectologger.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(repo *repositories.GroupRepository, authz *authorization.Engine, logger ectologger.Logger) *GroupHandler {
	return &GroupHandler{
		repo:   repo,
		authz:  authz,
		logger: logger,
	}
}

// CreateGroupRequest represents the create group request body
type CreateGroupRequest struct {
	DomainID    string `json:"domain_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// UpdateGroupRequest represents the update group request body
type UpdateGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// Register registers group routes
func (h *GroupHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id/status/:env", h.RemoveStatus)
	g.DELETE("/:id", h.Delete)
}

// List returns the groups of a domain the admin may read
func (h *GroupHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.List")
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

	groups, err := h.repo.ListByDomain(ctx, domainID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list groups")
		return err
	}

	elements := make([]models.Element, len(groups))
	for i, group := range groups {
		elements[i] = group
	}

	allowed, err := h.authz.AuthorizeList(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionRead,
		Router:   models.RouterGroup,
		Cascade:  Cascade(c),
	}, elements)
	if err != nil {
		return err
	}
	return SuccessResponse(c, allowed)
}

// Create creates a new group
func (h *GroupHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateGroupRequest
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

	group := &models.Group{
		DomainID:    domainID,
		Name:        req.Name,
		Description: req.Description,
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionCreate,
		Router:   models.RouterGroup,
	}, *group)
	if err != nil {
		return err
	}

	if err := h.repo.Create(ctx, group); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create group")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created group: %s", group.Name)
	return CreatedResponse(c, group)
}

// GetByID returns a group by ID
func (h *GroupHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	group, err := h.authorizedGroup(c, models.ActionRead, Cascade(c))
	if err != nil {
		return err
	}
	return SuccessResponse(c, group)
}

// Update changes a group's name or description
func (h *GroupHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.Update")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateGroupRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.authorizedGroup(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	group.Name = req.Name
	group.Description = req.Description
	if err := h.repo.Update(ctx, group); err != nil {
		return err
	}
	return SuccessResponse(c, group)
}

// UpdateStatus sets the group's activation for one environment
func (h *GroupHandler) UpdateStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.UpdateStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateStatusRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.authorizedGroup(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.UpdateStatus(ctx, group.ID, req.Environment, req.Activated)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Set group %s activated[%s]=%v", updated.Name, req.Environment, req.Activated)
	return SuccessResponse(c, updated)
}

// RemoveStatus removes the group's activation entry for an environment
func (h *GroupHandler) RemoveStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.RemoveStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	environment := c.Param("env")
	if environment == "" {
		return BadRequest("environment is required")
	}

	group, err := h.authorizedGroup(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.RemoveStatus(ctx, group.ID, environment)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

// Delete removes a group and its configs
func (h *GroupHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "GroupHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	group, err := h.authorizedGroup(c, models.ActionDelete, false)
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, group.ID); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete group")
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted group: %s", group.Name)
	return NoContentResponse(c)
}

// authorizedGroup loads the group from the path and runs the role check
// for the requested action.
func (h *GroupHandler) authorizedGroup(c echo.Context, action models.RoleAction, cascade bool) (*models.Group, error) {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return nil, err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return nil, err
	}

	group, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: group.DomainID,
		Action:   action,
		Router:   models.RouterGroup,
		Cascade:  cascade,
	}, *group)
	if err != nil {
		return nil, err
	}
	return group, nil
}

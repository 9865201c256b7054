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

// DomainHandler handles domain API endpoints
type DomainHandler struct {
	repo   *repositories.DomainRepository
	envs   *repositories.EnvironmentRepository
	authz  *authorization.Engine
	logger ectologger.Logger
}

// NewDomainHandler creates a new domain handler
func NewDomainHandler(
	repo *repositories.DomainRepository,
	envs *repositories.EnvironmentRepository,
	authz *authorization.Engine,
	logger ectologger.Logger,
) *DomainHandler {
	return &DomainHandler{
		repo:   repo,
		envs:   envs,
		authz:  authz,
		logger: logger,
	}
}

// CreateDomainRequest represents the create domain request body
type CreateDomainRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateStatusRequest represents an activation change for one environment
type UpdateStatusRequest struct {
	Environment string `json:"environment" validate:"required"`
	Activated   bool   `json:"activated"`
}

// CreateEnvironmentRequest represents the create environment request body
type CreateEnvironmentRequest struct {
	Name string `json:"name" validate:"required"`
}

// Register registers domain routes
func (h *DomainHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id/status/:env", h.RemoveStatus)
	g.DELETE("/:id", h.Delete)

	g.GET("/:id/environments", h.ListEnvironments)
	g.POST("/:id/environments", h.CreateEnvironment)
	g.DELETE("/:id/environments/:name", h.DeleteEnvironment)
}

// List returns the domains owned by the acting admin
func (h *DomainHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	domains, err := h.repo.ListByOwner(ctx, adminID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list domains")
		return err
	}
	return SuccessResponse(c, domains)
}

// Create creates a new domain owned by the acting admin
func (h *DomainHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateDomainRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	domain := &models.Domain{Name: req.Name}
	if err := h.repo.Create(ctx, domain); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create domain")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created domain: %s", domain.Name)
	return CreatedResponse(c, domain)
}

// GetByID returns a domain by ID
func (h *DomainHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	domain, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: id,
		Action:   models.ActionRead,
		Router:   models.RouterDomain,
		Cascade:  Cascade(c),
	}, *domain)
	if err != nil {
		return err
	}

	return SuccessResponse(c, domain)
}

// UpdateStatus sets the domain's activation for one environment
func (h *DomainHandler) UpdateStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.UpdateStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authorizeUpdate(c, id); err != nil {
		return err
	}

	domain, err := h.repo.UpdateStatus(ctx, id, req.Environment, req.Activated)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Set domain %s activated[%s]=%v", domain.Name, req.Environment, req.Activated)
	return SuccessResponse(c, domain)
}

// RemoveStatus removes the domain's activation entry for an environment
func (h *DomainHandler) RemoveStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.RemoveStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	environment := c.Param("env")
	if environment == "" {
		return BadRequest("environment is required")
	}

	if err := h.authorizeUpdate(c, id); err != nil {
		return err
	}

	domain, err := h.repo.RemoveStatus(ctx, id, environment)
	if err != nil {
		return err
	}
	return SuccessResponse(c, domain)
}

// Delete removes a domain and everything under it
func (h *DomainHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	domain, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: id,
		Action:   models.ActionDelete,
		Router:   models.RouterDomain,
	}, *domain)
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete domain")
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted domain: %s", domain.Name)
	return NoContentResponse(c)
}

// ListEnvironments returns the domain's environments
func (h *DomainHandler) ListEnvironments(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.ListEnvironments")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	environments, err := h.envs.ListByDomain(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list environments")
		return err
	}
	return SuccessResponse(c, environments)
}

// CreateEnvironment adds a named environment to the domain
func (h *DomainHandler) CreateEnvironment(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.CreateEnvironment")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req CreateEnvironmentRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	environment := &models.Environment{DomainID: id, Name: req.Name}
	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: id,
		Action:   models.ActionCreate,
		Router:   models.RouterEnvironment,
	}, *environment)
	if err != nil {
		return err
	}

	if err := h.envs.Create(ctx, environment); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create environment")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created environment: %s", environment.Name)
	return CreatedResponse(c, environment)
}

// DeleteEnvironment removes a named environment from the domain
func (h *DomainHandler) DeleteEnvironment(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "DomainHandler.DeleteEnvironment")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	name := c.Param("name")
	if name == "" {
		return BadRequest("environment name is required")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	environment, err := h.envs.GetByName(ctx, id, name)
	if err != nil {
		return err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: id,
		Action:   models.ActionDelete,
		Router:   models.RouterEnvironment,
	}, *environment)
	if err != nil {
		return err
	}

	if err := h.envs.Delete(ctx, id, name); err != nil {
		return err
	}
	return NoContentResponse(c)
}

func (h *DomainHandler) authorizeUpdate(c echo.Context, id uuid.UUID) error {
	ctx := c.Request().Context()

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	domain, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: id,
		Action:   models.ActionUpdate,
		Router:   models.RouterDomain,
	}, *domain)
}

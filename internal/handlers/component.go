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

// ComponentHandler handles component API endpoints
type ComponentHandler struct {
	repo   *repositories.ComponentRepository
	authz  *authorization.Engine
	logger ectologger.Logger
}

// NewComponentHandler creates a new component handler
func NewComponentHandler(repo *repositories.ComponentRepository, authz *authorization.Engine, logger ectologger.Logger) *ComponentHandler {
	return &ComponentHandler{
		repo:   repo,
		authz:  authz,
		logger: logger,
	}
}

// CreateComponentRequest represents the create component request body
type CreateComponentRequest struct {
	DomainID    string `json:"domain_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

// ComponentKeyResponse carries the plaintext API key. It is only returned
// on creation and regeneration; the stored record keeps a hash.
type ComponentKeyResponse struct {
	Component *models.Component `json:"component"`
	APIKey    string            `json:"api_key"`
}

// Register registers component routes
func (h *ComponentHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id/key", h.RegenerateKey)
	g.DELETE("/:id", h.Delete)
}

// List returns the components of a domain the admin may read
func (h *ComponentHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ComponentHandler.List")
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

	components, err := h.repo.ListByDomain(ctx, domainID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list components")
		return err
	}

	elements := make([]models.Element, len(components))
	for i, component := range components {
		elements[i] = component
	}

	allowed, err := h.authz.AuthorizeList(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionRead,
		Router:   models.RouterComponent,
	}, elements)
	if err != nil {
		return err
	}
	return SuccessResponse(c, allowed)
}

// Create registers a component and returns its API key once
func (h *ComponentHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ComponentHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateComponentRequest
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

	component := &models.Component{
		DomainID:    domainID,
		Name:        req.Name,
		Description: req.Description,
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionCreate,
		Router:   models.RouterComponent,
	}, *component)
	if err != nil {
		return err
	}

	apiKey, err := h.repo.Create(ctx, component)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create component")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created component: %s", component.Name)
	return CreatedResponse(c, ComponentKeyResponse{Component: component, APIKey: apiKey})
}

// GetByID returns a component by ID
func (h *ComponentHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ComponentHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	component, err := h.authorizedComponent(c, models.ActionRead)
	if err != nil {
		return err
	}
	return SuccessResponse(c, component)
}

// RegenerateKey replaces the component's API key and returns the new one
func (h *ComponentHandler) RegenerateKey(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ComponentHandler.RegenerateKey")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	component, err := h.authorizedComponent(c, models.ActionUpdate)
	if err != nil {
		return err
	}

	apiKey, err := h.repo.RegenerateKey(ctx, component.ID)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Regenerated API key for component: %s", component.Name)
	return SuccessResponse(c, ComponentKeyResponse{Component: component, APIKey: apiKey})
}

// Delete removes a component
func (h *ComponentHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ComponentHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	component, err := h.authorizedComponent(c, models.ActionDelete)
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, component.ID); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete component")
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted component: %s", component.Name)
	return NoContentResponse(c)
}

func (h *ComponentHandler) authorizedComponent(c echo.Context, action models.RoleAction) (*models.Component, error) {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return nil, err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return nil, err
	}

	component, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: component.DomainID,
		Action:   action,
		Router:   models.RouterComponent,
	}, *component)
	if err != nil {
		return nil, err
	}
	return component, nil
}

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

// ConfigHandler handles config API endpoints
type ConfigHandler struct {
	repo   *repositories.ConfigRepository
	authz  *authorization.Engine
	logger ectologger.Logger
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(repo *repositories.ConfigRepository, authz *authorization.Engine, logger ectologger.Logger) *ConfigHandler {
	return &ConfigHandler{
		repo:   repo,
		authz:  authz,
		logger: logger,
	}
}

// CreateConfigRequest represents the create config request body
type CreateConfigRequest struct {
	DomainID    string `json:"domain_id" validate:"required,uuid"`
	GroupID     string `json:"group_id" validate:"required,uuid"`
	Key         string `json:"key" validate:"required"`
	Description string `json:"description,omitempty"`
}

// UpdateConfigRequest represents the update config request body
type UpdateConfigRequest struct {
	Key            string          `json:"key" validate:"required"`
	Description    string          `json:"description,omitempty"`
	DisableMetrics map[string]bool `json:"disable_metrics,omitempty"`
}

// UpdateRelayRequest represents the relay replacement request body
type UpdateRelayRequest struct {
	Type        string            `json:"type" validate:"required,oneof=VALIDATION NOTIFICATION"`
	Method      string            `json:"method" validate:"required,oneof=GET POST"`
	Description string            `json:"description,omitempty"`
	Activated   map[string]bool   `json:"activated,omitempty"`
	Endpoint    map[string]string `json:"endpoint" validate:"required"`
	AuthPrefix  string            `json:"auth_prefix,omitempty"`
	AuthToken   map[string]string `json:"auth_token,omitempty"`
}

// ComponentNameRequest represents a component whitelist change
type ComponentNameRequest struct {
	Component string `json:"component" validate:"required"`
}

// Register registers config routes
func (h *ConfigHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id/status/:env", h.RemoveStatus)
	g.PATCH("/:id/relay", h.UpdateRelay)
	g.PATCH("/:id/relay/verify/:env", h.VerifyRelay)
	g.DELETE("/:id/relay", h.RemoveRelay)
	g.POST("/:id/components", h.AddComponent)
	g.DELETE("/:id/components/:name", h.RemoveComponent)
	g.DELETE("/:id", h.Delete)
}

// List returns the configs of a group or domain the admin may read
func (h *ConfigHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	var configs []models.Config
	var domainID uuid.UUID

	if groupIDStr := c.QueryParam("group_id"); groupIDStr != "" {
		groupID, err := uuid.Parse(groupIDStr)
		if err != nil {
			return BadRequest("invalid group_id")
		}
		configs, err = h.repo.ListByGroup(ctx, groupID)
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("Failed to list configs")
			return err
		}
		if len(configs) == 0 {
			return SuccessResponse(c, configs)
		}
		domainID = configs[0].DomainID
	} else if domainIDStr := c.QueryParam("domain_id"); domainIDStr != "" {
		domainID, err = uuid.Parse(domainIDStr)
		if err != nil {
			return BadRequest("invalid domain_id")
		}
		configs, err = h.repo.ListByDomain(ctx, domainID)
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("Failed to list configs")
			return err
		}
	} else {
		return BadRequest("group_id or domain_id query parameter is required")
	}

	elements := make([]models.Element, len(configs))
	for i, config := range configs {
		elements[i] = config
	}

	allowed, err := h.authz.AuthorizeList(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
		Cascade:  Cascade(c),
	}, elements)
	if err != nil {
		return err
	}
	return SuccessResponse(c, allowed)
}

// Create creates a new config
func (h *ConfigHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateConfigRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	domainID, err := uuid.Parse(req.DomainID)
	if err != nil {
		return BadRequest("invalid domain_id")
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		return BadRequest("invalid group_id")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	config := &models.Config{
		DomainID:    domainID,
		GroupID:     groupID,
		Key:         req.Key,
		Description: req.Description,
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   models.ActionCreate,
		Router:   models.RouterConfig,
	}, *config)
	if err != nil {
		return err
	}

	if err := h.repo.Create(ctx, config); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create config")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created config: %s", config.Key)
	return CreatedResponse(c, config)
}

// GetByID returns a config by ID
func (h *ConfigHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	config, err := h.authorizedConfig(c, models.ActionRead, Cascade(c))
	if err != nil {
		return err
	}
	return SuccessResponse(c, config)
}

// Update changes a config's key, description or metric suppression
func (h *ConfigHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.Update")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateConfigRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	config.Key = req.Key
	config.Description = req.Description
	if req.DisableMetrics != nil {
		config.DisableMetrics.Data = req.DisableMetrics
	}

	if err := h.repo.Update(ctx, config); err != nil {
		return err
	}
	return SuccessResponse(c, config)
}

// UpdateStatus sets the config's activation for one environment
func (h *ConfigHandler) UpdateStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.UpdateStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateStatusRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.UpdateStatus(ctx, config.ID, req.Environment, req.Activated)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Set config %s activated[%s]=%v", updated.Key, req.Environment, req.Activated)
	return SuccessResponse(c, updated)
}

// RemoveStatus removes the config's activation entry for an environment
func (h *ConfigHandler) RemoveStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.RemoveStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	environment := c.Param("env")
	if environment == "" {
		return BadRequest("environment is required")
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.RemoveStatus(ctx, config.ID, environment)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

// UpdateRelay replaces the config's relay record
func (h *ConfigHandler) UpdateRelay(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.UpdateRelay")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateRelayRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	relay := &models.ConfigRelay{
		Type:        models.RelayType(req.Type),
		Method:      models.RelayMethod(req.Method),
		Description: req.Description,
		Activated:   req.Activated,
		Endpoint:    req.Endpoint,
		AuthPrefix:  req.AuthPrefix,
		AuthToken:   req.AuthToken,
	}

	updated, err := h.repo.UpdateRelay(ctx, config.ID, relay)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Updated relay on config: %s", updated.Key)
	return SuccessResponse(c, updated)
}

// VerifyRelay marks the relay endpoint for an environment as verified
func (h *ConfigHandler) VerifyRelay(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.VerifyRelay")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	environment := c.Param("env")
	if environment == "" {
		return BadRequest("environment is required")
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.VerifyRelay(ctx, config.ID, environment)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

// RemoveRelay deletes the config's relay record
func (h *ConfigHandler) RemoveRelay(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.RemoveRelay")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.UpdateRelay(ctx, config.ID, nil)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

// AddComponent registers a component on the config's caller whitelist
func (h *ConfigHandler) AddComponent(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.AddComponent")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req ComponentNameRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.AddComponent(ctx, config.ID, req.Component)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

// RemoveComponent removes a component from the caller whitelist
func (h *ConfigHandler) RemoveComponent(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.RemoveComponent")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	name := c.Param("name")
	if name == "" {
		return BadRequest("component name is required")
	}

	config, err := h.authorizedConfig(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.RemoveComponent(ctx, config.ID, name)
	if err != nil {
		return err
	}
	return SuccessResponse(c, updated)
}

// Delete removes a config and its strategies
func (h *ConfigHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ConfigHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	config, err := h.authorizedConfig(c, models.ActionDelete, false)
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, config.ID); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete config")
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted config: %s", config.Key)
	return NoContentResponse(c)
}

// authorizedConfig loads the config from the path and runs the role check
// for the requested action.
func (h *ConfigHandler) authorizedConfig(c echo.Context, action models.RoleAction, cascade bool) (*models.Config, error) {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return nil, err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return nil, err
	}

	config, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: config.DomainID,
		Action:   action,
		Router:   models.RouterConfig,
		Cascade:  cascade,
	}, *config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

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

// StrategyHandler handles config strategy API endpoints
type StrategyHandler struct {
	repo    *repositories.StrategyRepository
	configs *repositories.ConfigRepository
	authz   *authorization.Engine
	logger  ectologger.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(
	repo *repositories.StrategyRepository,
	configs *repositories.ConfigRepository,
	authz *authorization.Engine,
	logger ectologger.Logger,
) *StrategyHandler {
	return &StrategyHandler{
		repo:    repo,
		configs: configs,
		authz:   authz,
		logger:  logger,
	}
}

// CreateStrategyRequest represents the create strategy request body
type CreateStrategyRequest struct {
	ConfigID    string   `json:"config_id" validate:"required,uuid"`
	Strategy    string   `json:"strategy" validate:"required"`
	Operation   string   `json:"operation" validate:"required"`
	Description string   `json:"description,omitempty"`
	Values      []string `json:"values" validate:"required,min=1"`
	Environment string   `json:"environment" validate:"required"`
}

// UpdateStrategyRequest represents the update strategy request body
type UpdateStrategyRequest struct {
	Operation   string   `json:"operation" validate:"required"`
	Description string   `json:"description,omitempty"`
	Values      []string `json:"values" validate:"required,min=1"`
}

// StrategyStatusRequest toggles a strategy for its environment
type StrategyStatusRequest struct {
	Environment string `json:"environment" validate:"required"`
	Activated   bool   `json:"activated"`
}

// Register registers strategy routes
func (h *StrategyHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.DELETE("/:id", h.Delete)
}

// List returns the strategy documents of a config
func (h *StrategyHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "StrategyHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	configIDStr := c.QueryParam("config_id")
	if configIDStr == "" {
		return BadRequest("config_id query parameter is required")
	}
	configID, err := uuid.Parse(configIDStr)
	if err != nil {
		return BadRequest("invalid config_id")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	config, err := h.configs.GetByID(ctx, configID)
	if err != nil {
		return err
	}

	strategies, err := h.repo.ListByConfig(ctx, configID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list strategies")
		return err
	}
	if len(strategies) == 0 {
		return SuccessResponse(c, strategies)
	}

	elements := make([]models.Element, len(strategies))
	for i, strategy := range strategies {
		elements[i] = strategy
	}

	allowed, err := h.authz.AuthorizeList(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: config.DomainID,
		Action:   models.ActionRead,
		Router:   models.RouterStrategy,
		Cascade:  Cascade(c),
	}, elements)
	if err != nil {
		return err
	}
	return SuccessResponse(c, allowed)
}

// Create creates a strategy document scoped to one environment
func (h *StrategyHandler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "StrategyHandler.Create")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req CreateStrategyRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	configID, err := uuid.Parse(req.ConfigID)
	if err != nil {
		return BadRequest("invalid config_id")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return err
	}

	config, err := h.configs.GetByID(ctx, configID)
	if err != nil {
		return err
	}

	strategy := &models.ConfigStrategy{
		ConfigID:    configID,
		DomainID:    config.DomainID,
		Kind:        models.StrategyKind(req.Strategy),
		Operation:   models.StrategyOperation(req.Operation),
		Description: req.Description,
		Values:      req.Values,
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: config.DomainID,
		Action:   models.ActionCreate,
		Router:   models.RouterStrategy,
	}, *strategy)
	if err != nil {
		return err
	}

	if err := h.repo.Create(ctx, strategy, req.Environment); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to create strategy")
		return err
	}

	h.logger.WithContext(ctx).Infof("Created strategy %s on config %s", strategy.Kind, config.Key)
	return CreatedResponse(c, strategy)
}

// GetByID returns a strategy by ID
func (h *StrategyHandler) GetByID(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "StrategyHandler.GetByID")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	strategy, err := h.authorizedStrategy(c, models.ActionRead, Cascade(c))
	if err != nil {
		return err
	}
	return SuccessResponse(c, strategy)
}

// Update changes a strategy's operation, operands or description
func (h *StrategyHandler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "StrategyHandler.Update")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req UpdateStrategyRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	strategy, err := h.authorizedStrategy(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	strategy.Operation = models.StrategyOperation(req.Operation)
	strategy.Description = req.Description
	strategy.Values = req.Values

	if err := h.repo.Update(ctx, strategy); err != nil {
		return err
	}
	return SuccessResponse(c, strategy)
}

// UpdateStatus toggles the strategy for the environment it is scoped to
func (h *StrategyHandler) UpdateStatus(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "StrategyHandler.UpdateStatus")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	var req StrategyStatusRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	strategy, err := h.authorizedStrategy(c, models.ActionUpdate, false)
	if err != nil {
		return err
	}

	updated, err := h.repo.UpdateStatus(ctx, strategy.ID, req.Environment, req.Activated)
	if err != nil {
		return err
	}

	h.logger.WithContext(ctx).Infof("Set strategy %s activated[%s]=%v", updated.Kind, req.Environment, req.Activated)
	return SuccessResponse(c, updated)
}

// Delete removes a strategy document
func (h *StrategyHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "StrategyHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	strategy, err := h.authorizedStrategy(c, models.ActionDelete, false)
	if err != nil {
		return err
	}

	if err := h.repo.Delete(ctx, strategy.ID); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete strategy")
		return err
	}

	h.logger.WithContext(ctx).Infof("Deleted strategy %s", strategy.Kind)
	return NoContentResponse(c)
}

// authorizedStrategy loads the strategy from the path and runs the role
// check for the requested action.
func (h *StrategyHandler) authorizedStrategy(c echo.Context, action models.RoleAction, cascade bool) (*models.ConfigStrategy, error) {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return nil, err
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return nil, err
	}

	strategy, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: strategy.DomainID,
		Action:   action,
		Router:   models.RouterStrategy,
		Cascade:  cascade,
	}, *strategy)
	if err != nil {
		return nil, err
	}
	return strategy, nil
}

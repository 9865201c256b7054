package handlers

import (
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/criteria"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// HeaderAPIKey is the header carrying the component's API key
	HeaderAPIKey = "X-API-Key"
)

// CriteriaHandler handles the client-facing evaluation endpoints
type CriteriaHandler struct {
	engine     *criteria.Engine
	configs    *repositories.ConfigRepository
	domains    *repositories.DomainRepository
	components *repositories.ComponentRepository
	logger     ectologger.Logger
}

// NewCriteriaHandler creates a new criteria handler
func NewCriteriaHandler(
	engine *criteria.Engine,
	configs *repositories.ConfigRepository,
	domains *repositories.DomainRepository,
	components *repositories.ComponentRepository,
	logger ectologger.Logger,
) *CriteriaHandler {
	return &CriteriaHandler{
		engine:     engine,
		configs:    configs,
		domains:    domains,
		components: components,
		logger:     logger,
	}
}

// EvaluateRequest represents the criteria evaluation request body
type EvaluateRequest struct {
	Key         string                 `json:"key" validate:"required"`
	Environment string                 `json:"environment,omitempty"`
	Entries     []models.StrategyEntry `json:"entries,omitempty"`
	// BypassMetric suppresses the evaluation record for this call
	BypassMetric bool `json:"bypass_metric,omitempty"`
}

// SnapshotResponse reports whether the client's cached version is current
type SnapshotResponse struct {
	Status  bool  `json:"status"`
	Version int64 `json:"version"`
}

// Register registers criteria routes
func (h *CriteriaHandler) Register(g *echo.Group) {
	g.POST("/:domainId", h.Evaluate)
	g.GET("/:domainId/snapshot/:version", h.SnapshotCheck)
}

// Evaluate answers one flag evaluation for an authenticated component
func (h *CriteriaHandler) Evaluate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CriteriaHandler.Evaluate")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	domainID, err := ParseUUID(c, "domainId")
	if err != nil {
		return err
	}

	var req EvaluateRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Environment == "" {
		req.Environment = models.DefaultEnvironment
	}
	for _, entry := range req.Entries {
		if !models.ValidKind(entry.Strategy) {
			return BadRequest("unknown strategy " + string(entry.Strategy))
		}
	}

	component, err := h.authenticateComponent(c, domainID)
	if err != nil {
		return err
	}

	config, err := h.configs.GetByKey(ctx, domainID, req.Key)
	if err != nil {
		return err
	}

	// The component must be on the config's caller whitelist.
	if !config.HasComponent(component.Name) {
		return Unauthorized("Component " + component.Name + " is not registered to config " + config.Key)
	}

	result, err := h.engine.Resolve(ctx, criteria.Request{
		Config:       config,
		Environment:  req.Environment,
		Entries:      req.Entries,
		Component:    component.Name,
		BypassMetric: req.BypassMetric,
	})
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": req.Key,
		}).Error("Failed to resolve criteria")
		return err
	}

	return SuccessResponse(c, result)
}

// SnapshotCheck compares the client's cached version token against the
// domain's current one.
func (h *CriteriaHandler) SnapshotCheck(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "CriteriaHandler.SnapshotCheck")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	domainID, err := ParseUUID(c, "domainId")
	if err != nil {
		return err
	}

	version, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil {
		return BadRequest("invalid version")
	}

	if _, err := h.authenticateComponent(c, domainID); err != nil {
		return err
	}

	domain, err := h.domains.GetByID(ctx, domainID)
	if err != nil {
		return err
	}

	return SuccessResponse(c, SnapshotResponse{
		Status:  domain.LastUpdate <= version,
		Version: domain.LastUpdate,
	})
}

// authenticateComponent validates the component name and API key headers.
// The component name is lifted into the request context by the context
// middleware.
func (h *CriteriaHandler) authenticateComponent(c echo.Context, domainID uuid.UUID) (*models.Component, error) {
	name := appctx.GetComponent(c.Request().Context())
	apiKey := c.Request().Header.Get(HeaderAPIKey)
	if name == "" || apiKey == "" {
		return nil, Unauthorized("component credentials are required")
	}

	component, err := h.components.Authenticate(c.Request().Context(), domainID, name, apiKey)
	if err != nil {
		return nil, err
	}
	return component, nil
}

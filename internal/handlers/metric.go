package handlers

import (
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/authorization"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MetricHandler handles evaluation metric API endpoints
type MetricHandler struct {
	repo    *repositories.MetricRepository
	domains *repositories.DomainRepository
	authz   *authorization.Engine
	logger  ectologger.Logger
}

// NewMetricHandler creates a new metric handler
func NewMetricHandler(
	repo *repositories.MetricRepository,
	domains *repositories.DomainRepository,
	authz *authorization.Engine,
	logger ectologger.Logger,
) *MetricHandler {
	return &MetricHandler{
		repo:    repo,
		domains: domains,
		authz:   authz,
		logger:  logger,
	}
}

// Register registers metric routes
func (h *MetricHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.DELETE("", h.Delete)
}

// List returns recent evaluation records for a config key
func (h *MetricHandler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MetricHandler.List")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	domainID, configKey, err := h.authorizeMetricAccess(c, models.ActionRead)
	if err != nil {
		return err
	}

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return BadRequest("invalid limit")
		}
	}

	records, err := h.repo.ListByConfig(ctx, domainID, configKey, limit)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list metric records")
		return err
	}
	return SuccessResponse(c, records)
}

// Delete purges the evaluation history of a config key
func (h *MetricHandler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "MetricHandler.Delete")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	domainID, configKey, err := h.authorizeMetricAccess(c, models.ActionDelete)
	if err != nil {
		return err
	}

	if err := h.repo.DeleteByConfig(ctx, domainID, configKey); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to delete metric records")
		return err
	}

	h.logger.WithContext(ctx).Infof("Purged metrics for config: %s", configKey)
	return NoContentResponse(c)
}

// authorizeMetricAccess parses the domain_id/key query parameters and runs
// the role check against the owning domain.
func (h *MetricHandler) authorizeMetricAccess(c echo.Context, action models.RoleAction) (uuid.UUID, string, error) {
	ctx := c.Request().Context()

	domainIDStr := c.QueryParam("domain_id")
	configKey := c.QueryParam("key")
	if domainIDStr == "" || configKey == "" {
		return uuid.Nil, "", BadRequest("domain_id and key query parameters are required")
	}
	domainID, err := uuid.Parse(domainIDStr)
	if err != nil {
		return uuid.Nil, "", BadRequest("invalid domain_id")
	}

	adminID, err := GetAdminID(c)
	if err != nil {
		return uuid.Nil, "", err
	}

	domain, err := h.domains.GetByID(ctx, domainID)
	if err != nil {
		return uuid.Nil, "", err
	}

	err = h.authz.Authorize(ctx, authorization.Request{
		AdminID:  adminID,
		DomainID: domainID,
		Action:   action,
		Router:   models.RouterAdmin,
	}, *domain)
	if err != nil {
		return uuid.Nil, "", err
	}
	return domainID, configKey, nil
}

package repositories

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const metricsTable = "metrics"

// MetricRepository handles database operations for evaluation metrics
type MetricRepository struct {
	*Repository
}

// NewMetricRepository creates a new metric repository
func NewMetricRepository(db database.DB, logger ectologger.Logger) *MetricRepository {
	return &MetricRepository{
		Repository: NewRepository(db, logger),
	}
}

// Insert persists one evaluation record
func (r *MetricRepository) Insert(ctx context.Context, record *models.MetricRecord) error {
	ctx, span := tracing.StartSpan(ctx, "MetricRepository.Insert")
	defer span.End()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	ib := database.NewInsertBuilder().
		InsertInto(metricsTable).
		Cols("id", "domain_id", "config_id", "config_key", "group_name", "component",
			"environment", "result", "reason", "message", "entries", "date").
		Values(record.ID, record.DomainID, record.ConfigID, record.ConfigKey, record.GroupName,
			record.Component, record.Environment, record.Result, record.Reason, record.Message,
			record.Entries, record.Date)

	query, args := ib.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": record.ConfigKey,
		}).Error("failed to insert metric record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert metric record")
	}
	return nil
}

// ListByConfig retrieves recent evaluation records for a config
func (r *MetricRepository) ListByConfig(ctx context.Context, domainID uuid.UUID, configKey string, limit int) ([]models.MetricRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "MetricRepository.ListByConfig")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	records := []models.MetricRecord{}
	query := `SELECT * FROM metrics WHERE domain_id = $1 AND config_key = $2 ORDER BY date DESC LIMIT $3`
	err := r.DB().SelectContext(ctx, &records, query, domainID, configKey, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list metric records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list metric records")
	}
	return records, nil
}

// DeleteByConfig purges the evaluation history of one config
func (r *MetricRepository) DeleteByConfig(ctx context.Context, domainID uuid.UUID, configKey string) error {
	ctx, span := tracing.StartSpan(ctx, "MetricRepository.DeleteByConfig")
	defer span.End()

	_, err := r.DB().ExecContext(ctx,
		`DELETE FROM metrics WHERE domain_id = $1 AND config_key = $2`, domainID, configKey)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete metric records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete metric records")
	}
	return nil
}

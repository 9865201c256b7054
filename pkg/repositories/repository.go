package repositories

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/database"
)

// NotFound returns a 404 HTTP error with a descriptive message
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// Unauthorized returns a 401 HTTP error
func Unauthorized(message string) error {
	return httperror.NewHTTPError(http.StatusUnauthorized, message)
}

// BadRequest returns a 400 HTTP error
func BadRequest(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Repository provides common database operations
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new base repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// DB returns the database instance
func (r *Repository) DB() database.DB {
	return r.db
}

// GetAdminID extracts and validates the acting admin id from context
func GetAdminID(ctx context.Context) (uuid.UUID, error) {
	adminIDStr := appctx.GetAdminID(ctx)
	if adminIDStr == "" {
		return uuid.Nil, httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	adminID, err := uuid.Parse(adminIDStr)
	if err != nil {
		return uuid.Nil, httperror.NewHTTPError(http.StatusUnauthorized, "invalid authentication token")
	}

	return adminID, nil
}

// bumpDomainVersion advances the domain's last_update token. Every mutation
// beneath a domain routes through this so clients can compare a cached
// version against the stored one to detect stale snapshots.
func (r *Repository) bumpDomainVersion(ctx context.Context, domainID uuid.UUID) error {
	query := `UPDATE domains SET last_update = last_update + 1, updated_at = NOW() WHERE id = $1`

	if tx := database.TxFromContext(ctx); tx != nil {
		_, err := tx.ExecContext(ctx, query, domainID)
		return err
	}
	_, err := r.db.ExecContext(ctx, query, domainID)
	return err
}

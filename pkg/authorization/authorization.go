// Package authorization implements the cascading role checks gating every
// administrative operation. Access is an AND across the admin's teams:
// each team must independently approve, and each team's identifier filter
// narrows the result of the previous one.
package authorization

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DomainStore is the persistence surface the engine needs for domains.
type DomainStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Domain, error)
}

// TeamStore is the persistence surface the engine needs for teams.
type TeamStore interface {
	ListByMember(ctx context.Context, domainID, adminID uuid.UUID) ([]models.Team, error)
}

// Request describes one authorization check.
type Request struct {
	AdminID  uuid.UUID
	DomainID uuid.UUID
	Action   models.RoleAction
	Router   models.RouterScope
	// Cascade lets roles scoped to narrower routers in the flag tree
	// satisfy the check, granting unfiltered access.
	Cascade bool
}

// Engine walks the team/role graph to decide access.
type Engine struct {
	domains DomainStore
	teams   TeamStore
	cache   *Cache
	logger  ectologger.Logger
}

// NewEngine creates an authorization engine. The cache may be nil; the
// engine produces identical results with or without it.
func NewEngine(domains DomainStore, teams TeamStore, cache *Cache, logger ectologger.Logger) *Engine {
	return &Engine{
		domains: domains,
		teams:   teams,
		cache:   cache,
		logger:  logger,
	}
}

// Authorize checks a single element. It returns the element unchanged when
// access is granted, a 404-style error when the domain is missing, and a
// 401-style error for every authorization failure.
func (e *Engine) Authorize(ctx context.Context, req Request, element models.Element) error {
	filtered, err := e.authorize(ctx, req, []models.Element{element})
	if err != nil {
		return err
	}
	if len(filtered) == 0 {
		return repositories.Unauthorized("could not match element to role")
	}
	return nil
}

// AuthorizeList checks a list of elements and returns the members every
// team's roles admit. An empty result after filtering is an authorization
// failure, not an empty success.
func (e *Engine) AuthorizeList(ctx context.Context, req Request, elements []models.Element) ([]models.Element, error) {
	filtered, err := e.authorize(ctx, req, elements)
	if err != nil {
		return nil, err
	}
	if len(filtered) == 0 {
		return nil, repositories.Unauthorized("could not match element to role")
	}
	return filtered, nil
}

func (e *Engine) authorize(ctx context.Context, req Request, elements []models.Element) ([]models.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "Authorization.Authorize")
	defer span.End()

	domain, err := e.domains.GetByID(ctx, req.DomainID)
	if err != nil {
		metrics.RecordAuthorization(string(req.Action), string(req.Router), "not_found")
		return nil, err
	}

	// Owners bypass the team walk entirely.
	if domain.Owner == req.AdminID {
		metrics.RecordAuthorization(string(req.Action), string(req.Router), "owner")
		return elements, nil
	}

	if allowed, message, ok := e.cachedVerdict(ctx, req); ok {
		if allowed {
			metrics.RecordAuthorization(string(req.Action), string(req.Router), "granted")
			return elements, nil
		}
		metrics.RecordAuthorization(string(req.Action), string(req.Router), "denied")
		return nil, repositories.Unauthorized(message)
	}

	teams, err := e.teams.ListByMember(ctx, req.DomainID, req.AdminID)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		e.storeVerdict(ctx, req, false, "no team allows this operation")
		metrics.RecordAuthorization(string(req.Action), string(req.Router), "denied")
		return nil, repositories.Unauthorized("no team allows this operation")
	}

	filtered := elements
	unfiltered := true
	for _, team := range teams {
		result, roleFiltered, err := e.applyTeam(req, team, filtered)
		if err != nil {
			e.storeVerdict(ctx, req, false, err.Error())
			metrics.RecordAuthorization(string(req.Action), string(req.Router), "denied")
			return nil, err
		}
		filtered = result
		unfiltered = unfiltered && !roleFiltered
	}

	// Only element-independent verdicts are safe to memoize; a filtered
	// grant depends on the elements that were passed in.
	if unfiltered {
		e.storeVerdict(ctx, req, true, "")
	}
	metrics.RecordAuthorization(string(req.Action), string(req.Router), "granted")
	return filtered, nil
}

// applyTeam produces one team's narrowing of the elements. The returned
// bool reports whether an identifier filter was applied.
func (e *Engine) applyTeam(req Request, team models.Team, elements []models.Element) ([]models.Element, bool, error) {
	if !team.Active {
		return nil, false, repositories.Unauthorized("team is not active")
	}

	role, filtered, err := e.findRole(req, team)
	if err != nil {
		return nil, false, err
	}
	if !filtered {
		return elements, false, nil
	}
	return applyFilter(*role, elements), true, nil
}

// findRole locates the team's winning role for the request. The returned
// bool reports whether its identifier filter must be applied; a broader
// cascade role grants unfiltered access.
func (e *Engine) findRole(req Request, team models.Team) (*models.Role, bool, error) {
	if !req.Cascade {
		for i := range team.Roles {
			role := &team.Roles[i]
			if (role.Router == req.Router || role.Router == models.RouterAll) && role.AllowsAction(req.Action) {
				return role, role.IdentifiedBy != "", nil
			}
		}
		return nil, false, repositories.Unauthorized("role not found for this operation")
	}

	covering := models.CascadeRouters(req.Router)
	var exact *models.Role
	broaderFound := false
	for i := range team.Roles {
		role := &team.Roles[i]
		if !role.AllowsAction(req.Action) {
			continue
		}
		if role.Router == req.Router {
			if exact == nil {
				exact = role
			}
			continue
		}
		for _, router := range covering {
			if role.Router == router {
				broaderFound = true
				break
			}
		}
	}

	if exact != nil {
		return exact, exact.IdentifiedBy != "", nil
	}
	if broaderFound {
		return nil, false, nil
	}
	return nil, false, repositories.Unauthorized("role not found for this operation")
}

func applyFilter(role models.Role, elements []models.Element) []models.Element {
	admitted := make([]models.Element, 0, len(elements))
	for _, element := range elements {
		if role.Matches(element) {
			admitted = append(admitted, element)
		}
	}
	return admitted
}

func (e *Engine) cachedVerdict(ctx context.Context, req Request) (bool, string, bool) {
	if e.cache == nil {
		return false, "", false
	}
	return e.cache.Get(ctx, req)
}

func (e *Engine) storeVerdict(ctx context.Context, req Request, allowed bool, denyMessage string) {
	if e.cache == nil {
		return
	}
	e.cache.Set(ctx, req, allowed, denyMessage)
}

package authorization

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/repositories"
)

type fakeDomainStore struct {
	domain *models.Domain
}

func (f *fakeDomainStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Domain, error) {
	if f.domain == nil || f.domain.ID != id {
		return nil, repositories.NotFound("Domain not found")
	}
	return f.domain, nil
}

type fakeTeamStore struct {
	teams []models.Team
}

func (f *fakeTeamStore) ListByMember(ctx context.Context, domainID, adminID uuid.UUID) ([]models.Team, error) {
	return f.teams, nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

func newTestEngine(domain *models.Domain, teams []models.Team) *Engine {
	return NewEngine(&fakeDomainStore{domain: domain}, &fakeTeamStore{teams: teams}, nil, testLogger())
}

func activeTeam(roles ...models.Role) models.Team {
	return models.Team{ID: uuid.New(), Name: "team", Active: true, Roles: roles}
}

func TestAuthorizeOwnerBypassesTeams(t *testing.T) {
	owner := uuid.New()
	domain := &models.Domain{ID: uuid.New(), Owner: owner}

	// No teams at all: only the owner bypass can grant.
	engine := newTestEngine(domain, nil)

	err := engine.Authorize(context.Background(), Request{
		AdminID:  owner,
		DomainID: domain.ID,
		Action:   models.ActionDelete,
		Router:   models.RouterDomain,
	}, *domain)
	assert.NoError(t, err)
}

func TestAuthorizeMissingDomainIsNotFound(t *testing.T) {
	engine := newTestEngine(nil, nil)

	err := engine.Authorize(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: uuid.New(),
		Action:   models.ActionRead,
		Router:   models.RouterDomain,
	}, models.Domain{})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestAuthorizeWithoutTeamsIsUnauthorized(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	engine := newTestEngine(domain, nil)

	err := engine.Authorize(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
	}, models.Config{Key: "F1"})

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, httperror.GetStatusCode(err))
	assert.Contains(t, err.Error(), "no team allows this operation")
}

func TestAuthorizeInactiveTeamDeniesEverything(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	team := activeTeam(models.Role{Action: models.ActionAll, Router: models.RouterAll, Active: true})
	team.Active = false
	engine := newTestEngine(domain, []models.Team{team})

	err := engine.Authorize(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
	}, models.Config{Key: "F1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "team is not active")
}

func TestAuthorizeExactRole(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	team := activeTeam(models.Role{Action: models.ActionUpdate, Router: models.RouterConfig, Active: true})
	engine := newTestEngine(domain, []models.Team{team})

	request := Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionUpdate,
		Router:   models.RouterConfig,
	}
	assert.NoError(t, engine.Authorize(context.Background(), request, models.Config{Key: "F1"}))

	request.Action = models.ActionDelete
	err := engine.Authorize(context.Background(), request, models.Config{Key: "F1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "role not found for this operation")
}

func TestAuthorizeAllRouterAndActionMatchEverything(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	team := activeTeam(models.Role{Action: models.ActionAll, Router: models.RouterAll, Active: true})
	engine := newTestEngine(domain, []models.Team{team})

	err := engine.Authorize(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionDelete,
		Router:   models.RouterStrategy,
	}, models.ConfigStrategy{Kind: models.StrategyValue})
	assert.NoError(t, err)
}

func TestAuthorizeInactiveRoleIsIgnored(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	team := activeTeam(models.Role{Action: models.ActionRead, Router: models.RouterConfig, Active: false})
	engine := newTestEngine(domain, []models.Team{team})

	err := engine.Authorize(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
	}, models.Config{Key: "F1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "role not found for this operation")
}

func TestAuthorizeIdentifierFiltering(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	team := activeTeam(models.Role{
		Action:       models.ActionUpdate,
		Router:       models.RouterConfig,
		Active:       true,
		IdentifiedBy: "key",
		Values:       []string{"F1", "F2"},
	})
	engine := newTestEngine(domain, []models.Team{team})

	request := Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionUpdate,
		Router:   models.RouterConfig,
	}

	assert.NoError(t, engine.Authorize(context.Background(), request, models.Config{Key: "F1"}))

	err := engine.Authorize(context.Background(), request, models.Config{Key: "F9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not match element to role")
}

func TestAuthorizeListFiltersElements(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	team := activeTeam(models.Role{
		Action:       models.ActionRead,
		Router:       models.RouterConfig,
		Active:       true,
		IdentifiedBy: "key",
		Values:       []string{"F1", "F3"},
	})
	engine := newTestEngine(domain, []models.Team{team})

	elements := []models.Element{
		models.Config{Key: "F1"},
		models.Config{Key: "F2"},
		models.Config{Key: "F3"},
	}

	filtered, err := engine.AuthorizeList(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
	}, elements)

	require.NoError(t, err)
	require.Len(t, filtered, 2)
	assert.Equal(t, "F1", filtered[0].ElementField("key"))
	assert.Equal(t, "F3", filtered[1].ElementField("key"))
}

func TestAuthorizeEveryTeamMustApprove(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	broad := activeTeam(models.Role{
		Action: models.ActionRead, Router: models.RouterConfig, Active: true,
		IdentifiedBy: "key", Values: []string{"F1", "F2"},
	})
	narrow := activeTeam(models.Role{
		Action: models.ActionRead, Router: models.RouterConfig, Active: true,
		IdentifiedBy: "key", Values: []string{"F2", "F3"},
	})
	engine := newTestEngine(domain, []models.Team{broad, narrow})

	elements := []models.Element{
		models.Config{Key: "F1"},
		models.Config{Key: "F2"},
		models.Config{Key: "F3"},
	}

	// Sequential narrowing: only F2 survives both teams.
	filtered, err := engine.AuthorizeList(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
	}, elements)

	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "F2", filtered[0].ElementField("key"))
}

func TestAuthorizeTeamWithoutRoleDeniesDespiteOtherTeam(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}
	granting := activeTeam(models.Role{Action: models.ActionAll, Router: models.RouterAll, Active: true})
	empty := activeTeam()
	engine := newTestEngine(domain, []models.Team{granting, empty})

	err := engine.Authorize(context.Background(), Request{
		AdminID:  uuid.New(),
		DomainID: domain.ID,
		Action:   models.ActionRead,
		Router:   models.RouterConfig,
	}, models.Config{Key: "F1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "role not found for this operation")
}

func TestAuthorizeCascade(t *testing.T) {
	domain := &models.Domain{ID: uuid.New(), Owner: uuid.New()}

	t.Run("role in the covering set grants unfiltered access", func(t *testing.T) {
		team := activeTeam(models.Role{
			Action: models.ActionRead, Router: models.RouterConfig, Active: true,
			IdentifiedBy: "name", Values: []string{"something-else"},
		})
		engine := newTestEngine(domain, []models.Team{team})

		// The covered role's filter does not apply at the broader tier.
		err := engine.Authorize(context.Background(), Request{
			AdminID:  uuid.New(),
			DomainID: domain.ID,
			Action:   models.ActionRead,
			Router:   models.RouterDomain,
			Cascade:  true,
		}, *domain)
		assert.NoError(t, err)
	})

	t.Run("exact role still applies its filter", func(t *testing.T) {
		team := activeTeam(
			models.Role{
				Action: models.ActionRead, Router: models.RouterGroup, Active: true,
				IdentifiedBy: "name", Values: []string{"release"},
			},
			models.Role{Action: models.ActionRead, Router: models.RouterConfig, Active: true},
		)
		engine := newTestEngine(domain, []models.Team{team})

		request := Request{
			AdminID:  uuid.New(),
			DomainID: domain.ID,
			Action:   models.ActionRead,
			Router:   models.RouterGroup,
			Cascade:  true,
		}

		assert.NoError(t, engine.Authorize(context.Background(), request, models.Group{Name: "release"}))

		err := engine.Authorize(context.Background(), request, models.Group{Name: "beta"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not match element to role")
	})

	t.Run("no role in the covering set denies", func(t *testing.T) {
		team := activeTeam(models.Role{Action: models.ActionRead, Router: models.RouterComponent, Active: true})
		engine := newTestEngine(domain, []models.Team{team})

		err := engine.Authorize(context.Background(), Request{
			AdminID:  uuid.New(),
			DomainID: domain.ID,
			Action:   models.ActionRead,
			Router:   models.RouterGroup,
			Cascade:  true,
		}, models.Group{Name: "release"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "role not found for this operation")
	})
}

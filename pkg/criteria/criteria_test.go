package criteria

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relay"
)

type fakeDomainStore struct{ domain *models.Domain }

func (f *fakeDomainStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Domain, error) {
	return f.domain, nil
}

type fakeGroupStore struct{ group *models.Group }

func (f *fakeGroupStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return f.group, nil
}

type fakeStrategyStore struct{ strategies []models.ConfigStrategy }

func (f *fakeStrategyStore) ListByConfig(ctx context.Context, configID uuid.UUID) ([]models.ConfigStrategy, error) {
	return f.strategies, nil
}

type fakeRelayer struct {
	prereqErr   error
	verdict     *relay.Verdict
	validateErr error

	mu       sync.Mutex
	notified bool
}

func (f *fakeRelayer) CheckPrerequisites(r *models.ConfigRelay, environment string) error {
	return f.prereqErr
}

func (f *fakeRelayer) Validate(ctx context.Context, r *models.ConfigRelay, entries []models.StrategyEntry, environment string) (*relay.Verdict, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.verdict, nil
}

func (f *fakeRelayer) Notify(ctx context.Context, r *models.ConfigRelay, entries []models.StrategyEntry, environment string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = true
}

func (f *fakeRelayer) wasNotified() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notified
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.MetricRecord
}

func (f *fakeRecorder) Record(record models.MetricRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

func activation(values models.ActivationMap) database.JSONB[models.ActivationMap] {
	return database.JSONB[models.ActivationMap]{Data: values}
}

type fixture struct {
	domain     *models.Domain
	group      *models.Group
	config     *models.Config
	strategies []models.ConfigStrategy
	relayer    Relayer
	recorder   Recorder
}

func newFixture() *fixture {
	domainID := uuid.New()
	groupID := uuid.New()
	return &fixture{
		domain: &models.Domain{
			ID:        domainID,
			Name:      "playground",
			Activated: activation(models.ActivationMap{models.DefaultEnvironment: true}),
		},
		group: &models.Group{
			ID:        groupID,
			DomainID:  domainID,
			Name:      "release",
			Activated: activation(models.ActivationMap{models.DefaultEnvironment: true}),
		},
		config: &models.Config{
			ID:        uuid.New(),
			DomainID:  domainID,
			GroupID:   groupID,
			Key:       "F1",
			Activated: activation(models.ActivationMap{models.DefaultEnvironment: true}),
		},
	}
}

func (f *fixture) engine(metricsEnabled bool) *Engine {
	return NewEngine(
		Config{MetricsEnabled: metricsEnabled},
		&fakeDomainStore{domain: f.domain},
		&fakeGroupStore{group: f.group},
		&fakeStrategyStore{strategies: f.strategies},
		f.relayer,
		f.recorder,
		testLogger(),
	)
}

func (f *fixture) resolve(t *testing.T, entries []models.StrategyEntry) *Result {
	t.Helper()
	result, err := f.engine(false).Resolve(context.Background(), Request{
		Config:      f.config,
		Environment: models.DefaultEnvironment,
		Entries:     entries,
		Component:   "web",
	})
	require.NoError(t, err)
	return result
}

func valueExistStrategy(f *fixture, operands []string, activated models.ActivationMap) models.ConfigStrategy {
	return models.ConfigStrategy{
		ID:        uuid.New(),
		ConfigID:  f.config.ID,
		DomainID:  f.domain.ID,
		Kind:      models.StrategyValue,
		Operation: models.OpExist,
		Values:    operands,
		Activated: activation(activated),
	}
}

func TestResolveEndToEnd(t *testing.T) {
	f := newFixture()
	f.strategies = []models.ConfigStrategy{
		valueExistStrategy(f, []string{"U1"}, models.ActivationMap{models.DefaultEnvironment: true}),
	}

	result := f.resolve(t, []models.StrategyEntry{{Strategy: models.StrategyValue, Input: "U1"}})
	assert.True(t, result.Result)
	assert.Equal(t, "Success", result.Reason)

	result = f.resolve(t, []models.StrategyEntry{{Strategy: models.StrategyValue, Input: "U2"}})
	assert.False(t, result.Result)
	assert.Equal(t, "Strategy 'VALUE' does not agree", result.Reason)

	result = f.resolve(t, nil)
	assert.False(t, result.Result)
	assert.Equal(t, "Strategy 'VALUE' did not receive any input", result.Reason)
}

func TestResolveActivationPrecedence(t *testing.T) {
	t.Run("config disabled wins over disabled group and domain", func(t *testing.T) {
		f := newFixture()
		f.config.Activated = activation(models.ActivationMap{models.DefaultEnvironment: false})
		f.group.Activated = activation(models.ActivationMap{models.DefaultEnvironment: false})
		f.domain.Activated = activation(models.ActivationMap{models.DefaultEnvironment: false})

		result := f.resolve(t, nil)
		assert.False(t, result.Result)
		assert.Equal(t, "Config disabled", result.Reason)
	})

	t.Run("group disabled", func(t *testing.T) {
		f := newFixture()
		f.group.Activated = activation(models.ActivationMap{models.DefaultEnvironment: false})

		result := f.resolve(t, nil)
		assert.Equal(t, "Group disabled", result.Reason)
	})

	t.Run("domain disabled", func(t *testing.T) {
		f := newFixture()
		f.domain.Activated = activation(models.ActivationMap{models.DefaultEnvironment: false})

		result := f.resolve(t, nil)
		assert.Equal(t, "Domain disabled", result.Reason)
	})

	t.Run("environment falls back to default when absent", func(t *testing.T) {
		f := newFixture()

		result, err := f.engine(false).Resolve(context.Background(), Request{
			Config:      f.config,
			Environment: "staging",
		})
		require.NoError(t, err)
		assert.True(t, result.Result)
	})

	t.Run("explicit environment value overrides default", func(t *testing.T) {
		f := newFixture()
		f.config.Activated = activation(models.ActivationMap{
			models.DefaultEnvironment: true,
			"staging":                 false,
		})

		result, err := f.engine(false).Resolve(context.Background(), Request{
			Config:      f.config,
			Environment: "staging",
		})
		require.NoError(t, err)
		assert.False(t, result.Result)
		assert.Equal(t, "Config disabled", result.Reason)
	})
}

func TestResolveSkipsStrategiesForOtherEnvironments(t *testing.T) {
	f := newFixture()
	f.strategies = []models.ConfigStrategy{
		valueExistStrategy(f, []string{"U1"}, models.ActivationMap{"staging": true}),
	}

	// The strategy is scoped to staging; evaluating default ignores it
	// even though no entry was supplied.
	result := f.resolve(t, nil)
	assert.True(t, result.Result)
	assert.Equal(t, "Success", result.Reason)
}

func TestResolveSkipsDeactivatedStrategies(t *testing.T) {
	f := newFixture()
	f.strategies = []models.ConfigStrategy{
		valueExistStrategy(f, []string{"U1"}, models.ActivationMap{models.DefaultEnvironment: false}),
	}

	result := f.resolve(t, nil)
	assert.True(t, result.Result)
}

func TestResolveReportsMalformedInputDistinctly(t *testing.T) {
	f := newFixture()
	f.strategies = []models.ConfigStrategy{{
		ID:        uuid.New(),
		ConfigID:  f.config.ID,
		DomainID:  f.domain.ID,
		Kind:      models.StrategyPayload,
		Operation: models.OpHasOne,
		Values:    []string{"login.status"},
		Activated: activation(models.ActivationMap{models.DefaultEnvironment: true}),
	}}

	result := f.resolve(t, []models.StrategyEntry{{Strategy: models.StrategyPayload, Input: "not-json"}})
	assert.False(t, result.Result)
	assert.Equal(t, "Strategy 'PAYLOAD' could not be evaluated", result.Reason)
	assert.NotEmpty(t, result.Message)
}

func relayConfig(relayType models.RelayType) *models.ConfigRelay {
	return &models.ConfigRelay{
		Type:      relayType,
		Method:    models.RelayPost,
		Activated: models.ActivationMap{models.DefaultEnvironment: true},
		Endpoint:  map[string]string{models.DefaultEnvironment: "https://relay.example.com/check"},
		Verified:  map[string]bool{models.DefaultEnvironment: true},
	}
}

func TestResolveValidationRelay(t *testing.T) {
	t.Run("verdict replaces a passing local result", func(t *testing.T) {
		f := newFixture()
		f.config.Relay = database.JSONB[*models.ConfigRelay]{Data: relayConfig(models.RelayValidation)}
		f.relayer = &fakeRelayer{verdict: &relay.Verdict{
			Result:   false,
			Message:  "user not eligible",
			Metadata: map[string]any{"tier": "free"},
		}}

		result := f.resolve(t, nil)
		assert.False(t, result.Result)
		assert.Equal(t, "Relay does not agree", result.Reason)
		assert.Equal(t, "user not eligible", result.Message)
		assert.Equal(t, "free", result.Metadata["tier"])
	})

	t.Run("positive verdict keeps Success", func(t *testing.T) {
		f := newFixture()
		f.config.Relay = database.JSONB[*models.ConfigRelay]{Data: relayConfig(models.RelayValidation)}
		f.relayer = &fakeRelayer{verdict: &relay.Verdict{Result: true}}

		result := f.resolve(t, nil)
		assert.True(t, result.Result)
		assert.Equal(t, "Success", result.Reason)
	})

	t.Run("unreachable relay downgrades the result", func(t *testing.T) {
		f := newFixture()
		f.config.Relay = database.JSONB[*models.ConfigRelay]{Data: relayConfig(models.RelayValidation)}
		f.relayer = &fakeRelayer{validateErr: errors.New("POST https://relay.example.com/check: connection refused")}

		result := f.resolve(t, nil)
		assert.False(t, result.Result)
		assert.Contains(t, result.Reason, "Relay service could not be reached")
		assert.Contains(t, result.Reason, "connection refused")
	})

	t.Run("failed prerequisites downgrade the result", func(t *testing.T) {
		f := newFixture()
		f.config.Relay = database.JSONB[*models.ConfigRelay]{Data: relayConfig(models.RelayValidation)}
		f.relayer = &fakeRelayer{prereqErr: errors.New("relay endpoint https://relay.example.com/check is not verified")}

		result := f.resolve(t, nil)
		assert.False(t, result.Result)
		assert.Contains(t, result.Reason, "Relay service could not be reached")
	})

	t.Run("inactive relay is skipped", func(t *testing.T) {
		f := newFixture()
		cfg := relayConfig(models.RelayValidation)
		cfg.Activated = models.ActivationMap{models.DefaultEnvironment: false}
		f.config.Relay = database.JSONB[*models.ConfigRelay]{Data: cfg}
		f.relayer = &fakeRelayer{validateErr: errors.New("should not be called")}

		result := f.resolve(t, nil)
		assert.True(t, result.Result)
		assert.Equal(t, "Success", result.Reason)
	})
}

func TestResolveNotificationRelay(t *testing.T) {
	f := newFixture()
	f.config.Relay = database.JSONB[*models.ConfigRelay]{Data: relayConfig(models.RelayNotification)}
	relayer := &fakeRelayer{}
	f.relayer = relayer

	result := f.resolve(t, nil)
	assert.True(t, result.Result)
	assert.Equal(t, "Success", result.Reason)

	assert.Eventually(t, relayer.wasNotified, time.Second, 10*time.Millisecond)
}

func TestResolveMetricEmission(t *testing.T) {
	resolve := func(t *testing.T, f *fixture, metricsEnabled bool, req Request) {
		t.Helper()
		_, err := f.engine(metricsEnabled).Resolve(context.Background(), req)
		require.NoError(t, err)
	}

	t.Run("records on both outcomes", func(t *testing.T) {
		f := newFixture()
		recorder := &fakeRecorder{}
		f.recorder = recorder

		resolve(t, f, true, Request{Config: f.config, Environment: models.DefaultEnvironment, Component: "web"})

		f.config.Activated = activation(models.ActivationMap{models.DefaultEnvironment: false})
		resolve(t, f, true, Request{Config: f.config, Environment: models.DefaultEnvironment, Component: "web"})

		require.Equal(t, 2, recorder.count())
		assert.Equal(t, "Success", recorder.records[0].Reason)
		assert.Equal(t, "release", recorder.records[0].GroupName)
		assert.Equal(t, "Config disabled", recorder.records[1].Reason)
	})

	t.Run("bypass suppresses the record", func(t *testing.T) {
		f := newFixture()
		recorder := &fakeRecorder{}
		f.recorder = recorder

		resolve(t, f, true, Request{Config: f.config, Environment: models.DefaultEnvironment, BypassMetric: true})
		assert.Equal(t, 0, recorder.count())
	})

	t.Run("config can disable metrics per environment", func(t *testing.T) {
		f := newFixture()
		recorder := &fakeRecorder{}
		f.recorder = recorder
		f.config.DisableMetrics = activation(models.ActivationMap{models.DefaultEnvironment: true})

		resolve(t, f, true, Request{Config: f.config, Environment: models.DefaultEnvironment})
		assert.Equal(t, 0, recorder.count())
	})

	t.Run("global switch suppresses all records", func(t *testing.T) {
		f := newFixture()
		recorder := &fakeRecorder{}
		f.recorder = recorder

		resolve(t, f, false, Request{Config: f.config, Environment: models.DefaultEnvironment})
		assert.Equal(t, 0, recorder.count())
	})
}

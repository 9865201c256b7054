package startup

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	failures  int

	events *[]string
}

func (d *fakeDependency) GetName() string     { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(ctx context.Context) error {
	if d.failures > 0 {
		d.failures--
		return errors.New(d.name + " unavailable")
	}
	*d.events = append(*d.events, "start:"+d.name)
	return nil
}

func (d *fakeDependency) Stop(ctx context.Context) error {
	*d.events = append(*d.events, "stop:"+d.name)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

func TestStartRespectsDependencyOrder(t *testing.T) {
	var events []string
	db := &fakeDependency{name: "database", events: &events}
	cache := &fakeDependency{name: "cache", dependsOn: []string{"database"}, events: &events}
	server := &fakeDependency{name: "server", dependsOn: []string{"cache"}, events: &events}

	s := NewStartup(testLogger(), 1)
	// Registered out of order on purpose; DependsOn drives the walk.
	s.AddDependency(server)
	s.AddDependency(db)
	s.AddDependency(cache)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:cache", "start:server"}, events)
}

func TestStartRetriesFailedDependencies(t *testing.T) {
	var events []string
	flaky := &fakeDependency{name: "database", failures: 2, events: &events}

	s := NewStartup(testLogger(), 5)
	s.AddDependency(flaky)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database"}, events)
}

func TestStartGivesUpAfterMaxAttempts(t *testing.T) {
	var events []string
	broken := &fakeDependency{name: "database", failures: 10, events: &events}

	s := NewStartup(testLogger(), 2)
	s.AddDependency(broken)

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestStopReversesRegistrationOrder(t *testing.T) {
	var events []string
	db := &fakeDependency{name: "database", events: &events}
	server := &fakeDependency{name: "server", events: &events}

	s := NewStartup(testLogger(), 1)
	s.AddDependency(db)
	s.AddDependency(server)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"start:database", "start:server", "stop:server", "stop:database"}, events)
}

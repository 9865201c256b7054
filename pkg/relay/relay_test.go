package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {})
}

func testRelay(relayType models.RelayType, method models.RelayMethod, endpoint string) *models.ConfigRelay {
	return &models.ConfigRelay{
		Type:      relayType,
		Method:    method,
		Activated: models.ActivationMap{models.DefaultEnvironment: true},
		Endpoint:  map[string]string{models.DefaultEnvironment: endpoint},
		Verified:  map[string]bool{models.DefaultEnvironment: true},
	}
}

func TestValidatePostSendsEntriesAsBody(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(Verdict{Result: true, Message: "ok"})
	}))
	defer server.Close()

	service := NewService(Config{BypassHTTPS: true}, testLogger())
	relay := testRelay(models.RelayValidation, models.RelayPost, server.URL)

	verdict, err := service.Validate(context.Background(), relay, []models.StrategyEntry{
		{Strategy: models.StrategyValue, Input: "USER_1"},
	}, models.DefaultEnvironment)

	require.NoError(t, err)
	assert.True(t, verdict.Result)
	assert.Equal(t, "ok", verdict.Message)
	assert.Equal(t, "USER_1", received["value"])
	assert.Equal(t, models.DefaultEnvironment, received["environment"])
}

func TestValidateGetSendsEntriesAsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "10.0.0.1", r.URL.Query().Get("network"))
		_ = json.NewEncoder(w).Encode(Verdict{Result: false, Message: "denied"})
	}))
	defer server.Close()

	service := NewService(Config{BypassHTTPS: true}, testLogger())
	relay := testRelay(models.RelayValidation, models.RelayGet, server.URL)

	verdict, err := service.Validate(context.Background(), relay, []models.StrategyEntry{
		{Strategy: models.StrategyNetwork, Input: "10.0.0.1"},
	}, models.DefaultEnvironment)

	require.NoError(t, err)
	assert.False(t, verdict.Result)
}

func TestValidateAuthorizationHeader(t *testing.T) {
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(Verdict{Result: true})
	}))
	defer server.Close()

	service := NewService(Config{BypassHTTPS: true}, testLogger())
	relay := testRelay(models.RelayValidation, models.RelayPost, server.URL)
	relay.AuthPrefix = "Token"
	relay.AuthToken = map[string]string{models.DefaultEnvironment: "secret"}

	_, err := service.Validate(context.Background(), relay, nil, models.DefaultEnvironment)
	require.NoError(t, err)
	assert.Equal(t, "Token secret", header)
}

func TestValidateErrorNamesEndpointAndMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewService(Config{BypassHTTPS: true}, testLogger())
	relay := testRelay(models.RelayValidation, models.RelayPost, server.URL)

	_, err := service.Validate(context.Background(), relay, nil, models.DefaultEnvironment)
	require.Error(t, err)
	assert.Contains(t, err.Error(), server.URL)
	assert.Contains(t, err.Error(), "POST")
}

func TestCheckPrerequisites(t *testing.T) {
	service := NewService(Config{}, testLogger())

	t.Run("unverified endpoint", func(t *testing.T) {
		relay := testRelay(models.RelayValidation, models.RelayPost, "https://relay.example.com")
		relay.Verified[models.DefaultEnvironment] = false
		assert.Error(t, service.CheckPrerequisites(relay, models.DefaultEnvironment))
	})

	t.Run("plain http rejected", func(t *testing.T) {
		relay := testRelay(models.RelayValidation, models.RelayPost, "http://relay.example.com")
		assert.Error(t, service.CheckPrerequisites(relay, models.DefaultEnvironment))
	})

	t.Run("plain http allowed with bypass", func(t *testing.T) {
		bypassing := NewService(Config{BypassHTTPS: true}, testLogger())
		relay := testRelay(models.RelayValidation, models.RelayPost, "http://relay.example.com")
		assert.NoError(t, bypassing.CheckPrerequisites(relay, models.DefaultEnvironment))
	})

	t.Run("missing environment endpoint", func(t *testing.T) {
		relay := testRelay(models.RelayValidation, models.RelayPost, "https://relay.example.com")
		assert.Error(t, service.CheckPrerequisites(relay, "staging"))
	})

	t.Run("verified https endpoint", func(t *testing.T) {
		relay := testRelay(models.RelayValidation, models.RelayPost, "https://relay.example.com")
		assert.NoError(t, service.CheckPrerequisites(relay, models.DefaultEnvironment))
	})
}

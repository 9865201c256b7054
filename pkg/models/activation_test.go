package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsActivatedFallsBackToDefault(t *testing.T) {
	m := ActivationMap{DefaultEnvironment: true}

	assert.True(t, m.IsActivated(DefaultEnvironment))
	assert.True(t, m.IsActivated("staging"), "missing entry resolves via default")

	m["staging"] = false
	assert.False(t, m.IsActivated("staging"), "explicit entry beats default")
	assert.True(t, m.IsActivated("production"))
}

func TestIsActivatedWithoutDefaultEntry(t *testing.T) {
	m := ActivationMap{"staging": true}

	assert.True(t, m.IsActivated("staging"))
	assert.False(t, m.IsActivated("production"), "no entry and no default means off")
}

func TestIsActivatedExplicitly(t *testing.T) {
	m := ActivationMap{DefaultEnvironment: true, "staging": true, "qa": false}

	assert.True(t, m.IsActivatedExplicitly("staging"))
	assert.False(t, m.IsActivatedExplicitly("qa"))
	assert.False(t, m.IsActivatedExplicitly("production"), "default never leaks into explicit checks")
}

func TestHas(t *testing.T) {
	m := ActivationMap{"qa": false}

	assert.True(t, m.Has("qa"))
	assert.False(t, m.Has("staging"))
}

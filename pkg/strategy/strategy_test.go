package strategy

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestEvaluateValue(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"exist match", models.OpExist, []string{"USER_1", "USER_2"}, "USER_1", true},
		{"exist miss", models.OpExist, []string{"USER_1", "USER_2"}, "USER_3", false},
		{"not exist", models.OpNotExist, []string{"USER_1"}, "USER_3", true},
		{"equal single operand", models.OpEqual, []string{"USER_1"}, "USER_1", true},
		{"equal multiple operands never matches", models.OpEqual, []string{"USER_1", "USER_1"}, "USER_1", false},
		{"not equal", models.OpNotEqual, []string{"USER_1"}, "USER_2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyValue, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluateNetwork(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"inside cidr block", models.OpExist, []string{"10.0.0.0/24"}, "10.0.0.3", true},
		{"outside cidr block", models.OpExist, []string{"10.0.0.0/24"}, "10.0.1.3", false},
		{"any of several blocks", models.OpExist, []string{"192.168.0.0/16", "10.0.0.0/24"}, "192.168.4.1", true},
		{"plain ip operand", models.OpExist, []string{"10.0.0.5"}, "10.0.0.5", true},
		{"not exist", models.OpNotExist, []string{"10.0.0.0/24"}, "10.0.1.3", true},
		{"unparseable input does not agree", models.OpExist, []string{"10.0.0.0/24"}, "not-an-ip", false},
		{"unparseable operand is skipped", models.OpExist, []string{"garbage", "10.0.0.0/24"}, "10.0.0.3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyNetwork, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluateNumeric(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"greater", models.OpGreater, []string{"10"}, "11", true},
		{"greater is strict", models.OpGreater, []string{"10"}, "10", false},
		{"lesser", models.OpLesser, []string{"10"}, "9.5", true},
		{"between inclusive low", models.OpBetween, []string{"1", "10"}, "1", true},
		{"between inclusive high", models.OpBetween, []string{"1", "10"}, "10", true},
		{"between sorts operands", models.OpBetween, []string{"10", "1"}, "5", true},
		{"equal", models.OpEqual, []string{"1.5"}, "1.50", true},
		{"exist", models.OpExist, []string{"1", "2", "3"}, "2", true},
		{"not exist", models.OpNotExist, []string{"1", "2"}, "4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyNumeric, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("non-numeric input is an evaluation error", func(t *testing.T) {
		_, err := Evaluate(models.StrategyNumeric, models.OpGreater, []string{"10"}, "ten")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestEvaluateDate(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"greater", models.OpGreater, []string{"2019-12-01"}, "2019-12-02", true},
		{"greater with time component", models.OpGreater, []string{"2019-12-01 13:00"}, "2019-12-01 14:00", true},
		{"lesser", models.OpLesser, []string{"2019-12-01"}, "2019-11-30", true},
		{"between", models.OpBetween, []string{"2019-12-01", "2019-12-31"}, "2019-12-15", true},
		{"between inclusive bounds", models.OpBetween, []string{"2019-12-01", "2019-12-31"}, "2019-12-01", true},
		{"between outside", models.OpBetween, []string{"2019-12-01", "2019-12-31"}, "2020-01-01", false},
		{"between unsorted operands", models.OpBetween, []string{"2019-12-31", "2019-12-01"}, "2019-12-15", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyDate, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("unparseable input is an evaluation error", func(t *testing.T) {
		_, err := Evaluate(models.StrategyDate, models.OpGreater, []string{"2019-12-01"}, "yesterday")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestEvaluateTime(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"greater", models.OpGreater, []string{"08:00"}, "09:30", true},
		{"lesser", models.OpLesser, []string{"08:00"}, "07:59", true},
		{"between", models.OpBetween, []string{"08:00", "17:00"}, "12:00", true},
		{"between inclusive", models.OpBetween, []string{"08:00", "17:00"}, "17:00", true},
		{"outside window", models.OpBetween, []string{"08:00", "17:00"}, "18:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyTime, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluateRegex(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"exist match", models.OpExist, []string{"\\bUSER_[0-9]{1,2}\\b"}, "USER_1", true},
		{"exist miss", models.OpExist, []string{"\\bUSER_[0-9]{1,2}\\b"}, "USER_123", false},
		{"not exist", models.OpNotExist, []string{"^admin"}, "user-7", true},
		{"equal is anchored", models.OpEqual, []string{"USER_[0-9]+"}, "USER_12", true},
		{"equal rejects partial match", models.OpEqual, []string{"USER_[0-9]+"}, "xUSER_12x", false},
		{"bad pattern never matches", models.OpExist, []string{"("}, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyRegex, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluatePayload(t *testing.T) {
	tests := []struct {
		name      string
		operation models.StrategyOperation
		operands  []string
		input     string
		expected  bool
	}{
		{"has one present", models.OpHasOne, []string{"login.status"}, `{"login":{"status":"activated"}}`, true},
		{"has one missing", models.OpHasOne, []string{"login.status"}, `{"login":{}}`, false},
		{"presence counts even when null", models.OpHasOne, []string{"login.status"}, `{"login":{"status":null}}`, true},
		{"has all", models.OpHasAll, []string{"login.status", "login.user"}, `{"login":{"status":"ok","user":"u1"}}`, true},
		{"has all missing one", models.OpHasAll, []string{"login.status", "login.user"}, `{"login":{"status":"ok"}}`, false},
		{"array traversal", models.OpHasOne, []string{"orders.id"}, `{"orders":[{"sku":"a"},{"id":9}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(models.StrategyPayload, tt.operation, tt.operands, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("non-json input is an evaluation error", func(t *testing.T) {
		_, err := Evaluate(models.StrategyPayload, models.OpHasOne, []string{"login"}, "not json")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestEvaluateRejectsUnsupportedPairs(t *testing.T) {
	_, err := Evaluate(models.StrategyNetwork, models.OpBetween, []string{"10.0.0.0/24"}, "10.0.0.1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidInput))

	_, err = Evaluate("UNKNOWN", models.OpExist, nil, "x")
	require.Error(t, err)
}

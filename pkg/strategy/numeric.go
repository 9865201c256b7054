package strategy

import (
	"strconv"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// NumericEvaluator parses operands and input as numbers and applies the
// comparison family plus set membership.
type NumericEvaluator struct{}

func (NumericEvaluator) Kind() models.StrategyKind {
	return models.StrategyNumeric
}

func (NumericEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	value, err := parseNumber(input)
	if err != nil {
		return false, NewInvalidInputError(models.StrategyNumeric, "input %q is not a number", input)
	}

	switch operation {
	case models.OpExist:
		return containsNumber(operands, value), nil
	case models.OpNotExist:
		return !containsNumber(operands, value), nil
	case models.OpEqual:
		if len(operands) != 1 {
			return false, nil
		}
		operand, err := parseNumber(operands[0])
		return err == nil && operand == value, nil
	case models.OpNotEqual:
		if len(operands) != 1 {
			return true, nil
		}
		operand, err := parseNumber(operands[0])
		return err != nil || operand != value, nil
	case models.OpGreater:
		operand, err := parseNumber(operands[0])
		if err != nil {
			return false, NewInvalidInputError(models.StrategyNumeric, "operand %q is not a number", operands[0])
		}
		return value > operand, nil
	case models.OpLesser:
		operand, err := parseNumber(operands[0])
		if err != nil {
			return false, NewInvalidInputError(models.StrategyNumeric, "operand %q is not a number", operands[0])
		}
		return value < operand, nil
	case models.OpBetween:
		if len(operands) < 2 {
			return false, nil
		}
		low, lowErr := parseNumber(operands[0])
		high, highErr := parseNumber(operands[1])
		if lowErr != nil || highErr != nil {
			return false, NewInvalidInputError(models.StrategyNumeric, "operands %q are not numbers", operands)
		}
		if low > high {
			low, high = high, low
		}
		return value >= low && value <= high, nil
	}
	return false, nil
}

func parseNumber(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

func containsNumber(operands []string, target float64) bool {
	for _, operand := range operands {
		if value, err := parseNumber(operand); err == nil && value == target {
			return true
		}
	}
	return false
}

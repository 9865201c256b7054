package strategy

import "github.com/Ramsey-B/fern/pkg/models"

// ValueEvaluator compares the input against a whitelist of exact values.
type ValueEvaluator struct{}

func (ValueEvaluator) Kind() models.StrategyKind {
	return models.StrategyValue
}

func (ValueEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	switch operation {
	case models.OpExist:
		return containsString(operands, input), nil
	case models.OpNotExist:
		return !containsString(operands, input), nil
	case models.OpEqual:
		return len(operands) == 1 && operands[0] == input, nil
	case models.OpNotEqual:
		return !(len(operands) == 1 && operands[0] == input), nil
	}
	return false, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

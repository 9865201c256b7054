package strategy

import (
	"regexp"

	"github.com/Ramsey-B/fern/pkg/models"
)

// RegexEvaluator matches input against operand patterns. Patterns that do
// not compile never match. EQUAL requires a full anchored match against a
// single operand pattern.
type RegexEvaluator struct{}

func (RegexEvaluator) Kind() models.StrategyKind {
	return models.StrategyRegex
}

func (RegexEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	switch operation {
	case models.OpExist:
		return matchAny(operands, input), nil
	case models.OpNotExist:
		return !matchAny(operands, input), nil
	case models.OpEqual:
		return len(operands) == 1 && matchFull(operands[0], input), nil
	case models.OpNotEqual:
		return !(len(operands) == 1 && matchFull(operands[0], input)), nil
	}
	return false, nil
}

func matchAny(patterns []string, input string) bool {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

func matchFull(pattern, input string) bool {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return false
	}
	return re.MatchString(input)
}

package strategy

import (
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// dateLayouts are tried in order when parsing date operands and input.
// Dates without a time component compare as midnight.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DateEvaluator compares date-time input against date-time operands.
type DateEvaluator struct{}

func (DateEvaluator) Kind() models.StrategyKind {
	return models.StrategyDate
}

func (DateEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	value, err := parseDate(input)
	if err != nil {
		return false, NewInvalidInputError(models.StrategyDate, "input %q is not a date", input)
	}
	return compareOrdered(models.StrategyDate, operation, operands, value, parseDate, func(a, b time.Time) int {
		return a.Compare(b)
	})
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	var err error
	for _, layout := range dateLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, err
}

// compareOrdered applies the GREATER/LESSER/BETWEEN family shared by the
// date and time kinds. BETWEEN is inclusive and sorts its two operands
// ascending before comparing.
func compareOrdered[T any](kind models.StrategyKind, operation models.StrategyOperation, operands []string, value T, parse func(string) (T, error), compare func(a, b T) int) (bool, error) {
	switch operation {
	case models.OpGreater:
		operand, err := parse(operands[0])
		if err != nil {
			return false, NewInvalidInputError(kind, "operand %q could not be parsed", operands[0])
		}
		return compare(value, operand) > 0, nil
	case models.OpLesser:
		operand, err := parse(operands[0])
		if err != nil {
			return false, NewInvalidInputError(kind, "operand %q could not be parsed", operands[0])
		}
		return compare(value, operand) < 0, nil
	case models.OpBetween:
		if len(operands) < 2 {
			return false, nil
		}
		low, lowErr := parse(operands[0])
		high, highErr := parse(operands[1])
		if lowErr != nil || highErr != nil {
			return false, NewInvalidInputError(kind, "operands %q could not be parsed", operands)
		}
		if compare(low, high) > 0 {
			low, high = high, low
		}
		return compare(value, low) >= 0 && compare(value, high) <= 0, nil
	}
	return false, nil
}

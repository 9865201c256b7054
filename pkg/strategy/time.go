package strategy

import (
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// TimeEvaluator compares HH:mm input against HH:mm operands within a
// single day, independent of date.
type TimeEvaluator struct{}

func (TimeEvaluator) Kind() models.StrategyKind {
	return models.StrategyTime
}

func (TimeEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	value, err := parseClock(input)
	if err != nil {
		return false, NewInvalidInputError(models.StrategyTime, "input %q is not an HH:mm time", input)
	}
	return compareOrdered(models.StrategyTime, operation, operands, value, parseClock, func(a, b int) int {
		return a - b
	})
}

// parseClock converts HH:mm to minutes since midnight.
func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

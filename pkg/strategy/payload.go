package strategy

import (
	"encoding/json"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// PayloadEvaluator inspects a JSON object input for the presence of
// dot-separated key paths. Non-JSON input is an evaluation error, not a
// disagreement.
type PayloadEvaluator struct{}

func (PayloadEvaluator) Kind() models.StrategyKind {
	return models.StrategyPayload
}

func (PayloadEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	var payload any
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		return false, NewInvalidInputError(models.StrategyPayload, "input is not valid JSON")
	}

	switch operation {
	case models.OpHasOne:
		for _, path := range operands {
			if hasPath(payload, strings.Split(path, ".")) {
				return true, nil
			}
		}
		return false, nil
	case models.OpHasAll:
		for _, path := range operands {
			if !hasPath(payload, strings.Split(path, ".")) {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}

// hasPath walks the payload one segment at a time. Presence of the key is
// what counts; the value it holds is irrelevant. Arrays are searched
// element by element.
func hasPath(node any, segments []string) bool {
	if len(segments) == 0 {
		return true
	}
	switch typed := node.(type) {
	case map[string]any:
		child, ok := typed[segments[0]]
		if !ok {
			return false
		}
		return hasPath(child, segments[1:])
	case []any:
		for _, element := range typed {
			if hasPath(element, segments) {
				return true
			}
		}
	}
	return false
}

// Package strategy implements the operator library behind config
// strategies. Evaluation is pure: one (operation, operands, input) triple
// in, one boolean out, no I/O.
package strategy

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ErrInvalidInput marks input that cannot be evaluated at all, as opposed
// to input that evaluates to "does not agree". Callers surface the two
// differently.
var ErrInvalidInput = errors.New("strategy input could not be evaluated")

// NewInvalidInputError wraps ErrInvalidInput with a kind-specific message.
func NewInvalidInputError(kind models.StrategyKind, format string, args ...any) error {
	return errors.Wrapf(ErrInvalidInput, "%s: %s", kind, fmt.Sprintf(format, args...))
}

// Evaluator evaluates all operations of a single strategy kind.
type Evaluator interface {
	Kind() models.StrategyKind
	Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error)
}

var evaluators = map[models.StrategyKind]Evaluator{}

func register(e Evaluator) {
	evaluators[e.Kind()] = e
}

func init() {
	register(ValueEvaluator{})
	register(NetworkEvaluator{})
	register(NumericEvaluator{})
	register(DateEvaluator{})
	register(TimeEvaluator{})
	register(RegexEvaluator{})
	register(PayloadEvaluator{})
}

// Evaluate dispatches to the evaluator for the kind. An unknown kind or an
// operation outside the kind's declared set is a configuration error.
func Evaluate(kind models.StrategyKind, operation models.StrategyOperation, operands []string, input string) (bool, error) {
	evaluator, ok := evaluators[kind]
	if !ok {
		return false, errors.Errorf("unknown strategy kind %q", kind)
	}
	if !models.ValidOperation(kind, operation) {
		return false, errors.Errorf("operation %q is not supported by strategy %q", operation, kind)
	}
	return evaluator.Evaluate(operation, operands, input)
}

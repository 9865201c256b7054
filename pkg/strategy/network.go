package strategy

import (
	"net"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// NetworkEvaluator tests an IPv4 input against CIDR block operands. Plain
// IP operands are treated as exact matches. Unparseable input does not
// agree rather than erroring.
type NetworkEvaluator struct{}

func (NetworkEvaluator) Kind() models.StrategyKind {
	return models.StrategyNetwork
}

func (NetworkEvaluator) Evaluate(operation models.StrategyOperation, operands []string, input string) (bool, error) {
	found := matchNetwork(operands, input)
	switch operation {
	case models.OpExist:
		return found, nil
	case models.OpNotExist:
		return !found, nil
	}
	return false, nil
}

func matchNetwork(operands []string, input string) bool {
	ip := net.ParseIP(strings.TrimSpace(input))
	if ip == nil {
		return false
	}
	for _, operand := range operands {
		if strings.Contains(operand, "/") {
			_, block, err := net.ParseCIDR(operand)
			if err != nil {
				continue
			}
			if block.Contains(ip) {
				return true
			}
			continue
		}
		if candidate := net.ParseIP(operand); candidate != nil && candidate.Equal(ip) {
			return true
		}
	}
	return false
}

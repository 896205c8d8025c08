package detection

import (
	"encoding/json"
	"slices"
	"strings"
)

// approvalPolicy is the set of engine ids a monitor holds for human review.
type approvalPolicy []string

// parseApprovalPolicy decodes a monitor's engines_require_approval column.
// A nil or blank value is an empty policy.
func parseApprovalPolicy(raw *string) (approvalPolicy, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	var engines []string
	if err := json.Unmarshal([]byte(*raw), &engines); err != nil {
		return nil, err
	}
	return engines, nil
}

func (p approvalPolicy) requires(engineID string) bool {
	return slices.Contains(p, engineID)
}

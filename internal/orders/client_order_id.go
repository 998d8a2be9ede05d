package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Client order IDs encode the originating strategy so fills can be
// attributed later: <strategy>-<8 hex chars>.

const clientOrderIDMaxLen = 36

// NewClientOrderID builds an attributable client order ID for the given
// strategy tag. The tag is lowercased and truncated so the ID stays
// within broker limits.
func NewClientOrderID(strategy string) string {
	tag := strings.ToLower(strings.TrimSpace(strategy))
	if tag == "" {
		tag = "manual"
	}
	if len(tag) > clientOrderIDMaxLen-9 {
		tag = tag[:clientOrderIDMaxLen-9]
	}
	return fmt.Sprintf("%s-%s", tag, uuid.NewString()[:8])
}

// StrategyFromClientOrderID recovers the strategy tag, or "" when the
// ID does not follow the scheme.
func StrategyFromClientOrderID(id string) string {
	i := strings.LastIndex(id, "-")
	if i <= 0 || len(id)-i-1 != 8 {
		return ""
	}
	return id[:i]
}

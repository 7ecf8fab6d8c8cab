package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber builds a gateway-safe unique order reference. Azul echoes it
// back on the callback, so it doubles as the idempotency key for webhooks.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("CPZ-%s-%s", now.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}

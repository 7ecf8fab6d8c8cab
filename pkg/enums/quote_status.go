package enums

import "fmt"

// QuoteStatus tracks a quote request between buyer and supplier.
type QuoteStatus string

const (
	QuoteStatusOpen      QuoteStatus = "open"
	QuoteStatusResponded QuoteStatus = "responded"
	QuoteStatusClosed    QuoteStatus = "closed"
)

var validQuoteStatuses = []QuoteStatus{
	QuoteStatusOpen,
	QuoteStatusResponded,
	QuoteStatusClosed,
}

// String implements fmt.Stringer.
func (q QuoteStatus) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteStatus.
func (q QuoteStatus) IsValid() bool {
	for _, candidate := range validQuoteStatuses {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteStatus converts the raw string to QuoteStatus.
func ParseQuoteStatus(value string) (QuoteStatus, error) {
	for _, candidate := range validQuoteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote status %q", value)
}

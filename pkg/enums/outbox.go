package enums

import "fmt"

// OutboxEventType is the canonical event_type for domain events and alerts.
type OutboxEventType string

const (
	OutboxEventSupplierRegistered      OutboxEventType = "supplier.registered"
	OutboxEventSubscriptionCreated     OutboxEventType = "subscription.created"
	OutboxEventSubscriptionCancelled   OutboxEventType = "subscription.cancelled"
	OutboxEventSubscriptionReactivated OutboxEventType = "subscription.reactivated"
	OutboxEventSubscriptionPlanChanged OutboxEventType = "subscription.plan_changed"
	OutboxEventPaymentCompleted        OutboxEventType = "payment.completed"
	OutboxEventPaymentFailed           OutboxEventType = "payment.failed"
	OutboxEventInvoiceCreated          OutboxEventType = "invoice.created"
	OutboxEventQuoteRequested          OutboxEventType = "quote.requested"
	OutboxEventReviewCreated           OutboxEventType = "review.created"
	OutboxEventNCFLowSupply            OutboxEventType = "ncf.low_supply"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventSupplierRegistered,
	OutboxEventSubscriptionCreated,
	OutboxEventSubscriptionCancelled,
	OutboxEventSubscriptionReactivated,
	OutboxEventSubscriptionPlanChanged,
	OutboxEventPaymentCompleted,
	OutboxEventPaymentFailed,
	OutboxEventInvoiceCreated,
	OutboxEventQuoteRequested,
	OutboxEventReviewCreated,
	OutboxEventNCFLowSupply,
}

// IsValid reports whether the value matches the canonical outbox event type enum.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsAlert reports whether the event routes to the operational alert topic.
func (o OutboxEventType) IsAlert() bool {
	return o == OutboxEventNCFLowSupply
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateSupplier     OutboxAggregateType = "supplier"
	OutboxAggregateSubscription OutboxAggregateType = "subscription"
	OutboxAggregatePayment      OutboxAggregateType = "payment"
	OutboxAggregateInvoice      OutboxAggregateType = "invoice"
	OutboxAggregateQuote        OutboxAggregateType = "quote"
	OutboxAggregateReview       OutboxAggregateType = "review"
	OutboxAggregateNCFSeries    OutboxAggregateType = "ncf_series"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateSupplier,
	OutboxAggregateSubscription,
	OutboxAggregatePayment,
	OutboxAggregateInvoice,
	OutboxAggregateQuote,
	OutboxAggregateReview,
	OutboxAggregateNCFSeries,
}

// IsValid reports whether the value matches the canonical aggregate type enum.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

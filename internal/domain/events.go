package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventLoadBooked      = "load.booked"
	EventPaymentHeld     = "payment.held"
	EventPaymentReleased = "payment.released"
	EventPayoutCreated   = "payout.created"
	EventDisputeOpened   = "dispute.opened"
	EventDisputeResolved = "dispute.resolved"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventLoadBooked, EventPaymentHeld, EventPaymentReleased,
		EventPayoutCreated, EventDisputeOpened, EventDisputeResolved:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventLoadBooked, EventPaymentReleased, EventPayoutCreated, EventDisputeOpened:
		return CanonicalEventClassDomain
	case EventPaymentHeld, EventDisputeResolved:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventPayoutCreated:
		return "data.payout_id"
	case EventLoadBooked:
		return "data.load_id"
	default:
		return "data.payment_id"
	}
}

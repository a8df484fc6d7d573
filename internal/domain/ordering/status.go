package ordering

// OrderStatus represents the workflow status of an order
type OrderStatus string

const (
	StatusPendingPricing          OrderStatus = "pending_pricing"
	StatusWaitingCustomerApproval OrderStatus = "waiting_customer_approval"
	StatusConfirmed               OrderStatus = "confirmed"
	StatusPaymentUploaded         OrderStatus = "payment_uploaded"
	StatusCompleted               OrderStatus = "completed"
	StatusRejected                OrderStatus = "rejected"
	StatusCancelled               OrderStatus = "cancelled"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPendingPricing, StatusWaitingCustomerApproval, StatusConfirmed,
		StatusPaymentUploaded, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// waiting_customer_approval -> waiting_customer_approval is the notified re-price loop.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case StatusPendingPricing:
		return target == StatusWaitingCustomerApproval || target == StatusCancelled
	case StatusWaitingCustomerApproval:
		return target == StatusWaitingCustomerApproval ||
			target == StatusConfirmed ||
			target == StatusRejected ||
			target == StatusCancelled
	case StatusConfirmed:
		return target == StatusPaymentUploaded ||
			target == StatusCompleted ||
			target == StatusWaitingCustomerApproval
	case StatusPaymentUploaded:
		return target == StatusCompleted ||
			target == StatusConfirmed ||
			target == StatusWaitingCustomerApproval
	case StatusCompleted, StatusRejected, StatusCancelled:
		return false
	}
	return false
}

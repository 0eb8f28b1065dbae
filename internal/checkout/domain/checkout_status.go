package domain

type CheckoutStatus string

const (
	CheckoutStatusInitiated       CheckoutStatus = "INITIATED"
	CheckoutStatusPaymentPending  CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusPaymentVerified CheckoutStatus = "PAYMENT_VERIFIED"
	CheckoutStatusCompleted       CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed          CheckoutStatus = "FAILED"
)

var allowedTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusInitiated:       {CheckoutStatusPaymentPending, CheckoutStatusFailed},
	CheckoutStatusPaymentPending:  {CheckoutStatusPaymentVerified, CheckoutStatusFailed},
	CheckoutStatusPaymentVerified: {CheckoutStatusCompleted},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a session in status from may move to to. A verified
// payment can no longer fail: the money has been taken.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

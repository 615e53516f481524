package domain

type CheckoutState string

const (
	CheckoutStateIdle              CheckoutState = "IDLE"
	CheckoutStateAddressValidated  CheckoutState = "ADDRESS_VALIDATED"
	CheckoutStatePaymentAuthorized CheckoutState = "PAYMENT_AUTHORIZED"
	CheckoutStateCapturing         CheckoutState = "CAPTURING"
	CheckoutStateCaptured          CheckoutState = "CAPTURED"
	CheckoutStateCaptureFailed     CheckoutState = "CAPTURE_FAILED"
)

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateCaptured || s == CheckoutStateCaptureFailed
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:              {CheckoutStateAddressValidated},
	CheckoutStateAddressValidated:  {CheckoutStatePaymentAuthorized, CheckoutStateIdle},
	CheckoutStatePaymentAuthorized: {CheckoutStateCapturing, CheckoutStateAddressValidated, CheckoutStateIdle},
	CheckoutStateCapturing:         {CheckoutStateCaptured, CheckoutStateCaptureFailed},
}

// CanTransitionTo reports whether target is a legal next state.
// A cancelled authorization moves back to ADDRESS_VALIDATED or IDLE
// without any write; a capture in flight only resolves server-side.
func CanTransitionTo(from, target CheckoutState) bool {
	for _, s := range checkoutTransitions[from] {
		if s == target {
			return true
		}
	}
	return false
}

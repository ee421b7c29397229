package checkout

import (
	"errors"
	"fmt"

	"golang-stripe-checkout/internal/services/checkout/providers"
	"golang-stripe-checkout/internal/services/checkout/types"
)

var (
	ErrUnknownField      = errors.New("unknown form field")
	ErrProcessorNotReady = errors.New("payment processor not ready")
	ErrMissingSecret     = errors.New("client secret not found")
	errUnexpectedPanic   = errors.New("panic during submission")
)

// Messages shown to the customer. None of them expose internal details.
const (
	MsgNotReady         = "Stripe has not loaded yet. Please try again later."
	MsgMissingSecret    = "Client secret not found in the response."
	MsgUnexpected       = "An unexpected error occurred. Please try again."
	msgIncompleteFormat = "Payment was not completed (status: %s)."
)

// userMessage turns a failed step into the single string shown in the error region.
// Processor messages are shown verbatim; everything unclassified is generic.
func userMessage(err error) string {
	var procErr *providers.ProcessorError
	switch {
	case errors.Is(err, ErrProcessorNotReady):
		return MsgNotReady
	case errors.Is(err, ErrMissingSecret):
		return MsgMissingSecret
	case errors.As(err, &procErr):
		return procErr.Message
	}

	var incomplete *IncompletePaymentError
	if errors.As(err, &incomplete) {
		return fmt.Sprintf(msgIncompleteFormat, incomplete.Status)
	}

	return MsgUnexpected
}

// IncompletePaymentError reports a confirmed intent that ended in any status but succeeded.
type IncompletePaymentError struct {
	PaymentIntentID string
	Status          types.PaymentIntentStatus
}

func (e *IncompletePaymentError) Error() string {
	return fmt.Sprintf("payment intent %s ended in status %s", e.PaymentIntentID, e.Status)
}

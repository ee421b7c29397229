package providers

import (
	"context"
	"errors"
	"fmt"

	"golang-stripe-checkout/internal/services/checkout/types"
)

var ErrInvalidClientSecret = errors.New("invalid client secret")

// Processor tokenizes cards and confirms payment intents on behalf of the checkout form.
type Processor interface {
	Ready() bool
	CreatePaymentMethod(ctx context.Context, card types.CardInput, billingName string) (string, error)
	ConfirmPayment(ctx context.Context, clientSecret, paymentMethodID string) (*types.PaymentIntentResult, error)
}

// ProcessorError is an error reported by the payment processor. Message is safe to show to
// the customer as is.
type ProcessorError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("processor error %s: %s", e.Code, e.Message)
	}
	return "processor error: " + e.Message
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

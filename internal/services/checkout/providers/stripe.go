package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang-stripe-checkout/internal/services/checkout/types"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/paymentmethod"
)

const clientSecretSeparator = "_secret_"

type StripeProcessor struct {
	ready bool
}

// NewStripeProcessor sets the global Stripe key. An empty key yields a processor that
// reports itself as not ready instead of failing at startup.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	if secretKey == "" {
		return &StripeProcessor{}
	}
	stripe.Key = secretKey

	return &StripeProcessor{ready: true}
}

func (p *StripeProcessor) Ready() bool {
	return p != nil && p.ready
}

func (p *StripeProcessor) CreatePaymentMethod(ctx context.Context, card types.CardInput, billingName string) (string, error) {
	if card.Token == "" {
		return "", &ProcessorError{Code: "incomplete_number", Message: "Your card number is incomplete."}
	}

	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Token: stripe.String(card.Token),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(billingName),
		},
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params.Context = ctx

	pm, err := paymentmethod.New(params)
	if err != nil {
		return "", fmt.Errorf("creating payment method: %w", toProcessorError(err))
	}

	return pm.ID, nil
}

func (p *StripeProcessor) ConfirmPayment(ctx context.Context, clientSecret, paymentMethodID string) (*types.PaymentIntentResult, error) {
	intentID, err := IntentIDFromClientSecret(clientSecret)
	if err != nil {
		return nil, &ProcessorError{Code: "invalid_client_secret", Message: "Invalid value for the payment client secret.", Err: err}
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Context = ctx

	pi, err := paymentintent.Confirm(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("confirming payment intent %s: %w", intentID, toProcessorError(err))
	}

	return &types.PaymentIntentResult{
		ID:     pi.ID,
		Status: types.PaymentIntentStatus(pi.Status),
	}, nil
}

// IntentIDFromClientSecret extracts the payment intent id from a "pi_..._secret_..." client secret.
func IntentIDFromClientSecret(clientSecret string) (string, error) {
	id, secret, ok := strings.Cut(clientSecret, clientSecretSeparator)
	if !ok || !strings.HasPrefix(id, "pi_") || secret == "" {
		return "", fmt.Errorf("%w: unexpected format", ErrInvalidClientSecret)
	}
	return id, nil
}

// toProcessorError keeps the Stripe message for the customer. Errors that did not come from
// the Stripe API, such as network failures, are returned unchanged.
func toProcessorError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}

	msg := stripeErr.Msg
	if msg == "" {
		msg = "Your card could not be processed."
	}

	return &ProcessorError{
		Code:    string(stripeErr.Code),
		Message: msg,
		Err:     err,
	}
}

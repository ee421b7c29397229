package providers

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang-stripe-checkout/internal/services/checkout/types"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

var ErrUnknownWebhookEventType = errors.New("unhandled event type")

// StripeWebhook verifies Stripe webhook deliveries for payment intents.
type StripeWebhook struct {
	secret string
}

func NewStripeWebhook(secret string) *StripeWebhook {
	return &StripeWebhook{secret: secret}
}

// PaymentSucceeded decodes a payment_intent.succeeded event. Other event types return
// ErrUnknownWebhookEventType.
func (w *StripeWebhook) PaymentSucceeded(payload []byte, sigHeader string) (*types.PaymentSucceededEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, w.secret)
	if err != nil {
		return nil, fmt.Errorf("verifying stripe webhook signature: %w", err)
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWebhookEventType, event.Type)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("unmarshaling payment_intent: %w", err)
	}

	succeeded := &types.PaymentSucceededEvent{
		EventID:         event.ID,
		PaymentIntentID: pi.ID,
		Amount:          pi.Amount,
		Currency:        string(pi.Currency),
		PlanID:          pi.Metadata["plan_id"],
	}
	if pi.Customer != nil {
		succeeded.CustomerID = pi.Customer.ID
	}

	return succeeded, nil
}

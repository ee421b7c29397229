package types

import "encoding/json"

// FormData is what the customer types into the checkout form.
type FormData struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	PlanID      string `json:"plan_id" validate:"required"`
}

// CardInput is the opaque output of the browser card widget. It never holds raw card data.
type CardInput struct {
	Token string `json:"card_token"`
}

type CreateSubscriptionRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	PlanID          string `json:"plan_id"`
	PaymentMethodID string `json:"payment_method_id"`
}

type CreateSubscriptionResponse struct {
	ClientSecret string          `json:"client_secret"`
	CustomerID   string          `json:"customer_id"`
	PlanID       json.RawMessage `json:"plan_id,omitempty"`
}

type ConfirmSubscriptionRequest struct {
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
}

type PaymentIntentStatus string

const (
	PaymentIntentStatusSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentStatusProcessing            PaymentIntentStatus = "processing"
	PaymentIntentStatusRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentStatusRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentStatusRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentStatusRequiresCapture       PaymentIntentStatus = "requires_capture"
	PaymentIntentStatusCanceled              PaymentIntentStatus = "canceled"
)

type PaymentIntentResult struct {
	ID     string              `json:"id"`
	Status PaymentIntentStatus `json:"status"`
}

// PaymentSucceededEvent is what the webhook keeps from a payment_intent.succeeded delivery.
type PaymentSucceededEvent struct {
	EventID         string
	PaymentIntentID string
	CustomerID      string
	PlanID          string
	Amount          int64
	Currency        string
}

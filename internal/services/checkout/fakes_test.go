package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"golang-stripe-checkout/internal/services/checkout/types"
)

type fakeProcessor struct {
	ready bool

	paymentMethodID string
	tokenizeErr     error
	intent          *types.PaymentIntentResult
	confirmErr      error
	confirmPanic    bool
	onConfirm       func()

	tokenizeCalls int
	confirmCalls  int
	billingName   string
	clientSecret  string
	confirmedPM   string
}

func (p *fakeProcessor) Ready() bool { return p.ready }

func (p *fakeProcessor) CreatePaymentMethod(_ context.Context, _ types.CardInput, billingName string) (string, error) {
	p.tokenizeCalls++
	p.billingName = billingName
	if p.tokenizeErr != nil {
		return "", p.tokenizeErr
	}
	return p.paymentMethodID, nil
}

func (p *fakeProcessor) ConfirmPayment(_ context.Context, clientSecret, paymentMethodID string) (*types.PaymentIntentResult, error) {
	p.confirmCalls++
	p.clientSecret = clientSecret
	p.confirmedPM = paymentMethodID
	if p.onConfirm != nil {
		p.onConfirm()
	}
	if p.confirmPanic {
		panic("processor exploded")
	}
	if p.confirmErr != nil {
		return nil, p.confirmErr
	}
	return p.intent, nil
}

type fakeBackend struct {
	createResp *types.CreateSubscriptionResponse
	createErr  error
	confirmErr error
	onCreate   func()
	onConfirm  func()

	created   []types.CreateSubscriptionRequest
	confirmed []types.ConfirmSubscriptionRequest
}

func (b *fakeBackend) CreateSubscription(_ context.Context, req types.CreateSubscriptionRequest) (*types.CreateSubscriptionResponse, error) {
	b.created = append(b.created, req)
	if b.onCreate != nil {
		b.onCreate()
	}
	if b.createErr != nil {
		return nil, b.createErr
	}
	return b.createResp, nil
}

func (b *fakeBackend) ConfirmSubscription(_ context.Context, req types.ConfirmSubscriptionRequest) (json.RawMessage, error) {
	b.confirmed = append(b.confirmed, req)
	if b.onConfirm != nil {
		b.onConfirm()
	}
	if b.confirmErr != nil {
		return nil, b.confirmErr
	}
	return json.RawMessage(`{"id":1}`), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// happyPath returns collaborators for a submission that goes through every step.
func happyPath() (*fakeProcessor, *fakeBackend) {
	processor := &fakeProcessor{
		ready:           true,
		paymentMethodID: "pm_1",
		intent:          &types.PaymentIntentResult{ID: "pi_1", Status: types.PaymentIntentStatusSucceeded},
	}
	backend := &fakeBackend{
		createResp: &types.CreateSubscriptionResponse{ClientSecret: "sec_1", CustomerID: "cus_1"},
	}
	return processor, backend
}

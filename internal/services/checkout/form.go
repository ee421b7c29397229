package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang-stripe-checkout/internal/services/checkout/providers"
	"golang-stripe-checkout/internal/services/checkout/types"
)

// Form owns the checkout state and runs the payment submission against the processor and
// the subscription backend.
type Form struct {
	processor providers.Processor
	backend   providers.Backend
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	observers []func(State)
}

func NewForm(processor providers.Processor, backend providers.Backend, logger *slog.Logger) *Form {
	if logger == nil {
		logger = slog.Default()
	}
	return &Form{
		processor: processor,
		backend:   backend,
		logger:    logger,
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn to receive every new state, in order.
func (f *Form) Subscribe(fn func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// Change sets a single form field, like a controlled input.
func (f *Form) Change(field, value string) error {
	if err := validField(field); err != nil {
		return err
	}
	f.dispatch(FieldChanged{Field: field, Value: value})
	return nil
}

func (f *Form) dispatch(a Action) State {
	f.mu.Lock()
	f.state = Reduce(f.state, a)
	s := f.state
	observers := make([]func(State), len(f.observers))
	copy(observers, f.observers)
	f.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
	return s
}

// submission carries each step's output to the next one. It lives for one attempt only.
type submission struct {
	form            types.FormData
	card            types.CardInput
	paymentMethodID string
	subscription    *types.CreateSubscriptionResponse
	intent          *types.PaymentIntentResult
}

type step struct {
	name string
	run  func(ctx context.Context, sub *submission) error
}

func (f *Form) steps() []step {
	return []step{
		{name: "guard", run: f.guardReady},
		{name: "tokenize", run: f.tokenize},
		{name: "create_subscription", run: f.createSubscription},
		{name: "confirm_payment", run: f.confirmPayment},
	}
}

// Submit runs guard, tokenize, create subscription and confirm payment in order, stopping
// at the first failure. On success it finalizes the subscription without letting that
// call change what the customer sees. Loading is always cleared before Submit returns.
func (f *Form) Submit(ctx context.Context, card types.CardInput) (final State) {
	// Once started, a submission runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	f.dispatch(SubmitStarted{})

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("checkout submission panicked", "error", fmt.Errorf("%w: %v", errUnexpectedPanic, r))
			f.dispatch(SubmitFailed{Message: MsgUnexpected})
		}
		final = f.dispatch(SubmitSettled{})
	}()

	sub := &submission{form: f.State().Form, card: card}
	for _, s := range f.steps() {
		if err := s.run(ctx, sub); err != nil {
			f.logger.Warn("checkout step failed", "step", s.name, "plan_id", sub.form.PlanID, "error", err)
			f.dispatch(SubmitFailed{Message: userMessage(err)})
			return
		}
		f.logger.Debug("checkout step done", "step", s.name)
	}

	f.dispatch(SubmitSucceeded{PaymentIntentID: sub.intent.ID})
	f.logger.Info("payment succeeded", "payment_intent_id", sub.intent.ID, "customer_id", sub.subscription.CustomerID)

	f.finalize(ctx, sub)
	return
}

func (f *Form) guardReady(_ context.Context, _ *submission) error {
	if f.processor == nil || !f.processor.Ready() {
		return ErrProcessorNotReady
	}
	return nil
}

func (f *Form) tokenize(ctx context.Context, sub *submission) error {
	id, err := f.processor.CreatePaymentMethod(ctx, sub.card, sub.form.Name)
	if err != nil {
		return fmt.Errorf("tokenizing card: %w", err)
	}
	sub.paymentMethodID = id
	return nil
}

func (f *Form) createSubscription(ctx context.Context, sub *submission) error {
	resp, err := f.backend.CreateSubscription(ctx, types.CreateSubscriptionRequest{
		Name:            sub.form.Name,
		Email:           sub.form.Email,
		PhoneNumber:     sub.form.PhoneNumber,
		PlanID:          sub.form.PlanID,
		PaymentMethodID: sub.paymentMethodID,
	})
	if resp != nil && resp.ClientSecret == "" {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMissingSecret, err)
		}
		return ErrMissingSecret
	}
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}
	if resp == nil {
		return ErrMissingSecret
	}
	sub.subscription = resp
	return nil
}

func (f *Form) confirmPayment(ctx context.Context, sub *submission) error {
	intent, err := f.processor.ConfirmPayment(ctx, sub.subscription.ClientSecret, sub.paymentMethodID)
	if err != nil {
		return fmt.Errorf("confirming payment: %w", err)
	}
	if intent.Status != types.PaymentIntentStatusSucceeded {
		return &IncompletePaymentError{PaymentIntentID: intent.ID, Status: intent.Status}
	}
	sub.intent = intent
	return nil
}

// finalize links the succeeded payment to a subscription record. The customer has already
// been told the payment went through, so failures are only logged for follow-up.
func (f *Form) finalize(ctx context.Context, sub *submission) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("subscription finalization panicked", "customer_id", sub.subscription.CustomerID, "panic", r)
		}
	}()

	resp, err := f.backend.ConfirmSubscription(context.WithoutCancel(ctx), types.ConfirmSubscriptionRequest{
		CustomerID: sub.subscription.CustomerID,
		PlanID:     sub.form.PlanID,
	})
	if err != nil {
		f.logger.Error("subscription finalization failed",
			"customer_id", sub.subscription.CustomerID,
			"plan_id", sub.form.PlanID,
			"payment_intent_id", sub.intent.ID,
			"error", err,
		)
		return
	}

	f.logger.Info("subscription finalized", "customer_id", sub.subscription.CustomerID, "response", string(resp))
}

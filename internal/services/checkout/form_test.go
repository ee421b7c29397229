package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang-stripe-checkout/internal/services/checkout/providers"
	"golang-stripe-checkout/internal/services/checkout/types"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledForm(t *testing.T, processor providers.Processor, backend providers.Backend) (*Form, types.FormData) {
	t.Helper()

	data := types.FormData{
		Name:        gofakeit.Name(),
		Email:       gofakeit.Email(),
		PhoneNumber: gofakeit.Phone(),
		PlanID:      "3",
	}

	form := NewForm(processor, backend, discardLogger())
	require.NoError(t, form.Change(FieldName, data.Name))
	require.NoError(t, form.Change(FieldEmail, data.Email))
	require.NoError(t, form.Change(FieldPhoneNumber, data.PhoneNumber))
	require.NoError(t, form.Change(FieldPlanID, data.PlanID))

	return form, data
}

var card = types.CardInput{Token: "tok_visa"}

func TestSubmitSucceeds(t *testing.T) {
	processor, backend := happyPath()
	form, data := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusSuccess, state.Status())
	assert.False(t, state.Loading)
	assert.Empty(t, state.Message)
	assert.Equal(t, "pi_1", state.PaymentIntentID)

	assert.Equal(t, data.Name, processor.billingName)
	require.Len(t, backend.created, 1)
	assert.Equal(t, types.CreateSubscriptionRequest{
		Name:            data.Name,
		Email:           data.Email,
		PhoneNumber:     data.PhoneNumber,
		PlanID:          data.PlanID,
		PaymentMethodID: "pm_1",
	}, backend.created[0])

	assert.Equal(t, "sec_1", processor.clientSecret)
	assert.Equal(t, "pm_1", processor.confirmedPM)

	require.Len(t, backend.confirmed, 1)
	assert.Equal(t, types.ConfirmSubscriptionRequest{CustomerID: "cus_1", PlanID: data.PlanID}, backend.confirmed[0])
}

func TestSubmitNotReady(t *testing.T) {
	tests := []struct {
		name      string
		processor providers.Processor
	}{
		{name: "not ready", processor: &fakeProcessor{ready: false}},
		{name: "missing", processor: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			form, _ := filledForm(t, tt.processor, backend)

			state := form.Submit(context.Background(), card)

			assert.Equal(t, StatusError, state.Status())
			assert.Equal(t, MsgNotReady, state.Message)
			assert.Empty(t, backend.created)
			assert.Empty(t, backend.confirmed)
			if p, ok := tt.processor.(*fakeProcessor); ok {
				assert.Zero(t, p.tokenizeCalls)
			}
		})
	}
}

func TestSubmitTokenizeFailureSkipsBackend(t *testing.T) {
	processor, backend := happyPath()
	processor.tokenizeErr = &providers.ProcessorError{Code: "card_declined", Message: "Your card was declined."}
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusError, state.Status())
	assert.Equal(t, "Your card was declined.", state.Message)
	assert.Empty(t, backend.created)
	assert.Zero(t, processor.confirmCalls)
}

func TestSubmitBackendFailureIsGeneric(t *testing.T) {
	processor, backend := happyPath()
	backend.createErr = &providers.BackendError{Path: "/create", Status: 502, Body: "bad gateway"}
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, MsgUnexpected, state.Message)
	assert.Zero(t, processor.confirmCalls)
}

func TestSubmitMissingClientSecretSkipsConfirm(t *testing.T) {
	processor, backend := happyPath()
	backend.createResp = &types.CreateSubscriptionResponse{CustomerID: "cus_1"}
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusError, state.Status())
	assert.Equal(t, MsgMissingSecret, state.Message)
	assert.Zero(t, processor.confirmCalls)
	assert.Empty(t, backend.confirmed)
}

func TestSubmitConfirmErrorShownVerbatim(t *testing.T) {
	processor, backend := happyPath()
	processor.confirmErr = &providers.ProcessorError{Code: "insufficient_funds", Message: "Your card has insufficient funds."}
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusError, state.Status())
	assert.Equal(t, "Your card has insufficient funds.", state.Message)
	assert.Empty(t, backend.confirmed)
}

func TestSubmitIncompletePayment(t *testing.T) {
	processor, backend := happyPath()
	processor.intent = &types.PaymentIntentResult{ID: "pi_1", Status: types.PaymentIntentStatusRequiresAction}
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusError, state.Status())
	assert.Equal(t, "Payment was not completed (status: requires_action).", state.Message)
	assert.Empty(t, backend.confirmed)
}

func TestSubmitFinalizeFailureKeepsSuccess(t *testing.T) {
	processor, backend := happyPath()
	backend.confirmErr = errors.New("connection refused")
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusSuccess, state.Status())
	assert.Empty(t, state.Message)
	assert.Len(t, backend.confirmed, 1)
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	processor, backend := happyPath()
	processor.confirmPanic = true
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.Equal(t, StatusError, state.Status())
	assert.Equal(t, MsgUnexpected, state.Message)
	assert.False(t, state.Loading)
}

func TestSubmitLoadingLifecycle(t *testing.T) {
	processor, backend := happyPath()
	form, _ := filledForm(t, processor, backend)

	var loadingDuringCreate bool
	backend.onCreate = func() {
		loadingDuringCreate = form.State().Loading
	}

	var history []State
	form.Subscribe(func(s State) {
		history = append(history, s)
	})

	require.False(t, form.State().Loading)

	state := form.Submit(context.Background(), card)

	assert.True(t, loadingDuringCreate)
	assert.False(t, state.Loading)
	require.NotEmpty(t, history)
	assert.True(t, history[0].Loading)
	assert.Equal(t, StatusLoading, history[0].Status())
	assert.False(t, history[len(history)-1].Loading)

	for _, s := range history[:len(history)-1] {
		assert.True(t, s.Loading, "loading must stay set until the submission settles")
	}
}

func TestSubmitLoadingClearedOnFailure(t *testing.T) {
	processor, backend := happyPath()
	processor.tokenizeErr = &providers.ProcessorError{Message: "Your card number is incomplete."}
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(context.Background(), card)

	assert.False(t, state.Loading)
	assert.False(t, form.State().Loading)
}

func TestResubmitRunsEveryStepAgain(t *testing.T) {
	processor, backend := happyPath()
	processor.confirmErr = &providers.ProcessorError{Message: "Your card was declined."}
	form, _ := filledForm(t, processor, backend)

	first := form.Submit(context.Background(), card)
	require.Equal(t, StatusError, first.Status())

	processor.confirmErr = nil
	second := form.Submit(context.Background(), card)

	assert.Equal(t, StatusSuccess, second.Status())
	assert.Empty(t, second.Message)
	assert.Equal(t, 2, processor.tokenizeCalls)
	assert.Len(t, backend.created, 2)
	assert.Equal(t, 2, processor.confirmCalls)
	assert.Len(t, backend.confirmed, 1)
}

func TestChangeRejectsUnknownField(t *testing.T) {
	form := NewForm(nil, nil, discardLogger())

	err := form.Change("card_number", "4242")

	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, types.FormData{}, form.State().Form)
}

func TestSubmitSetsSuccessBeforeFinalizing(t *testing.T) {
	processor, backend := happyPath()
	form, _ := filledForm(t, processor, backend)

	var atFinalize State
	backend.onConfirm = func() {
		atFinalize = form.State()
	}

	form.Submit(context.Background(), card)

	require.Len(t, backend.confirmed, 1)
	assert.Equal(t, OutcomeSucceeded, atFinalize.Outcome)
	assert.Equal(t, "pi_1", atFinalize.PaymentIntentID)
}

// subscriptionServer answers create-subscription with createStatus/createBody and counts
// confirm-subscription calls.
func subscriptionServer(t *testing.T, createStatus int, createBody string, confirms *atomic.Int32) providers.Backend {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/create/":
			w.WriteHeader(createStatus)
			w.Write([]byte(createBody))
		case "/confirm/":
			confirms.Add(1)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return providers.NewSubscriptionBackend(srv.URL, "/create/", "/confirm/", 2*time.Second)
}

func TestSubmitBackendRejectionWithoutSecret(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "invalid plan", status: http.StatusBadRequest, body: `{"error":"Invalid plan ID"}`, want: MsgMissingSecret},
		{name: "created without secret", status: http.StatusCreated, body: `{"customer_id":"cus_1"}`, want: MsgMissingSecret},
		{name: "html error page", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, want: MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var confirms atomic.Int32
			processor, _ := happyPath()
			form, _ := filledForm(t, processor, subscriptionServer(t, tt.status, tt.body, &confirms))

			state := form.Submit(context.Background(), card)

			assert.Equal(t, StatusError, state.Status())
			assert.Equal(t, tt.want, state.Message)
			assert.Zero(t, processor.confirmCalls)
			assert.Zero(t, confirms.Load())
		})
	}
}

func TestSubmitFinalizesAfterCallerCancels(t *testing.T) {
	var confirms atomic.Int32
	backend := subscriptionServer(t, http.StatusCreated, `{"client_secret":"pi_1_secret_abc","customer_id":"cus_1"}`, &confirms)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor, _ := happyPath()
	processor.onConfirm = cancel
	form, _ := filledForm(t, processor, backend)

	state := form.Submit(ctx, card)

	require.Error(t, ctx.Err())
	assert.Equal(t, StatusSuccess, state.Status())
	assert.Equal(t, int32(1), confirms.Load())
}

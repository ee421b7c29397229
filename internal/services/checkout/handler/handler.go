package handler

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"golang-stripe-checkout/internal/services/checkout"
	"golang-stripe-checkout/internal/services/checkout/providers"
	"golang-stripe-checkout/internal/services/checkout/types"

	"github.com/go-playground/validator/v10"
)

const (
	maxBodyBytes = int64(65536)

	msgInvalidForm = "Please fill in every field with a valid value."
)

//go:embed templates/*.html
var templateFS embed.FS

type handler struct {
	processor      providers.Processor
	backend        providers.Backend
	webhook        *providers.StripeWebhook
	publishableKey string
	validate       *validator.Validate
	pages          *template.Template
	logger         *slog.Logger
}

// NewHandler builds the checkout handler. A nil webhook leaves the Stripe webhook route unmounted.
func NewHandler(processor providers.Processor, backend providers.Backend, webhook *providers.StripeWebhook, publishableKey string, logger *slog.Logger) (*handler, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &handler{
		processor:      processor,
		backend:        backend,
		webhook:        webhook,
		publishableKey: publishableKey,
		validate:       validator.New(),
		pages:          pages,
		logger:         logger,
	}, nil
}

type pageData struct {
	PublishableKey string
	Form           types.FormData
	Loading        bool
	Error          string
	Success        bool
}

type checkoutRequest struct {
	types.FormData
	types.CardInput
}

type checkoutResponse struct {
	Status          checkout.Status `json:"status"`
	Loading         bool            `json:"loading"`
	Error           string          `json:"error,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	Form            types.FormData  `json:"form"`
}

// Index renders the application shell with an empty form.
func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{PublishableKey: h.publishableKey})
}

// Checkout handles the form post from the page shell.
func (h *handler) Checkout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.Error("parsing checkout form", "error", err)
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	req := checkoutRequest{
		FormData: types.FormData{
			Name:        r.PostFormValue(checkout.FieldName),
			Email:       r.PostFormValue(checkout.FieldEmail),
			PhoneNumber: r.PostFormValue(checkout.FieldPhoneNumber),
			PlanID:      r.PostFormValue(checkout.FieldPlanID),
		},
		CardInput: types.CardInput{Token: r.PostFormValue("card_token")},
	}

	// Without a token the card widget never loaded, so the form sees no ready processor.
	processor := h.processor
	if req.CardInput.Token == "" {
		processor = nil
	}

	form, err := h.newForm(processor, req.FormData)
	if err != nil {
		h.logger.Info("rejected checkout form", "error", err)
		h.render(w, http.StatusBadRequest, pageData{
			PublishableKey: h.publishableKey,
			Form:           req.FormData,
			Error:          msgInvalidForm,
		})
		return
	}

	state := form.Submit(r.Context(), req.CardInput)

	h.render(w, http.StatusOK, pageData{
		PublishableKey: h.publishableKey,
		Form:           state.Form,
		Loading:        state.Loading,
		Error:          state.Message,
		Success:        state.Status() == checkout.StatusSuccess,
	})
}

// CheckoutAPI is the JSON variant of Checkout for script clients.
func (h *handler) CheckoutAPI(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	form, err := h.newForm(h.processor, req.FormData)
	if err != nil {
		h.logger.Info("rejected checkout request", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidForm})
		return
	}

	state := form.Submit(r.Context(), req.CardInput)

	writeJSON(w, http.StatusOK, checkoutResponse{
		Status:          state.Status(),
		Loading:         state.Loading,
		Error:           state.Message,
		PaymentIntentID: state.PaymentIntentID,
		Form:            state.Form,
	})
}

// PaymentSucceededWebhook records payment_intent.succeeded deliveries so succeeded payments
// can be reconciled against subscriptions whose finalization failed.
func (h *handler) PaymentSucceededWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("reading webhook body", "error", err)
		http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		return
	}

	event, err := h.webhook.PaymentSucceeded(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, providers.ErrUnknownWebhookEventType) {
			h.logger.Debug("ignoring webhook event", "error", err)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("rejected stripe webhook", "error", err)
		http.Error(w, "Signature verification failed", http.StatusBadRequest)
		return
	}

	h.logger.Info("payment intent succeeded",
		"event_id", event.EventID,
		"payment_intent_id", event.PaymentIntentID,
		"customer_id", event.CustomerID,
		"plan_id", event.PlanID,
		"amount", event.Amount,
		"currency", event.Currency,
	)
	w.WriteHeader(http.StatusOK)
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// newForm builds a fresh form for one submission, filling it field by field.
func (h *handler) newForm(processor providers.Processor, data types.FormData) (*checkout.Form, error) {
	form := checkout.NewForm(processor, h.backend, h.logger)
	form.Subscribe(func(s checkout.State) {
		h.logger.Debug("checkout state changed", "status", s.Status(), "plan_id", s.Form.PlanID)
	})

	values := map[string]string{
		checkout.FieldName:        data.Name,
		checkout.FieldEmail:       data.Email,
		checkout.FieldPhoneNumber: data.PhoneNumber,
		checkout.FieldPlanID:      data.PlanID,
	}
	for field, value := range values {
		if err := form.Change(field, value); err != nil {
			return nil, err
		}
	}

	if err := h.validate.Struct(form.State().Form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, verrs
		}
		return nil, err
	}

	return form, nil
}

func (h *handler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.Error("rendering checkout page", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

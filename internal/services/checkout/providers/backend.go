package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang-stripe-checkout/internal/services/checkout/types"

	"github.com/go-resty/resty/v2"
)

var ErrMalformedResponse = errors.New("malformed backend response")

// Backend is the subscription service that creates payment intents and finalizes subscriptions.
type Backend interface {
	CreateSubscription(ctx context.Context, req types.CreateSubscriptionRequest) (*types.CreateSubscriptionResponse, error)
	ConfirmSubscription(ctx context.Context, req types.ConfirmSubscriptionRequest) (json.RawMessage, error)
}

// BackendError is a non-2xx answer from the subscription backend.
type BackendError struct {
	Path   string
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("subscription backend %s answered %d: %s", e.Path, e.Status, e.Body)
}

type SubscriptionBackend struct {
	client      *resty.Client
	createPath  string
	confirmPath string
}

func NewSubscriptionBackend(baseURL, createPath, confirmPath string, timeout time.Duration) *SubscriptionBackend {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &SubscriptionBackend{
		client:      client,
		createPath:  createPath,
		confirmPath: confirmPath,
	}
}

// CreateSubscription returns the decoded body whenever it is JSON. A non-2xx answer with a
// JSON body, such as {"error":"Invalid plan ID"}, yields both the response and a *BackendError.
func (b *SubscriptionBackend) CreateSubscription(ctx context.Context, req types.CreateSubscriptionRequest) (*types.CreateSubscriptionResponse, error) {
	body, err := b.post(ctx, b.createPath, req)
	var backendErr *BackendError
	if err != nil && !errors.As(err, &backendErr) {
		return nil, err
	}

	var resp types.CreateSubscriptionResponse
	if decodeErr := json.Unmarshal(body, &resp); decodeErr != nil {
		if backendErr != nil {
			return nil, backendErr
		}
		return nil, fmt.Errorf("%w: decoding create subscription response: %v", ErrMalformedResponse, decodeErr)
	}

	if backendErr != nil {
		return &resp, backendErr
	}
	return &resp, nil
}

func (b *SubscriptionBackend) ConfirmSubscription(ctx context.Context, req types.ConfirmSubscriptionRequest) (json.RawMessage, error) {
	body, err := b.post(ctx, b.confirmPath, req)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: confirm subscription response is not JSON", ErrMalformedResponse)
	}

	return json.RawMessage(body), nil
}

func (b *SubscriptionBackend) post(ctx context.Context, path string, payload any) ([]byte, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("calling subscription backend %s: %w", path, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return resp.Body(), &BackendError{Path: path, Status: resp.StatusCode(), Body: resp.String()}
	}

	return resp.Body(), nil
}

package checkout

import (
	"fmt"

	"golang-stripe-checkout/internal/services/checkout/types"
)

// Status is the submission state shown to the customer.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusSuccess Status = "success"
)

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeFailed
	OutcomeSucceeded
)

// State is an immutable snapshot of the form. Reduce returns a new value on every action.
type State struct {
	Form            types.FormData
	Loading         bool
	Outcome         Outcome
	Message         string
	PaymentIntentID string
}

// Status collapses the snapshot into one of idle, loading, error or success. Loading wins
// while a submission is still running, even after success has been recorded.
func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.Outcome == OutcomeFailed:
		return StatusError
	case s.Outcome == OutcomeSucceeded:
		return StatusSuccess
	default:
		return StatusIdle
	}
}

type Action interface {
	apply(State) State
}

type FieldChanged struct {
	Field string
	Value string
}

type SubmitStarted struct{}

type SubmitFailed struct {
	Message string
}

type SubmitSucceeded struct {
	PaymentIntentID string
}

// SubmitSettled clears the loading flag once a submission has finished, whatever its outcome.
type SubmitSettled struct{}

func Reduce(s State, a Action) State {
	return a.apply(s)
}

func (a FieldChanged) apply(s State) State {
	switch a.Field {
	case FieldName:
		s.Form.Name = a.Value
	case FieldEmail:
		s.Form.Email = a.Value
	case FieldPhoneNumber:
		s.Form.PhoneNumber = a.Value
	case FieldPlanID:
		s.Form.PlanID = a.Value
	}
	return s
}

func (SubmitStarted) apply(s State) State {
	s.Loading = true
	s.Outcome = OutcomeNone
	s.Message = ""
	s.PaymentIntentID = ""
	return s
}

func (a SubmitFailed) apply(s State) State {
	s.Outcome = OutcomeFailed
	s.Message = a.Message
	return s
}

func (a SubmitSucceeded) apply(s State) State {
	s.Outcome = OutcomeSucceeded
	s.Message = ""
	s.PaymentIntentID = a.PaymentIntentID
	return s
}

func (SubmitSettled) apply(s State) State {
	s.Loading = false
	return s
}

const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPhoneNumber = "phone_number"
	FieldPlanID      = "plan_id"
)

var fields = map[string]struct{}{
	FieldName:        {},
	FieldEmail:       {},
	FieldPhoneNumber: {},
	FieldPlanID:      {},
}

func validField(field string) error {
	if _, ok := fields[field]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

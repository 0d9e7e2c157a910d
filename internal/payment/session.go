package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
)

type State string

const (
	StateInput      State = "input"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

var ErrInvalidTransition = errors.New("invalid payment state transition")

// TransitionFunc observes a state change. Observers run synchronously, in
// registration order, on the goroutine that caused the transition.
type TransitionFunc func(from, to State)

// Session drives one payment attempt for a fixed provider and amount:
// input -> processing -> success | error, and error -> input on Retry.
type Session struct {
	provider   string
	amount     float64
	authorizer Authorizer

	mu        sync.Mutex
	state     State
	message   string
	receipt   *Receipt
	observers []TransitionFunc
}

func NewSession(provider string, amount float64, authorizer Authorizer) *Session {
	return &Session{
		provider:   provider,
		amount:     amount,
		authorizer: authorizer,
		state:      StateInput,
	}
}

func (s *Session) OnTransition(fn TransitionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Message is the user-facing text for the current state.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Session) Receipt() *Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipt
}

// Submit validates the phone number and, when it is valid, authorizes the payment.
// An invalid number leaves the session in input without contacting the authorizer.
func (s *Session) Submit(ctx context.Context, phone string) (*Receipt, error) {
	s.mu.Lock()
	if s.state != StateInput {
		from := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: submit in state %s", ErrInvalidTransition, from)
	}
	if !ValidatePhone(phone) {
		s.message = InvalidPhoneMessage
		s.mu.Unlock()
		return nil, domain.Validationf(InvalidPhoneMessage)
	}
	s.message = ""
	observers := s.transition(StateProcessing)
	s.mu.Unlock()
	notify(observers, StateInput, StateProcessing)

	receipt, err := s.authorizer.Authorize(ctx, s.provider, NormalizePhone(phone), s.amount)

	s.mu.Lock()
	if err != nil {
		s.message = err.Error()
		observers = s.transition(StateError)
		s.mu.Unlock()
		notify(observers, StateProcessing, StateError)
		return nil, err
	}
	s.receipt = receipt
	s.message = receipt.Message
	observers = s.transition(StateSuccess)
	s.mu.Unlock()
	notify(observers, StateProcessing, StateSuccess)
	return receipt, nil
}

// Retry returns a failed session to input.
func (s *Session) Retry() error {
	s.mu.Lock()
	if s.state != StateError {
		from := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: retry in state %s", ErrInvalidTransition, from)
	}
	s.message = ""
	observers := s.transition(StateInput)
	s.mu.Unlock()
	notify(observers, StateError, StateInput)
	return nil
}

// transition must be called with s.mu held.
func (s *Session) transition(to State) []TransitionFunc {
	s.state = to
	return append([]TransitionFunc(nil), s.observers...)
}

func notify(observers []TransitionFunc, from, to State) {
	for _, fn := range observers {
		fn(from, to)
	}
}

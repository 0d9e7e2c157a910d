package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
)

const (
	DefaultDelay       = 3 * time.Second
	DefaultSuccessRate = 0.9

	SuccessMessage = "Payment processed successfully"
)

// Receipt is the outcome of a successful authorization.
type Receipt struct {
	TransactionID string    `json:"transactionId"`
	Provider      string    `json:"provider"`
	PhoneNumber   string    `json:"phoneNumber"`
	Amount        float64   `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
}

// Failure is a declined or aborted authorization. It classifies as domain.ErrPayment.
type Failure struct {
	Code    string
	Message string
	cause   error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() []error {
	if f.cause != nil {
		return []error{domain.ErrPayment, f.cause}
	}
	return []error{domain.ErrPayment}
}

var ErrInsufficientBalance = &Failure{
	Code:    "INSUFFICIENT_BALANCE",
	Message: "Payment failed. Please try again or use a different payment method.",
}

// Authorizer charges amount to the phone number through provider.
type Authorizer interface {
	Authorize(ctx context.Context, provider, phone string, amount float64) (*Receipt, error)
}

// Random is the subset of *rand.Rand the simulator draws from.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// Simulator is an Authorizer that waits Delay and then approves with probability
// SuccessRate. It stands in for a real gateway.
type Simulator struct {
	Delay       time.Duration
	SuccessRate float64

	mu   sync.Mutex
	rand Random
	now  func() time.Time
}

type SimulatorOption func(*Simulator)

func WithRandom(r Random) SimulatorOption {
	return func(s *Simulator) { s.rand = r }
}

func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

func NewSimulator(delay time.Duration, successRate float64, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		Delay:       delay,
		SuccessRate: successRate,
		rand:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d6f6e6579)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Authorize(ctx context.Context, provider, phone string, amount float64) (*Receipt, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, &Failure{
				Code:    "TIMEOUT",
				Message: "Payment was not confirmed in time. Please try again.",
				cause:   ctx.Err(),
			}
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, &Failure{Code: "TIMEOUT", Message: "Payment was not confirmed in time. Please try again.", cause: err}
	}

	s.mu.Lock()
	approved := s.rand.Float64() < s.SuccessRate
	suffix := s.rand.IntN(10000)
	s.mu.Unlock()

	if !approved {
		return nil, ErrInsufficientBalance
	}
	ts := s.now()
	return &Receipt{
		TransactionID: transactionID(provider, ts, suffix),
		Provider:      provider,
		PhoneNumber:   phone,
		Amount:        amount,
		Timestamp:     ts,
		Message:       SuccessMessage,
	}, nil
}

func transactionID(provider string, ts time.Time, suffix int) string {
	prefix := strings.ToUpper(provider)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s%d%d", prefix, ts.UnixMilli(), suffix)
}

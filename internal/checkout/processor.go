package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyerxpress/internal/logger"
	"flyerxpress/internal/utils"

	"github.com/shopspring/decimal"
)

// ErrProcessorUnavailable marks a transient failure worth retrying.
var ErrProcessorUnavailable = errors.New("payment processor unavailable")

// DeclineError is a definitive refusal from the processor.
type DeclineError struct {
	Reason string
}

func (e *DeclineError) Error() string {
	return "payment declined: " + e.Reason
}

type ChargeRequest struct {
	Method         Method
	Amount         decimal.Decimal
	Currency       string
	Details        Details
	IdempotencyKey string
	Description    string
}

type ChargeResult struct {
	Reference string
}

// Processor moves money. It returns an opaque reference on success, a
// *DeclineError on refusal, or an error wrapping ErrProcessorUnavailable.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedProcessor approves every charge after Delay. No funds move.
type SimulatedProcessor struct {
	Delay time.Duration
}

func (p *SimulatedProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		}
	}
	if !req.Amount.IsPositive() {
		return ChargeResult{}, &DeclineError{Reason: "amount must be positive"}
	}
	return ChargeResult{Reference: utils.GenerateTransactionID()}, nil
}

// MethodRouter sends each charge to the processor registered for its method.
type MethodRouter struct {
	routes   map[Method]Processor
	fallback Processor
}

func NewMethodRouter(fallback Processor) *MethodRouter {
	return &MethodRouter{routes: make(map[Method]Processor), fallback: fallback}
}

func (r *MethodRouter) Route(m Method, p Processor) *MethodRouter {
	r.routes[m] = p
	return r
}

func (r *MethodRouter) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if p, ok := r.routes[req.Method]; ok {
		return p.Charge(ctx, req)
	}
	if r.fallback != nil {
		return r.fallback.Charge(ctx, req)
	}
	return ChargeResult{}, fmt.Errorf("%w: no processor for %q", ErrUnknownMethod, req.Method)
}

// RetryingProcessor retries transient failures with exponential back-off.
// Every attempt carries the same idempotency key.
type RetryingProcessor struct {
	Next        Processor
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *logger.Logger
}

func (r *RetryingProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := r.Next.Charge(ctx, req)
		if err == nil || !errors.Is(err, ErrProcessorUnavailable) {
			return result, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		r.Logger.Warn("PAYMENT", fmt.Sprintf("Charge %s failed (attempt %d/%d): %v, retrying in %v",
			req.IdempotencyKey, attempt, attempts, err, delay))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ChargeResult{}, ctx.Err()
		}
		delay *= 2
	}
	return ChargeResult{}, fmt.Errorf("charge failed after %d attempts: %w", attempts, lastErr)
}

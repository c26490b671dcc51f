package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flyerxpress/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")

// stripeAPI is the slice of the Stripe client the card processor needs.
type stripeAPI interface {
	NewPaymentMethod(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
	NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeClient struct {
	api *client.API
}

func (c stripeClient) NewPaymentMethod(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
	return c.api.PaymentMethods.New(params)
}

func (c stripeClient) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.New(params)
}

func (c stripeClient) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return c.api.PaymentIntents.Get(id, params)
}

const (
	defaultPollInterval = time.Second
	defaultPollAttempts = 5
)

// StripeProcessor charges cards through a confirmed PaymentIntent.
type StripeProcessor struct {
	api stripeAPI
	log *logger.Logger

	// A processing intent is re-read this many times before giving up.
	PollInterval time.Duration
	PollAttempts int
}

func NewStripeProcessor(secretKey string, log *logger.Logger) (*StripeProcessor, error) {
	if secretKey == "" {
		log.Error("STRIPE", "Stripe secret key not configured")
		return nil, ErrStripeClientInitFailed
	}
	sc := client.New(secretKey, nil)
	if sc == nil {
		return nil, ErrStripeClientInitFailed
	}
	log.Info("STRIPE", "Stripe client initialized successfully")
	return &StripeProcessor{
		api:          stripeClient{api: sc},
		log:          log,
		PollInterval: defaultPollInterval,
		PollAttempts: defaultPollAttempts,
	}, nil
}

// parseExpiry accepts MM/YY and MM/YYYY.
func parseExpiry(s string) (month, year int64, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expiry must be MM/YY")
	}
	month, err = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid expiry month")
	}
	year, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid expiry year")
	}
	if year < 100 {
		year += 2000
	}
	return month, year, nil
}

// minorUnits converts an amount to the smallest currency unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (p *StripeProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Method != MethodCard {
		return ChargeResult{}, fmt.Errorf("%w: stripe only handles cards", ErrUnknownMethod)
	}
	month, year, err := parseExpiry(req.Details.Expiry)
	if err != nil {
		return ChargeResult{}, &DeclineError{Reason: err.Error()}
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(strings.ReplaceAll(req.Details.CardNumber, " ", "")),
			ExpMonth: stripe.Int64(month),
			ExpYear:  stripe.Int64(year),
			CVC:      stripe.String(req.Details.CVV),
		},
	}
	pmParams.Context = ctx
	pm, err := p.api.NewPaymentMethod(pmParams)
	if err != nil {
		return ChargeResult{}, p.classify("create payment method", err)
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minorUnits(req.Amount)),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod:      stripe.String(pm.ID),
		Description:        stripe.String(req.Description),
		ConfirmationMethod: stripe.String("manual"),
		Confirm:            stripe.Bool(true),
		PaymentMethodTypes: []*string{stripe.String("card")},
	}
	piParams.Context = ctx
	piParams.SetIdempotencyKey(req.IdempotencyKey)
	piParams.AddMetadata("idempotency_key", req.IdempotencyKey)

	pi, err := p.api.NewPaymentIntent(piParams)
	if err != nil {
		return ChargeResult{}, p.classify("create payment intent", err)
	}

	if pi.Status == stripe.PaymentIntentStatusProcessing {
		pi, err = p.awaitSettlement(ctx, pi)
		if err != nil {
			return ChargeResult{}, err
		}
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		p.log.Info("STRIPE", fmt.Sprintf("Payment intent %s succeeded (key %s)", pi.ID, req.IdempotencyKey))
		return ChargeResult{Reference: pi.ID}, nil
	case stripe.PaymentIntentStatusProcessing:
		p.log.Warn("STRIPE", fmt.Sprintf("Payment intent %s still processing (key %s)", pi.ID, req.IdempotencyKey))
		return ChargeResult{}, &DeclineError{Reason: fmt.Sprintf("payment %s has not settled, check with your bank before retrying", pi.ID)}
	case stripe.PaymentIntentStatusRequiresAction:
		return ChargeResult{}, &DeclineError{Reason: "card requires additional authentication"}
	default:
		p.log.Error("STRIPE", fmt.Sprintf("Payment intent %s ended as %s", pi.ID, pi.Status))
		return ChargeResult{}, &DeclineError{Reason: fmt.Sprintf("payment %s", pi.Status)}
	}
}

// awaitSettlement re-reads a processing intent until it leaves that state,
// the attempts run out, or ctx is done.
func (p *StripeProcessor) awaitSettlement(ctx context.Context, pi *stripe.PaymentIntent) (*stripe.PaymentIntent, error) {
	for attempt := 0; attempt < p.PollAttempts && pi.Status == stripe.PaymentIntentStatusProcessing; attempt++ {
		timer := time.NewTimer(p.PollInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}

		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		latest, err := p.api.GetPaymentIntent(pi.ID, params)
		if err != nil {
			p.log.Warn("STRIPE", fmt.Sprintf("Failed to refresh payment intent %s: %v", pi.ID, err))
			continue
		}
		pi = latest
	}
	return pi, nil
}

// classify turns card errors into declines and everything else into a
// retryable unavailability.
func (p *StripeProcessor) classify(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeCard ||
			(stripeErr.Type == stripe.ErrorTypeInvalidRequest && stripeErr.HTTPStatusCode < http.StatusInternalServerError) {
			p.log.Warn("STRIPE", fmt.Sprintf("%s declined: %s", op, stripeErr.Msg))
			return &DeclineError{Reason: stripeErr.Msg}
		}
	}
	p.log.Error("STRIPE", fmt.Sprintf("%s failed: %v", op, err))
	return fmt.Errorf("%w: %s: %v", ErrProcessorUnavailable, op, err)
}

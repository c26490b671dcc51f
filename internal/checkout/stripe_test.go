package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"flyerxpress/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

type MockStripeAPI struct {
	mock.Mock
}

func (m *MockStripeAPI) NewPaymentMethod(params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
	args := m.Called(params)
	pm, _ := args.Get(0).(*stripe.PaymentMethod)
	return pm, args.Error(1)
}

func (m *MockStripeAPI) NewPaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func (m *MockStripeAPI) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(id)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func newTestStripe(api stripeAPI) *StripeProcessor {
	return &StripeProcessor{
		api:          api,
		log:          logger.NewLoggerWithWriter(io.Discard),
		PollInterval: time.Millisecond,
		PollAttempts: 3,
	}
}

func cardCharge() ChargeRequest {
	return ChargeRequest{
		Method:         MethodCard,
		Amount:         decimal.RequireFromString("80.00"),
		Currency:       "ZMW",
		Details:        Details{CardNumber: "4242 4242 4242 4242", Expiry: "12/30", CVV: "123"},
		IdempotencyKey: "chk-1-1",
		Description:    "3 x Jazz Night",
	}
}

func TestNewStripeProcessor_RequiresKey(t *testing.T) {
	_, err := NewStripeProcessor("", logger.NewLoggerWithWriter(io.Discard))
	assert.ErrorIs(t, err, ErrStripeClientInitFailed)
}

func TestStripeProcessor_Succeeds(t *testing.T) {
	api := new(MockStripeAPI)
	api.On("NewPaymentMethod", mock.MatchedBy(func(p *stripe.PaymentMethodParams) bool {
		return *p.Card.Number == "4242424242424242" && *p.Card.ExpMonth == 12 && *p.Card.ExpYear == 2030
	})).Return(&stripe.PaymentMethod{ID: "pm_1"}, nil)
	api.On("NewPaymentIntent", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
		return *p.Amount == 8000 && *p.Currency == "zmw" && *p.PaymentMethod == "pm_1" &&
			p.IdempotencyKey != nil && *p.IdempotencyKey == "chk-1-1"
	})).Return(&stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded}, nil)

	res, err := newTestStripe(api).Charge(context.Background(), cardCharge())
	require.NoError(t, err)
	assert.Equal(t, "pi_1", res.Reference)
	api.AssertExpectations(t)
}

func TestStripeProcessor_CardErrorIsDecline(t *testing.T) {
	api := new(MockStripeAPI)
	api.On("NewPaymentMethod", mock.Anything).Return(nil, &stripe.Error{
		Type:           stripe.ErrorTypeCard,
		Msg:            "Your card was declined.",
		HTTPStatusCode: 402,
	})

	_, err := newTestStripe(api).Charge(context.Background(), cardCharge())
	var decline *DeclineError
	require.ErrorAs(t, err, &decline)
	assert.Equal(t, "Your card was declined.", decline.Reason)
	api.AssertNotCalled(t, "NewPaymentIntent", mock.Anything)
}

func TestStripeProcessor_APIErrorIsUnavailable(t *testing.T) {
	api := new(MockStripeAPI)
	api.On("NewPaymentMethod", mock.Anything).Return(&stripe.PaymentMethod{ID: "pm_1"}, nil)
	api.On("NewPaymentIntent", mock.Anything).Return(nil, &stripe.Error{
		Type:           stripe.ErrorTypeAPI,
		HTTPStatusCode: 500,
	})

	_, err := newTestStripe(api).Charge(context.Background(), cardCharge())
	assert.ErrorIs(t, err, ErrProcessorUnavailable)
}

func TestStripeProcessor_RequiresActionIsDecline(t *testing.T) {
	api := new(MockStripeAPI)
	api.On("NewPaymentMethod", mock.Anything).Return(&stripe.PaymentMethod{ID: "pm_1"}, nil)
	api.On("NewPaymentIntent", mock.Anything).
		Return(&stripe.PaymentIntent{ID: "pi_2", Status: stripe.PaymentIntentStatusRequiresAction}, nil)

	_, err := newTestStripe(api).Charge(context.Background(), cardCharge())
	var decline *DeclineError
	assert.ErrorAs(t, err, &decline)
}

func TestStripeProcessor_ProcessingWaitsForSettlement(t *testing.T) {
	api := new(MockStripeAPI)
	api.On("NewPaymentMethod", mock.Anything).Return(&stripe.PaymentMethod{ID: "pm_1"}, nil)
	api.On("NewPaymentIntent", mock.Anything).
		Return(&stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusProcessing}, nil)
	api.On("GetPaymentIntent", "pi_3").
		Return(&stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusProcessing}, nil).Once()
	api.On("GetPaymentIntent", "pi_3").
		Return(&stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusSucceeded}, nil).Once()

	res, err := newTestStripe(api).Charge(context.Background(), cardCharge())
	require.NoError(t, err)
	assert.Equal(t, "pi_3", res.Reference)
	api.AssertNumberOfCalls(t, "GetPaymentIntent", 2)
}

func TestStripeProcessor_UnsettledIsNotSuccess(t *testing.T) {
	api := new(MockStripeAPI)
	api.On("NewPaymentMethod", mock.Anything).Return(&stripe.PaymentMethod{ID: "pm_1"}, nil)
	api.On("NewPaymentIntent", mock.Anything).
		Return(&stripe.PaymentIntent{ID: "pi_4", Status: stripe.PaymentIntentStatusProcessing}, nil)
	api.On("GetPaymentIntent", "pi_4").
		Return(&stripe.PaymentIntent{ID: "pi_4", Status: stripe.PaymentIntentStatusProcessing}, nil)

	res, err := newTestStripe(api).Charge(context.Background(), cardCharge())
	var decline *DeclineError
	require.ErrorAs(t, err, &decline)
	assert.Contains(t, decline.Reason, "pi_4")
	assert.Empty(t, res.Reference)
	api.AssertNumberOfCalls(t, "GetPaymentIntent", 3)
}

func TestStripeProcessor_RejectsOtherMethods(t *testing.T) {
	req := cardCharge()
	req.Method = MethodCrypto
	_, err := newTestStripe(new(MockStripeAPI)).Charge(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestParseExpiry(t *testing.T) {
	m, y, err := parseExpiry("07/2031")
	require.NoError(t, err)
	assert.Equal(t, int64(7), m)
	assert.Equal(t, int64(2031), y)

	for _, bad := range []string{"", "13/30", "0730", "ab/cd"} {
		_, _, err := parseExpiry(bad)
		assert.Error(t, err, bad)
	}
}

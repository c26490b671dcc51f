package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	calls  []ChargeRequest
	result ChargeResult
	err    error
}

func (p *stubProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	p.calls = append(p.calls, req)
	return p.result, p.err
}

func approving() *stubProcessor {
	return &stubProcessor{result: ChargeResult{Reference: "TXN-TEST"}}
}

func newTestWizard(t *testing.T, qty int) *Wizard {
	w, err := NewWizard("chk-1", "listing-1", "Jazz Night", "buyer-1", decimal.RequireFromString("25.00"), "ZMW", qty)
	require.NoError(t, err)
	return w
}

func mobileDetails() Details {
	return Details{MobileNumber: "0977123456", PIN: "1234"}
}

func TestNewWizard_RejectsZeroQuantity(t *testing.T) {
	_, err := NewWizard("chk-1", "listing-1", "Jazz Night", "buyer-1", decimal.NewFromInt(10), "ZMW", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGrandTotal_IncludesMethodFee(t *testing.T) {
	w := newTestWizard(t, 3)
	assert.True(t, w.GrandTotal().Equal(decimal.RequireFromString("75.00")))

	require.NoError(t, w.SelectMethod(MethodMobileMoney))
	assert.True(t, w.GrandTotal().Equal(decimal.RequireFromString("77.50")), w.GrandTotal().String())

	require.NoError(t, w.SetQuantity(1))
	assert.True(t, w.GrandTotal().Equal(decimal.RequireFromString("27.50")))
}

func TestFullMobileMoneyFlow(t *testing.T) {
	w := newTestWizard(t, 3)
	p := approving()

	require.NoError(t, w.SelectMethod(MethodMobileMoney))
	require.NoError(t, w.UpdateDetails(mobileDetails()))
	require.NoError(t, w.Submit(context.Background(), p))
	assert.Equal(t, StateAwaitingVerification, w.State)
	assert.Empty(t, p.calls, "nothing is charged before verification")

	require.NoError(t, w.Verify(context.Background(), "123456", p))
	assert.Equal(t, StateCompleted, w.State)
	assert.Equal(t, "TXN-TEST", w.TransactionID)
	assert.True(t, w.FinalTotal.Equal(decimal.RequireFromString("77.50")))
	assert.Equal(t, Details{}, w.Details)

	require.Len(t, p.calls, 1)
	assert.Equal(t, "chk-1-1", p.calls[0].IdempotencyKey)
	assert.True(t, p.calls[0].Amount.Equal(decimal.RequireFromString("77.50")))
}

func TestVerify_RequiresSixCharacters(t *testing.T) {
	for _, code := range []string{"", "12345", "1234567"} {
		w := newTestWizard(t, 1)
		p := approving()
		require.NoError(t, w.SelectMethod(MethodCard))
		require.NoError(t, w.UpdateDetails(Details{CardNumber: "4242424242424242", Expiry: "12/30", CVV: "123"}))
		require.NoError(t, w.Submit(context.Background(), p))

		err := w.Verify(context.Background(), code, p)
		assert.ErrorIs(t, err, ErrInvalidVerificationCode, code)
		assert.Equal(t, StateAwaitingVerification, w.State)
		assert.Empty(t, p.calls)
	}
}

func TestSubmit_MissingFieldsStaysInDetails(t *testing.T) {
	w := newTestWizard(t, 1)
	require.NoError(t, w.SelectMethod(MethodMobileMoney))
	require.NoError(t, w.UpdateDetails(Details{MobileNumber: "0977123456"}))

	err := w.Submit(context.Background(), approving())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "pin")
	assert.Equal(t, StateEnteringDetails, w.State)
}

func TestSubmit_BankTransferChargesImmediately(t *testing.T) {
	w := newTestWizard(t, 2)
	p := approving()
	require.NoError(t, w.SelectMethod(MethodBankTransfer))
	require.NoError(t, w.UpdateDetails(Details{Email: "a@b.c"}))

	require.NoError(t, w.Submit(context.Background(), p))
	assert.Equal(t, StateCompleted, w.State)
	assert.True(t, w.GrandTotal().Equal(decimal.RequireFromString("51.00")))
}

func TestSubmit_CryptoNeedsNoDetails(t *testing.T) {
	w := newTestWizard(t, 1)
	require.NoError(t, w.SelectMethod(MethodCrypto))
	require.NoError(t, w.Submit(context.Background(), approving()))
	assert.Equal(t, StateCompleted, w.State)
}

func TestDecline_FailsAndRetryKeepsDetails(t *testing.T) {
	w := newTestWizard(t, 1)
	p := &stubProcessor{err: &DeclineError{Reason: "insufficient funds"}}
	require.NoError(t, w.SelectMethod(MethodMobileMoney))
	require.NoError(t, w.UpdateDetails(mobileDetails()))
	require.NoError(t, w.Submit(context.Background(), p))

	err := w.Verify(context.Background(), "654321", p)
	require.Error(t, err)
	assert.Equal(t, StateFailed, w.State)
	assert.Equal(t, "insufficient funds", w.FailureReason)
	assert.Empty(t, w.TransactionID)

	require.NoError(t, w.Retry())
	assert.Equal(t, StateEnteringDetails, w.State)
	assert.Equal(t, mobileDetails(), w.Details)
	assert.Empty(t, w.FailureReason)

	p.err = nil
	p.result = ChargeResult{Reference: "TXN-2"}
	require.NoError(t, w.Submit(context.Background(), p))
	require.NoError(t, w.Verify(context.Background(), "654321", p))
	assert.Equal(t, StateCompleted, w.State)
	assert.Equal(t, "chk-1-2", p.calls[1].IdempotencyKey)
}

func TestProcessorUnavailable_Fails(t *testing.T) {
	w := newTestWizard(t, 1)
	require.NoError(t, w.SelectMethod(MethodCrypto))

	err := w.Submit(context.Background(), &stubProcessor{err: ErrProcessorUnavailable})
	assert.ErrorIs(t, err, ErrProcessorUnavailable)
	assert.Equal(t, StateFailed, w.State)
	assert.Equal(t, "payment processor unavailable", w.FailureReason)
}

func TestEmptyReference_Fails(t *testing.T) {
	w := newTestWizard(t, 1)
	require.NoError(t, w.SelectMethod(MethodCrypto))

	require.Error(t, w.Submit(context.Background(), &stubProcessor{}))
	assert.Equal(t, StateFailed, w.State)
	assert.Empty(t, w.TransactionID)
}

func TestCancelledContext_LeavesState(t *testing.T) {
	w := newTestWizard(t, 1)
	require.NoError(t, w.SelectMethod(MethodCrypto))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Submit(ctx, &stubProcessor{err: context.Canceled})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateEnteringDetails, w.State)
}

func TestCancel_FromEveryOpenState(t *testing.T) {
	steps := map[State]func(w *Wizard){
		StateSelectingMethod: func(w *Wizard) {},
		StateEnteringDetails: func(w *Wizard) {
			require.NoError(t, w.SelectMethod(MethodMobileMoney))
			require.NoError(t, w.UpdateDetails(mobileDetails()))
		},
		StateAwaitingVerification: func(w *Wizard) {
			require.NoError(t, w.SelectMethod(MethodMobileMoney))
			require.NoError(t, w.UpdateDetails(mobileDetails()))
			require.NoError(t, w.Submit(context.Background(), approving()))
		},
		StateFailed: func(w *Wizard) {
			require.NoError(t, w.SelectMethod(MethodCrypto))
			require.Error(t, w.Submit(context.Background(), &stubProcessor{err: &DeclineError{Reason: "no"}}))
		},
	}
	for state, setup := range steps {
		t.Run(string(state), func(t *testing.T) {
			w := newTestWizard(t, 1)
			setup(w)
			require.Equal(t, state, w.State)

			require.NoError(t, w.Cancel())
			assert.Equal(t, StateCancelled, w.State)
			assert.Empty(t, w.TransactionID)
			assert.Equal(t, Details{}, w.Details)
			assert.Empty(t, w.Method)
		})
	}
}

func TestTerminalStatesRejectActions(t *testing.T) {
	w := newTestWizard(t, 1)
	require.NoError(t, w.SelectMethod(MethodCrypto))
	require.NoError(t, w.Submit(context.Background(), approving()))
	require.Equal(t, StateCompleted, w.State)

	assert.ErrorIs(t, w.Cancel(), ErrInvalidTransition)
	assert.ErrorIs(t, w.SetQuantity(4), ErrInvalidTransition)
	assert.ErrorIs(t, w.Back(), ErrInvalidTransition)
	assert.True(t, w.GrandTotal().Equal(decimal.RequireFromString("28.00")))
}

func TestBack(t *testing.T) {
	w := newTestWizard(t, 1)
	assert.ErrorIs(t, w.Back(), ErrInvalidTransition)

	require.NoError(t, w.SelectMethod(MethodMobileMoney))
	require.NoError(t, w.UpdateDetails(mobileDetails()))
	require.NoError(t, w.Submit(context.Background(), approving()))

	require.NoError(t, w.Back())
	assert.Equal(t, StateEnteringDetails, w.State)
	assert.Equal(t, mobileDetails(), w.Details)

	require.NoError(t, w.Back())
	assert.Equal(t, StateSelectingMethod, w.State)
	assert.Empty(t, w.Method)
	assert.Equal(t, Details{}, w.Details)
}

func TestSelectMethod_Unknown(t *testing.T) {
	w := newTestWizard(t, 1)
	assert.ErrorIs(t, w.SelectMethod("cheque"), ErrUnknownMethod)
	assert.Equal(t, StateSelectingMethod, w.State)
}

func TestDetailsMasked(t *testing.T) {
	d := Details{CardNumber: "4242424242424242", CVV: "123", PIN: "9999", Expiry: "12/30"}.Masked()
	assert.Equal(t, "************4242", d.CardNumber)
	assert.Equal(t, "***", d.CVV)
	assert.Equal(t, "****", d.PIN)
	assert.Equal(t, "12/30", d.Expiry)
}

func TestCryptoQuotes(t *testing.T) {
	quotes := CryptoQuotes(decimal.RequireFromString("90.00"))
	require.Len(t, quotes, 3)
	assert.Equal(t, "BTC", quotes[0].Currency)
	assert.True(t, quotes[0].Amount.Equal(decimal.NewFromInt(200000)), quotes[0].Amount.String())
	assert.True(t, quotes[1].Amount.Equal(decimal.RequireFromString("0.036")), quotes[1].Amount.String())
	assert.True(t, quotes[2].Amount.Equal(decimal.RequireFromString("90")))
}

func TestMethodsCatalogue(t *testing.T) {
	methods := Methods()
	require.Len(t, methods, 4)
	assert.Equal(t, MethodMobileMoney, methods[0].ID)
	assert.True(t, methods[0].Fee.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, methods[0].RequiresVerification)
	assert.False(t, methods[2].RequiresVerification)

	methods[0].Name = "changed"
	info, err := LookupMethod(MethodMobileMoney)
	require.NoError(t, err)
	assert.Equal(t, "Mobile Money", info.Name)
}

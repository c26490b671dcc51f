package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateSelectingMethod      State = "selecting_method"
	StateEnteringDetails      State = "entering_details"
	StateAwaitingVerification State = "awaiting_verification"
	StateCompleted            State = "completed"
	StateCancelled            State = "cancelled"
	StateFailed               State = "failed"
)

const verificationCodeLength = 6

var (
	ErrValidation              = errors.New("payment details incomplete")
	ErrInvalidTransition       = errors.New("action not allowed in current state")
	ErrInvalidVerificationCode = errors.New("verification code must be 6 characters")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
)

// Details holds the method-specific fields a buyer enters.
type Details struct {
	MobileNumber   string `json:"mobile_number,omitempty"`
	PIN            string `json:"pin,omitempty"`
	CardNumber     string `json:"card_number,omitempty"`
	Expiry         string `json:"expiry,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	Email          string `json:"email,omitempty"`
	CryptoCurrency string `json:"crypto_currency,omitempty"`
}

// Missing lists the required fields for m that are blank.
func (d Details) Missing(m Method) []string {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	switch m {
	case MethodMobileMoney:
		require("mobile_number", d.MobileNumber)
		require("pin", d.PIN)
	case MethodCard:
		require("card_number", d.CardNumber)
		require("expiry", d.Expiry)
		require("cvv", d.CVV)
	case MethodBankTransfer:
		require("email", d.Email)
	}
	return missing
}

// Masked hides the PIN and CVV and all but the last four card digits.
func (d Details) Masked() Details {
	out := d
	if out.PIN != "" {
		out.PIN = "****"
	}
	if out.CVV != "" {
		out.CVV = "***"
	}
	if n := len(out.CardNumber); n > 0 {
		keep := 4
		if n < keep {
			keep = n
		}
		out.CardNumber = strings.Repeat("*", n-keep) + out.CardNumber[n-keep:]
	}
	return out
}

// Wizard is one checkout attempt for a single listing. It is plain data so a
// snapshot can be stored between requests.
type Wizard struct {
	ID            string          `json:"id"`
	ListingID     string          `json:"listing_id"`
	ListingTitle  string          `json:"listing_title"`
	BuyerID       string          `json:"buyer_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Currency      string          `json:"currency"`
	Quantity      int             `json:"quantity"`
	State         State           `json:"state"`
	Method        Method          `json:"method,omitempty"`
	Details       Details         `json:"details"`
	Attempts      int             `json:"attempts"`
	TransactionID string          `json:"transaction_id,omitempty"`
	FinalTotal    decimal.Decimal `json:"final_total"`
	FailureReason string          `json:"failure_reason,omitempty"`
	TicketIDs     []string        `json:"ticket_ids,omitempty"`
}

func NewWizard(id, listingID, listingTitle, buyerID string, unitPrice decimal.Decimal, currency string, quantity int) (*Wizard, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return &Wizard{
		ID:           id,
		ListingID:    listingID,
		ListingTitle: listingTitle,
		BuyerID:      buyerID,
		UnitPrice:    unitPrice,
		Currency:     currency,
		Quantity:     quantity,
		State:        StateSelectingMethod,
	}, nil
}

func (w *Wizard) Terminal() bool {
	return w.State == StateCompleted || w.State == StateCancelled
}

func (w *Wizard) Subtotal() decimal.Decimal {
	return w.UnitPrice.Mul(decimal.NewFromInt(int64(w.Quantity)))
}

// Fee is the flat fee of the selected method, or zero before one is chosen.
func (w *Wizard) Fee() decimal.Decimal {
	info, err := LookupMethod(w.Method)
	if err != nil {
		return decimal.Zero
	}
	return info.Fee
}

// GrandTotal is recomputed on every call until the order completes, after
// which the charged amount is returned.
func (w *Wizard) GrandTotal() decimal.Decimal {
	if w.State == StateCompleted {
		return w.FinalTotal
	}
	return w.Subtotal().Add(w.Fee())
}

func (w *Wizard) transitionError(action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, w.State)
}

func (w *Wizard) SetQuantity(quantity int) error {
	if w.State != StateSelectingMethod && w.State != StateEnteringDetails {
		return w.transitionError("change quantity")
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	w.Quantity = quantity
	return nil
}

func (w *Wizard) SelectMethod(m Method) error {
	if w.State != StateSelectingMethod {
		return w.transitionError("select a method")
	}
	if _, err := LookupMethod(m); err != nil {
		return err
	}
	w.Method = m
	w.Details = Details{}
	w.State = StateEnteringDetails
	return nil
}

// UpdateDetails replaces the entered details.
func (w *Wizard) UpdateDetails(d Details) error {
	if w.State != StateEnteringDetails {
		return w.transitionError("enter details")
	}
	w.Details = d
	return nil
}

// Submit leaves EnteringDetails. Methods with a second factor move to
// AwaitingVerification; the rest are charged immediately.
func (w *Wizard) Submit(ctx context.Context, p Processor) error {
	if w.State != StateEnteringDetails {
		return w.transitionError("submit")
	}
	info, err := LookupMethod(w.Method)
	if err != nil {
		return err
	}
	if missing := w.Details.Missing(w.Method); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if info.RequiresVerification {
		w.State = StateAwaitingVerification
		return nil
	}
	return w.charge(ctx, p)
}

// Verify checks the second-factor code and then charges.
func (w *Wizard) Verify(ctx context.Context, code string, p Processor) error {
	if w.State != StateAwaitingVerification {
		return w.transitionError("verify")
	}
	if utf8.RuneCountInString(code) != verificationCodeLength {
		return ErrInvalidVerificationCode
	}
	return w.charge(ctx, p)
}

// charge asks the processor to move the money. A decline or an exhausted
// processor moves the wizard to Failed; a cancelled context leaves it as is.
func (w *Wizard) charge(ctx context.Context, p Processor) error {
	w.Attempts++
	amount := w.GrandTotal()

	result, err := p.Charge(ctx, ChargeRequest{
		Method:         w.Method,
		Amount:         amount,
		Currency:       w.Currency,
		Details:        w.Details,
		IdempotencyKey: fmt.Sprintf("%s-%d", w.ID, w.Attempts),
		Description:    fmt.Sprintf("%d x %s", w.Quantity, w.ListingTitle),
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("charge interrupted: %w", ctx.Err())
		}
		var decline *DeclineError
		if errors.As(err, &decline) {
			w.FailureReason = decline.Reason
		} else {
			w.FailureReason = "payment processor unavailable"
		}
		w.State = StateFailed
		return err
	}
	if result.Reference == "" {
		w.FailureReason = "processor returned no reference"
		w.State = StateFailed
		return errors.New("processor returned no reference")
	}

	w.TransactionID = result.Reference
	w.FinalTotal = amount
	w.Details = Details{}
	w.State = StateCompleted
	return nil
}

// Back steps to the previous screen. Going back to method selection drops
// the entered details.
func (w *Wizard) Back() error {
	switch w.State {
	case StateAwaitingVerification:
		w.State = StateEnteringDetails
	case StateEnteringDetails:
		w.Method = ""
		w.Details = Details{}
		w.State = StateSelectingMethod
	default:
		return w.transitionError("go back")
	}
	return nil
}

// Retry returns a failed wizard to EnteringDetails with its details intact.
func (w *Wizard) Retry() error {
	if w.State != StateFailed {
		return w.transitionError("retry")
	}
	w.FailureReason = ""
	w.State = StateEnteringDetails
	return nil
}

// Cancel discards everything entered. Nothing is charged before completion,
// so any state short of Completed may cancel.
func (w *Wizard) Cancel() error {
	if w.Terminal() {
		return w.transitionError("cancel")
	}
	w.Method = ""
	w.Details = Details{}
	w.FailureReason = ""
	w.State = StateCancelled
	return nil
}

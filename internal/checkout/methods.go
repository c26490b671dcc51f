package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodMobileMoney  Method = "mobile_money"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodCrypto       Method = "crypto"
)

var ErrUnknownMethod = errors.New("unknown payment method")

// MethodInfo describes a payment method. ProcessingTime is display text only.
type MethodInfo struct {
	ID                   Method          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Fee                  decimal.Decimal `json:"fee"`
	ProcessingTime       string          `json:"processing_time"`
	RequiresVerification bool            `json:"requires_verification"`
}

var catalogue = []MethodInfo{
	{
		ID:                   MethodMobileMoney,
		Name:                 "Mobile Money",
		Description:          "Pay with Airtel Money, MTN Mobile Money, or Zamtel",
		Fee:                  decimal.RequireFromString("2.50"),
		ProcessingTime:       "Instant",
		RequiresVerification: true,
	},
	{
		ID:                   MethodCard,
		Name:                 "Credit/Debit Card",
		Description:          "Visa, Mastercard, or American Express",
		Fee:                  decimal.RequireFromString("5.00"),
		ProcessingTime:       "2-3 minutes",
		RequiresVerification: true,
	},
	{
		ID:             MethodBankTransfer,
		Name:           "Bank Transfer",
		Description:    "Direct bank transfer to your account",
		Fee:            decimal.RequireFromString("1.00"),
		ProcessingTime: "1-2 hours",
	},
	{
		ID:             MethodCrypto,
		Name:           "Cryptocurrency",
		Description:    "Pay with Bitcoin, Ethereum, or USDT",
		Fee:            decimal.RequireFromString("3.00"),
		ProcessingTime: "5-10 minutes",
	},
}

// Methods returns the catalogue in display order.
func Methods() []MethodInfo {
	out := make([]MethodInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

func LookupMethod(m Method) (MethodInfo, error) {
	for _, info := range catalogue {
		if info.ID == m {
			return info, nil
		}
	}
	return MethodInfo{}, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
}

// CryptoQuote is an indicative amount at a fixed reference rate. It is never charged.
type CryptoQuote struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Unit     string          `json:"unit"`
}

var (
	btcReferenceRate = decimal.NewFromInt(45000)
	ethReferenceRate = decimal.NewFromInt(2500)
	satsPerBTC       = decimal.NewFromInt(100_000_000)
)

func CryptoQuotes(total decimal.Decimal) []CryptoQuote {
	return []CryptoQuote{
		{Currency: "BTC", Amount: total.Div(btcReferenceRate).Mul(satsPerBTC).Round(0), Unit: "sats"},
		{Currency: "ETH", Amount: total.Div(ethReferenceRate).Round(4), Unit: "ETH"},
		{Currency: "USDT", Amount: total.Round(2), Unit: "USDT"},
	}
}

package template

import (
	"bytes"
	"testing"
	"time"

	"flyerxpress/internal/models"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	qr, err := qrcode.Encode("payload", qrcode.Medium, 256)
	require.NoError(t, err)

	ticket := models.Ticket{
		TicketID:      "ticket-1",
		OrderID:       "chk-1",
		ListingID:     "listing-1",
		ListingTitle:  "Jazz Night",
		TransactionID: "TXN-ABC",
		PricePaid:     decimal.RequireFromString("25.00"),
		IssuedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	for name, code := range map[string][]byte{"with qr": qr, "without qr": nil, "broken qr": []byte("nope")} {
		t.Run(name, func(t *testing.T) {
			data, err := NewTicketPDFGenerator("Generated by FlyerXpress").Generate(ticket, code)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
		})
	}
}

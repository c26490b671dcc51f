package qr

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() Payload {
	return Payload{
		TicketID:      "ticket-1",
		OrderID:       "chk-1",
		ListingID:     "listing-1",
		BuyerID:       "buyer-1",
		TransactionID: "TXN-ABC",
		IssuedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncryptDecrypt(t *testing.T) {
	gen := NewQRGenerator("secret")

	encrypted, err := gen.Encrypt(testPayload())
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "ticket-1")

	got, err := gen.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, testPayload(), got)
}

func TestDecrypt_WrongSecret(t *testing.T) {
	encrypted, err := NewQRGenerator("secret").Encrypt(testPayload())
	require.NoError(t, err)

	_, err = NewQRGenerator("other").Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = NewQRGenerator("secret").Decrypt("not base64!")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestGenerateEncryptedQR_IsPNG(t *testing.T) {
	data, err := NewQRGenerator("secret").GenerateEncryptedQR(testPayload())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

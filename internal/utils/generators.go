package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateTransactionID returns an opaque reference backed by 122 random bits.
func GenerateTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func GenerateID() string {
	return uuid.NewString()
}

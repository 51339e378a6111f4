package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

const bookingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateBookingCode returns an 8-character code for front-desk lookup.
func GenerateBookingCode() (string, error) {
	const length = 8
	max := big.NewInt(int64(len(bookingCodeAlphabet)))

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = bookingCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

package repository

import (
	"fmt"

	"github.com/google/uuid"
)

func errBookingNotFound(id uuid.UUID) error {
	return fmt.Errorf("booking %s not found", id)
}

func errPaymentNotFound(id uuid.UUID) error {
	return fmt.Errorf("payment attempt %s not found", id)
}

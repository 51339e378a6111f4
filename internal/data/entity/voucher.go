package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Voucher is a single-use discount. Redeemed moves false -> true once.
type Voucher struct {
	Base
	Code       string     `db:"code"`
	OwnerID    *uuid.UUID `db:"owner_id"`
	BranchID   *uuid.UUID `db:"branch_id"`
	Value      float64    `db:"value"`
	ExpiresAt  time.Time  `db:"expires_at"`
	Redeemed   bool       `db:"redeemed"`
	RedeemedBy *uuid.UUID `db:"redeemed_by"`
	RedeemedAt *time.Time `db:"redeemed_at"`
	BookingID  *uuid.UUID `db:"booking_id"`
}

// UsableBy reports whether userID may redeem the voucher. Unowned vouchers are open to anyone.
func (v *Voucher) UsableBy(userID uuid.UUID) bool {
	return v.OwnerID == nil || *v.OwnerID == userID
}

func (v *Voucher) IsExpired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}

// NormalizeVoucherCode upper-cases and trims a code as entered by a customer.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

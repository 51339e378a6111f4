package response

import (
	"time"

	"barber-booking/internal/data/entity"
)

type VoucherResponse struct {
	Code      string    `json:"code"`
	Value     float64   `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Valid     bool      `json:"valid"`
}

func VoucherToResponse(v *entity.Voucher) VoucherResponse {
	return VoucherResponse{
		Code:      v.Code,
		Value:     v.Value,
		ExpiresAt: v.ExpiresAt,
		Valid:     true,
	}
}

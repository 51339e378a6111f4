package request

type ValidateVoucherRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

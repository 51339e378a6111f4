package adaptor

import (
	"errors"
	"net/http"

	"barber-booking/internal/usecase"
	"barber-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var kindStatus = map[usecase.ErrorKind]int{
	usecase.KindValidation:             http.StatusBadRequest,
	usecase.KindPaymentFailed:          http.StatusPaymentRequired,
	usecase.KindForbidden:              http.StatusForbidden,
	usecase.KindNotFound:               http.StatusNotFound,
	usecase.KindSlotConflict:           http.StatusConflict,
	usecase.KindVoucherNotFound:        http.StatusConflict,
	usecase.KindVoucherExpired:         http.StatusConflict,
	usecase.KindVoucherAlreadyRedeemed: http.StatusConflict,
	usecase.KindInvalidTransition:      http.StatusUnprocessableEntity,
}

// errorBody is the "errors" member of a failed response.
type errorBody struct {
	Kind    usecase.ErrorKind `json:"kind"`
	Details map[string]string `json:"details,omitempty"`
}

// handleServiceError maps a usecase error to its HTTP status. Unexpected errors are logged and hidden.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var e *usecase.Error
	if !errors.As(err, &e) {
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	status, ok := kindStatus[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	log.Warn(operation+" failed",
		zap.String("kind", string(e.Kind)),
		zap.String("message", e.Message),
		zap.String("operation", operation))
	utils.ResponseJSON(w, status, false, e.Message, nil, errorBody{Kind: e.Kind, Details: e.Details})
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name, map[string]string{name: "Must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

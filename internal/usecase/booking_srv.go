package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/internal/dto/request"
	"barber-booking/internal/dto/response"
	"barber-booking/pkg/metrics"
	"barber-booking/pkg/payment"
	"barber-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	UserID uuid.UUID
	Staff  bool
}

type BookingService interface {
	// Customer endpoints
	CreateBooking(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.CreateBookingResponse, error)
	PayBooking(ctx context.Context, customerID, bookingID uuid.UUID, req *request.PayBookingRequest) (*response.PaymentResponse, error)
	PayLater(ctx context.Context, customerID, bookingID uuid.UUID) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.BookingResponse, error)
	ListCustomerBookings(ctx context.Context, customerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	ValidateVoucher(ctx context.Context, customerID uuid.UUID, req *request.ValidateVoucherRequest) (*response.VoucherResponse, error)

	// AdvanceBooking moves a booking along its lifecycle. Customers may only cancel their own bookings.
	AdvanceBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, target entity.BookingStatus) (*response.BookingResponse, error)

	// Staff endpoints
	GetBookingByCode(ctx context.Context, code string) (*response.BookingResponse, error)
	GetBookingsForBarberAndDate(ctx context.Context, barberID uuid.UUID, date string) ([]response.BookingResponse, error)

	// HandlePaymentWebhook reconciles an out-of-band provider notification.
	HandlePaymentWebhook(ctx context.Context, header http.Header, body []byte) (*response.BookingResponse, error)
}

type bookingService struct {
	repo         *repository.Repository
	availability AvailabilityService
	guard        *ConflictGuard
	vouchers     *VoucherLedger
	states       *BookingStateMachine
	payments     *PaymentOrchestrator
	cfg          engineConfig
	log          *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	availability AvailabilityService,
	guard *ConflictGuard,
	vouchers *VoucherLedger,
	states *BookingStateMachine,
	payments *PaymentOrchestrator,
	cfg engineConfig,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:         repo,
		availability: availability,
		guard:        guard,
		vouchers:     vouchers,
		states:       states,
		payments:     payments,
		cfg:          cfg,
		log:          log.With(zap.String("service", "booking")),
	}
}

// bookingTarget is a validated, fully resolved creation request.
type bookingTarget struct {
	service *entity.Service
	branch  *entity.Branch
	barber  *entity.Barber
	date    string
	time    string
}

func (s *bookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.CreateBookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	target, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	// Voucher problems never block the booking; the error is reported alongside it.
	var (
		voucher    *entity.Voucher
		voucherErr error
	)
	if req.VoucherCode != "" {
		voucher, voucherErr = s.vouchers.Validate(ctx, req.VoucherCode, customerID)
		if voucherErr != nil && !isVoucherError(voucherErr) {
			return nil, voucherErr
		}
	}

	day, _ := entity.ParseDate(target.date)
	code, err := utils.GenerateBookingCode()
	if err != nil {
		return nil, fmt.Errorf("generate booking code: %w", err)
	}

	now := s.cfg.now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingCode:   code,
		CustomerID:    customerID,
		ServiceID:     target.service.ID,
		BarberID:      &target.barber.ID,
		BranchID:      target.branch.ID,
		Date:          day,
		Time:          target.time,
		Status:        entity.BookingStatusBooked,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Price:         target.service.Price,
	}
	if req.Notes != "" {
		booking.Notes = &req.Notes
	}
	if voucher != nil {
		booking.VoucherID = &voucher.ID
		booking.ApplyDiscount(voucher.Value)
	} else {
		booking.ApplyDiscount(0)
	}

	paymentType := entity.PaymentType(req.PaymentType)
	if paymentType == entity.PaymentTypePayNow && !s.payments.Supports(req.PaymentMethod) {
		return nil, fieldError("payment_method", fmt.Sprintf("Payment method %q is not supported", req.PaymentMethod))
	}

	key := SlotKey{BarberID: target.barber.ID, Date: day, Time: target.time}
	if err := s.guard.Reserve(ctx, key, func(tx *repository.Repository) error {
		return tx.Booking.Create(ctx, booking)
	}); err != nil {
		if KindOf(err) == "" {
			s.log.Error("Failed to create booking",
				zap.Error(err),
				zap.String("customer_id", customerID.String()),
				zap.String("barber_id", target.barber.ID.String()),
			)
			return nil, fmt.Errorf("create booking: %w", err)
		}
		return nil, err
	}

	metrics.IncBookingCreated(string(paymentType))
	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_code", booking.BookingCode),
		zap.String("customer_id", customerID.String()),
		zap.String("barber_id", target.barber.ID.String()),
		zap.String("date", target.date),
		zap.String("time", target.time),
		zap.Float64("final_price", booking.FinalPrice),
	)

	if voucher != nil {
		if _, err := s.vouchers.Redeem(ctx, voucher.Code, customerID, booking.ID); err != nil {
			voucherErr = err
			s.dropVoucher(ctx, booking, err)
		}
	}
	s.states.Announce(ctx, booking)

	resp := &response.CreateBookingResponse{}
	if voucherErr != nil {
		resp.VoucherError = toVoucherError(voucherErr)
	}

	switch paymentType {
	case entity.PaymentTypePayLater:
		confirmed, err := s.states.Transition(ctx, booking.ID, entity.BookingStatusConfirmed)
		if err != nil {
			return nil, err
		}
		booking = confirmed

	case entity.PaymentTypePayNow:
		customer, err := s.repo.Customer.FindByID(ctx, customerID)
		if err != nil {
			s.log.Warn("Failed to load customer for payment", zap.Error(err), zap.String("customer_id", customerID.String()))
		}
		result, err := s.payments.Pay(ctx, booking, req.PaymentMethod, req.PaymentToken, customer)
		if err != nil {
			return nil, err
		}
		booking = result.Booking
		resp.Payment = &response.PaymentInfo{
			Outcome:     string(result.Outcome),
			RedirectURL: result.RedirectURL,
			ExternalRef: result.ExternalRef,
		}
	}

	resp.Booking = response.BookingToResponse(booking)
	return resp, nil
}

// resolveTarget checks the catalog and picks the barber. Slots that have passed or fall outside
// operating hours are rejected here; the conflict guard has the final word on occupancy.
func (s *bookingService) resolveTarget(ctx context.Context, req *request.CreateBookingRequest) (*bookingTarget, error) {
	slotTime, err := entity.NormalizeSlotTime(req.Time)
	if err != nil {
		return nil, fieldError("time", "Must be a half-hour boundary in HH:MM format")
	}
	target := &bookingTarget{date: req.Date, time: slotTime}

	serviceID, _ := uuid.Parse(req.ServiceID)
	target.service, err = s.repo.Service.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if target.service == nil || !target.service.IsActive {
		return nil, newError(KindNotFound, "service %s not found", req.ServiceID)
	}

	var branchID uuid.UUID
	if req.BranchID != "" {
		branchID, _ = uuid.Parse(req.BranchID)
	}

	if req.BarberID != "" {
		barberID, _ := uuid.Parse(req.BarberID)
		target.barber, err = s.repo.Barber.FindByID(ctx, barberID)
		if err != nil {
			return nil, fmt.Errorf("find barber: %w", err)
		}
		if target.barber == nil || !target.barber.IsActive {
			return nil, newError(KindNotFound, "barber %s not found", req.BarberID)
		}
		if branchID != uuid.Nil && branchID != target.barber.BranchID {
			return nil, fieldError("barber_id", "Barber does not work at this branch")
		}
		if !target.barber.CanPerform(serviceID) {
			return nil, fieldError("barber_id", "Barber does not perform this service")
		}
		branchID = target.barber.BranchID
	} else if branchID == uuid.Nil {
		return nil, fieldError("branch_id", "This field is required when barber_id is omitted")
	}

	target.branch, err = s.repo.Branch.FindByID(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("find branch: %w", err)
	}
	if target.branch == nil || !target.branch.IsActive {
		return nil, newError(KindNotFound, "branch %s not found", branchID)
	}

	if target.barber != nil {
		seq, err := s.availability.GetAvailableSlots(ctx, branchID, target.barber.ID, target.date)
		if err != nil {
			return nil, err
		}
		if err := checkSlot(seq, target.time); err != nil {
			return nil, err
		}
		return target, nil
	}

	target.barber, err = s.pickBarber(ctx, target)
	if err != nil {
		return nil, err
	}
	return target, nil
}

// pickBarber returns the first active barber of the branch, by name, who performs the
// service and is free at the requested slot.
func (s *bookingService) pickBarber(ctx context.Context, target *bookingTarget) (*entity.Barber, error) {
	barbers, err := s.repo.Barber.FindByBranchID(ctx, target.branch.ID)
	if err != nil {
		return nil, fmt.Errorf("find barbers: %w", err)
	}

	capable := 0
	for _, barber := range barbers {
		if !barber.IsActive || !barber.CanPerform(target.service.ID) {
			continue
		}
		capable++

		seq, err := s.availability.GetAvailableSlots(ctx, target.branch.ID, barber.ID, target.date)
		if err != nil {
			return nil, err
		}
		if err := checkSlot(seq, target.time); err != nil {
			if KindOf(err) == KindSlotConflict {
				continue
			}
			return nil, err
		}

		s.log.Info("Barber assigned",
			zap.String("barber_id", barber.ID.String()),
			zap.String("branch_id", target.branch.ID.String()),
			zap.String("date", target.date),
			zap.String("time", target.time),
		)
		return barber, nil
	}

	if capable == 0 {
		return nil, fieldError("service_id", "No barber at this branch performs this service")
	}
	metrics.IncSlotConflict()
	return nil, newError(KindSlotConflict, "no barber is free at %s on %s, please pick another slot", target.time, target.date)
}

func checkSlot(seq *SlotSequence, clock string) error {
	slot, ok := seq.Lookup(clock)
	if !ok {
		return fieldError("time", "Outside the branch's operating hours")
	}
	switch slot.Reason {
	case entity.SlotReasonPast:
		return fieldError("time", "This slot has already passed")
	case entity.SlotReasonBooked:
		return newError(KindSlotConflict, "%s is no longer available, please pick another slot", clock)
	}
	return nil
}

// dropVoucher puts the booking back at full price after a failed redemption.
func (s *bookingService) dropVoucher(ctx context.Context, booking *entity.Booking, cause error) {
	s.log.Warn("Voucher not applied, booking continues at full price",
		zap.Error(cause),
		zap.String("booking_id", booking.ID.String()),
	)

	if err := s.repo.Booking.DropVoucher(ctx, booking.ID); err != nil {
		s.log.Error("Failed to drop voucher from booking", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return
	}
	booking.VoucherID = nil
	booking.ApplyDiscount(0)
}

// resumeVoucher finishes a redemption that was interrupted after the booking was stored.
// The voucher is consumed for this booking, or dropped so the booking continues at full price.
func (s *bookingService) resumeVoucher(ctx context.Context, b *entity.Booking) error {
	if b.VoucherID == nil || b.PaymentStatus == entity.PaymentStatusPaid {
		return nil
	}

	v, err := s.repo.Voucher.FindByID(ctx, *b.VoucherID)
	if err != nil {
		return fmt.Errorf("resume voucher for booking %s: %w", b.ID, err)
	}
	if v != nil && v.Redeemed && v.BookingID != nil && *v.BookingID == b.ID {
		return nil
	}
	if v == nil {
		s.dropVoucher(ctx, b, newError(KindVoucherNotFound, "voucher %s not found", *b.VoucherID))
		return nil
	}

	if _, err := s.vouchers.Redeem(ctx, v.Code, b.CustomerID, b.ID); err != nil {
		if KindOf(err) == "" {
			return err
		}
		s.dropVoucher(ctx, b, err)
		return nil
	}
	s.log.Info("Resumed voucher redemption",
		zap.String("booking_id", b.ID.String()),
		zap.String("code", v.Code),
	)
	return nil
}

func toVoucherError(err error) *response.VoucherError {
	var e *Error
	if errors.As(err, &e) {
		return &response.VoucherError{Kind: string(e.Kind), Message: e.Message}
	}
	return &response.VoucherError{Kind: "voucher_unavailable", Message: "voucher could not be applied"}
}

// ownBooking loads a booking visible to actor. Other customers' bookings are reported as missing.
func (s *bookingService) ownBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*entity.Booking, error) {
	b, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		s.log.Error("Failed to get booking", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	if b == nil || (!actor.Staff && b.CustomerID != actor.UserID) {
		return nil, newError(KindNotFound, "booking %s not found", bookingID)
	}
	return b, nil
}

func (s *bookingService) AdvanceBooking(ctx context.Context, actor Actor, bookingID uuid.UUID, target entity.BookingStatus) (*response.BookingResponse, error) {
	if !target.IsValid() {
		return nil, fieldError("status", fmt.Sprintf("Unknown booking status %q", target))
	}

	if _, err := s.ownBooking(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	if !actor.Staff && target != entity.BookingStatusCancelled {
		return nil, newError(KindForbidden, "only staff can mark a booking %s", target)
	}

	b, err := s.states.Transition(ctx, bookingID, target)
	if err != nil {
		if KindOf(err) == KindInvalidTransition {
			s.log.Warn("Rejected booking transition",
				zap.String("booking_id", bookingID.String()),
				zap.String("target", string(target)),
				zap.String("reason", err.Error()),
			)
		}
		return nil, err
	}

	resp := response.BookingToResponse(b)
	return &resp, nil
}

func (s *bookingService) PayBooking(ctx context.Context, customerID, bookingID uuid.UUID, req *request.PayBookingRequest) (*response.PaymentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	b, err := s.ownBooking(ctx, Actor{UserID: customerID}, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.resumeVoucher(ctx, b); err != nil {
		return nil, err
	}

	customer, err := s.repo.Customer.FindByID(ctx, customerID)
	if err != nil {
		s.log.Warn("Failed to load customer for payment", zap.Error(err), zap.String("customer_id", customerID.String()))
	}

	result, err := s.payments.Pay(ctx, b, req.PaymentMethod, req.PaymentToken, customer)
	if err != nil {
		return nil, err
	}

	return &response.PaymentResponse{
		Booking: response.BookingToResponse(result.Booking),
		Payment: response.PaymentInfo{
			Outcome:     string(result.Outcome),
			RedirectURL: result.RedirectURL,
			ExternalRef: result.ExternalRef,
		},
	}, nil
}

func (s *bookingService) PayLater(ctx context.Context, customerID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	b, err := s.ownBooking(ctx, Actor{UserID: customerID}, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.resumeVoucher(ctx, b); err != nil {
		return nil, err
	}

	b, err = s.states.Transition(ctx, bookingID, entity.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(b)
	return &resp, nil
}

// GetBooking includes the latest payment attempt so an unpaid booking can resume a pending redirect.
func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.BookingResponse, error) {
	b, err := s.ownBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(b)

	attempt, err := s.repo.Payment.FindLatestByBookingID(ctx, b.ID)
	if err != nil {
		s.log.Warn("Failed to load latest payment attempt", zap.Error(err), zap.String("booking_id", b.ID.String()))
	}
	if attempt != nil {
		resp.LastPayment = response.PaymentAttemptToInfo(attempt)
	}
	return &resp, nil
}

func (s *bookingService) GetBookingByCode(ctx context.Context, code string) (*response.BookingResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fieldError("code", "This field is required")
	}

	b, err := s.repo.Booking.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get booking by code %s: %w", code, err)
	}
	if b == nil {
		return nil, newError(KindNotFound, "booking %s not found", code)
	}

	resp := response.BookingToResponse(b)
	return &resp, nil
}

func (s *bookingService) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		s.log.Error("Failed to list customer bookings",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return nil, fmt.Errorf("list customer bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("count customer bookings: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(response.BookingsToResponse(bookings), page, limit, total), nil
}

func (s *bookingService) GetBookingsForBarberAndDate(ctx context.Context, barberID uuid.UUID, date string) ([]response.BookingResponse, error) {
	bookings, err := s.availability.GetBookingsForBarberAndDate(ctx, barberID, date)
	if err != nil {
		return nil, err
	}
	return response.BookingsToResponse(bookings), nil
}

func (s *bookingService) ValidateVoucher(ctx context.Context, customerID uuid.UUID, req *request.ValidateVoucherRequest) (*response.VoucherResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	v, err := s.vouchers.Validate(ctx, req.Code, customerID)
	if err != nil {
		return nil, err
	}

	resp := response.VoucherToResponse(v)
	return &resp, nil
}

func (s *bookingService) HandlePaymentWebhook(ctx context.Context, header http.Header, body []byte) (*response.BookingResponse, error) {
	n, err := s.payments.ParseWebhook(header, body)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidWebhook) {
			s.log.Warn("Rejected payment webhook", zap.Error(err))
			return nil, fieldError("body", "Unrecognised payment notification")
		}
		return nil, fmt.Errorf("parse payment webhook: %w", err)
	}

	b, err := s.payments.Reconcile(ctx, n)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, newError(KindNotFound, "booking for payment %s not found", n.Reference)
	}

	resp := response.BookingToResponse(b)
	return &resp, nil
}

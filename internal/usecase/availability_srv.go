package usecase

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AvailabilityService interface {
	GetAvailableSlots(ctx context.Context, branchID, barberID uuid.UUID, date string) (*SlotSequence, error)
	GetBookingsForBarberAndDate(ctx context.Context, barberID uuid.UUID, date string) ([]*entity.Booking, error)
}

// SlotSequence is a finite, restartable walk over a day's half-hour boundaries.
// Slots are computed while iterating; nothing is written.
type SlotSequence struct {
	date      time.Time
	startHour int
	endHour   int
	booked    map[string]bool
	now       time.Time
	loc       *time.Location
}

// All yields every slot in [start, end) in order. It can be ranged over any number of times.
func (s *SlotSequence) All() iter.Seq[entity.Slot] {
	return func(yield func(entity.Slot) bool) {
		for minutes := s.startHour * 60; minutes < s.endHour*60; minutes += entity.SlotMinutes {
			if !yield(s.slotAt(minutes)) {
				return
			}
		}
	}
}

func (s *SlotSequence) Slots() []entity.Slot {
	return slices.Collect(s.All())
}

// Lookup returns the slot for an "HH:MM" time, or false if it is outside operating hours.
func (s *SlotSequence) Lookup(clock string) (entity.Slot, bool) {
	t, err := time.Parse(entity.TimeLayout, clock)
	if err != nil {
		return entity.Slot{}, false
	}
	minutes := t.Hour()*60 + t.Minute()
	if minutes < s.startHour*60 || minutes >= s.endHour*60 || minutes%entity.SlotMinutes != 0 {
		return entity.Slot{}, false
	}
	return s.slotAt(minutes), true
}

func (s *SlotSequence) slotAt(minutes int) entity.Slot {
	clock := fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	slot := entity.Slot{Time: clock, Available: true}

	if s.booked[clock] {
		slot.Available = false
		slot.Reason = entity.SlotReasonBooked
	}

	start := time.Date(s.date.Year(), s.date.Month(), s.date.Day(), minutes/60, minutes%60, 0, 0, s.loc)
	if !start.After(s.now) {
		slot.Available = false
		slot.Reason = entity.SlotReasonPast
	}

	return slot
}

type availabilityService struct {
	repo *repository.Repository
	cfg  engineConfig
	log  *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, cfg engineConfig, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo: repo,
		cfg:  cfg,
		log:  log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) GetAvailableSlots(ctx context.Context, branchID, barberID uuid.UUID, date string) (*SlotSequence, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, fieldError("date", "Must be a date in YYYY-MM-DD format")
	}

	branch, err := s.repo.Branch.FindByID(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}
	if branch == nil {
		return nil, newError(KindNotFound, "branch %s not found", branchID)
	}

	barber, err := s.repo.Barber.FindByID(ctx, barberID)
	if err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}
	if barber == nil || barber.BranchID != branch.ID {
		return nil, newError(KindNotFound, "barber %s not found in branch", barberID)
	}

	active, err := s.repo.Booking.FindActiveByBarberAndDate(ctx, barber.ID, day)
	if err != nil {
		return nil, fmt.Errorf("get available slots: %w", err)
	}

	return s.sequence(branch, day, active)
}

func (s *availabilityService) sequence(branch *entity.Branch, day time.Time, active []*entity.Booking) (*SlotSequence, error) {
	start, end := branch.OperatingHours()
	if start < 0 || end > 24 || start >= end {
		s.log.Warn("Branch has invalid operating hours",
			zap.String("branch_id", branch.ID.String()),
			zap.Int("start_hour", start),
			zap.Int("end_hour", end),
		)
		return nil, newError(KindValidation, "branch operating hours %d-%d are invalid", start, end)
	}

	booked := make(map[string]bool, len(active))
	for _, b := range active {
		if b.Status.IsActive() {
			booked[b.Time] = true
		}
	}

	return &SlotSequence{
		date:      day,
		startHour: start,
		endHour:   end,
		booked:    booked,
		now:       s.cfg.now().In(s.cfg.loc),
		loc:       s.cfg.loc,
	}, nil
}

func (s *availabilityService) GetBookingsForBarberAndDate(ctx context.Context, barberID uuid.UUID, date string) ([]*entity.Booking, error) {
	day, err := entity.ParseDate(date)
	if err != nil {
		return nil, fieldError("date", "Must be a date in YYYY-MM-DD format")
	}

	bookings, err := s.repo.Booking.FindActiveByBarberAndDate(ctx, barberID, day)
	if err != nil {
		return nil, fmt.Errorf("get bookings for barber %s on %s: %w", barberID, date, err)
	}
	return bookings, nil
}

package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"barber-booking/internal/data/entity"

	"github.com/google/uuid"
)

// MemoryStore is an in-process backend used by tests and STORE=memory. It keeps the
// guarantees the PostgreSQL schema provides: at most one active booking per slot,
// compare-and-set voucher redemption, and all-or-nothing transactions.
//
// Every write is serialised through txMu; WithTx holds txMu for its whole callback and
// restores a snapshot if the callback fails.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	branches  map[uuid.UUID]entity.Branch
	services  map[uuid.UUID]entity.Service
	barbers   map[uuid.UUID]entity.Barber
	customers map[uuid.UUID]entity.Customer
	sessions  map[string]entity.Session
	bookings  map[uuid.UUID]entity.Booking
	vouchers  map[uuid.UUID]entity.Voucher
	payments  map[uuid.UUID]entity.PaymentAttempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		branches:  make(map[uuid.UUID]entity.Branch),
		services:  make(map[uuid.UUID]entity.Service),
		barbers:   make(map[uuid.UUID]entity.Barber),
		customers: make(map[uuid.UUID]entity.Customer),
		sessions:  make(map[string]entity.Session),
		bookings:  make(map[uuid.UUID]entity.Booking),
		vouchers:  make(map[uuid.UUID]entity.Voucher),
		payments:  make(map[uuid.UUID]entity.PaymentAttempt),
	}
}

// NewMemoryRepository exposes store through the same Repository used for PostgreSQL.
func NewMemoryRepository(store *MemoryStore) *Repository {
	repo := store.repository(false)
	repo.tx = &memoryTxRunner{store: store}
	return repo
}

func (s *MemoryStore) repository(inTx bool) *Repository {
	return &Repository{
		Branch:   &memBranchRepository{s: s},
		Service:  &memServiceRepository{s: s},
		Barber:   &memBarberRepository{s: s},
		Customer: &memCustomerRepository{s: s},
		Session:  &memSessionRepository{s: s},
		Booking:  &memBookingRepository{s: s, inTx: inTx},
		Voucher:  &memVoucherRepository{s: s, inTx: inTx},
		Payment:  &memPaymentRepository{s: s, inTx: inTx},
	}
}

type memoryTxRunner struct {
	store *MemoryStore
}

func (r *memoryTxRunner) runInTx(ctx context.Context, fn func(tx *Repository) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := r.store.snapshot()
	txRepo := r.store.repository(true)
	txRepo.tx = sameTx{repo: txRepo}

	if err := fn(txRepo); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	bookings map[uuid.UUID]entity.Booking
	vouchers map[uuid.UUID]entity.Voucher
	payments map[uuid.UUID]entity.PaymentAttempt
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memorySnapshot{
		bookings: maps.Clone(s.bookings),
		vouchers: maps.Clone(s.vouchers),
		payments: maps.Clone(s.payments),
	}
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = snap.bookings
	s.vouchers = snap.vouchers
	s.payments = snap.payments
}

// write runs fn under the map lock, and under txMu unless already inside WithTx.
func (s *MemoryStore) write(inTx bool, fn func()) {
	if !inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Seeding for catalog, identity and promotions data owned by other services.

func (s *MemoryStore) PutBranch(b entity.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[b.ID] = b
}

func (s *MemoryStore) PutService(svc entity.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *MemoryStore) PutBarber(b entity.Barber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.barbers[b.ID] = b
}

func (s *MemoryStore) PutCustomer(c entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *MemoryStore) PutSession(sess entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token.String()] = sess
}

func (s *MemoryStore) PutVoucher(v entity.Voucher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vouchers[v.ID] = v
}

type memBranchRepository struct{ s *MemoryStore }

func (r *memBranchRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Branch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.branches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

type memServiceRepository struct{ s *MemoryStore }

func (r *memServiceRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	svc, ok := r.s.services[id]
	if !ok {
		return nil, nil
	}
	return &svc, nil
}

type memBarberRepository struct{ s *MemoryStore }

func (r *memBarberRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Barber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.barbers[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBarberRepository) FindByBranchID(_ context.Context, branchID uuid.UUID) ([]*entity.Barber, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var barbers []*entity.Barber
	for _, b := range r.s.barbers {
		if b.BranchID == branchID && b.IsActive {
			b := b
			barbers = append(barbers, &b)
		}
	}
	sort.Slice(barbers, func(i, j int) bool {
		if barbers[i].Name != barbers[j].Name {
			return barbers[i].Name < barbers[j].Name
		}
		return barbers[i].ID.String() < barbers[j].ID.String()
	})
	return barbers, nil
}

type memCustomerRepository struct{ s *MemoryStore }

func (r *memCustomerRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type memSessionRepository struct{ s *MemoryStore }

func (r *memSessionRepository) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.sessions[token]
	if !ok || !sess.ValidAt(time.Now()) {
		return nil, nil
	}
	return &sess, nil
}

type memBookingRepository struct {
	s    *MemoryStore
	inTx bool
}

func sameSlot(b entity.Booking, barberID uuid.UUID, date time.Time, slot string) bool {
	return b.BarberID != nil && *b.BarberID == barberID && b.Date.Equal(date) && b.Time == slot
}

func (r *memBookingRepository) Create(_ context.Context, booking *entity.Booking) error {
	var err error
	r.s.write(r.inTx, func() {
		if booking.BarberID != nil && booking.Status.IsActive() {
			for _, b := range r.s.bookings {
				if b.Status.IsActive() && sameSlot(b, *booking.BarberID, booking.Date, booking.Time) {
					err = ErrSlotTaken
					return
				}
			}
		}
		r.s.bookings[booking.ID] = *booking
	})
	return err
}

func (r *memBookingRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBookingRepository) FindByCode(_ context.Context, code string) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bookings {
		if b.BookingCode == code {
			return &b, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepository) FindByCustomerID(_ context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var bookings []*entity.Booking
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID {
			b := b
			bookings = append(bookings, &b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Date.Equal(bookings[j].Date) {
			return bookings[i].Date.After(bookings[j].Date)
		}
		return bookings[i].Time > bookings[j].Time
	})

	if offset >= len(bookings) {
		return nil, nil
	}
	bookings = bookings[offset:]
	if limit > 0 && limit < len(bookings) {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (r *memBookingRepository) CountByCustomerID(_ context.Context, customerID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, b := range r.s.bookings {
		if b.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepository) LockSlot(context.Context, uuid.UUID, time.Time, string) error {
	// txMu already serialises every writer.
	return nil
}

func (r *memBookingRepository) FindActiveBySlot(_ context.Context, barberID uuid.UUID, date time.Time, slot string) ([]*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var bookings []*entity.Booking
	for _, b := range r.s.bookings {
		if b.Status.IsActive() && sameSlot(b, barberID, date, slot) {
			b := b
			bookings = append(bookings, &b)
		}
	}
	return bookings, nil
}

func (r *memBookingRepository) FindActiveByBarberAndDate(_ context.Context, barberID uuid.UUID, date time.Time) ([]*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var bookings []*entity.Booking
	for _, b := range r.s.bookings {
		if b.Status.IsActive() && b.BarberID != nil && *b.BarberID == barberID && b.Date.Equal(date) {
			b := b
			bookings = append(bookings, &b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].Time < bookings[j].Time })
	return bookings, nil
}

func (r *memBookingRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error) {
	updated := false
	r.s.write(r.inTx, func() {
		b, ok := r.s.bookings[id]
		if !ok || b.Status != from {
			return
		}
		b.Status = to
		b.UpdatedAt = at
		switch to {
		case entity.BookingStatusCompleted:
			b.CompletedAt = &at
		case entity.BookingStatusCancelled:
			b.CancelledAt = &at
		}
		r.s.bookings[id] = b
		updated = true
	})
	return updated, nil
}

func (r *memBookingRepository) MarkPaid(_ context.Context, id uuid.UUID, method string) (bool, error) {
	updated := false
	r.s.write(r.inTx, func() {
		b, ok := r.s.bookings[id]
		if !ok || b.PaymentStatus != entity.PaymentStatusUnpaid {
			return
		}
		b.PaymentStatus = entity.PaymentStatusPaid
		b.PaymentMethod = &method
		b.UpdatedAt = time.Now()
		r.s.bookings[id] = b
		updated = true
	})
	return updated, nil
}

func (r *memBookingRepository) SetPaymentMethod(_ context.Context, id uuid.UUID, method string) error {
	var err error
	r.s.write(r.inTx, func() {
		b, ok := r.s.bookings[id]
		if !ok {
			err = errBookingNotFound(id)
			return
		}
		b.PaymentMethod = &method
		b.UpdatedAt = time.Now()
		r.s.bookings[id] = b
	})
	return err
}

func (r *memBookingRepository) DropVoucher(_ context.Context, id uuid.UUID) error {
	r.s.write(r.inTx, func() {
		b, ok := r.s.bookings[id]
		if !ok || b.PaymentStatus != entity.PaymentStatusUnpaid {
			return
		}
		b.VoucherID = nil
		b.DiscountAmount = 0
		b.FinalPrice = b.Price
		b.UpdatedAt = time.Now()
		r.s.bookings[id] = b
	})
	return nil
}

type memVoucherRepository struct {
	s    *MemoryStore
	inTx bool
}

func (r *memVoucherRepository) FindByCode(_ context.Context, code string) (*entity.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.vouchers {
		if v.Code == code {
			return &v, nil
		}
	}
	return nil, nil
}

func (r *memVoucherRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vouchers[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *memVoucherRepository) Redeem(_ context.Context, id, userID, bookingID uuid.UUID, now time.Time) (bool, error) {
	redeemed := false
	r.s.write(r.inTx, func() {
		v, ok := r.s.vouchers[id]
		if !ok || v.Redeemed || !v.ExpiresAt.After(now) {
			return
		}
		v.Redeemed = true
		v.RedeemedBy = &userID
		v.BookingID = &bookingID
		v.RedeemedAt = &now
		v.UpdatedAt = now
		r.s.vouchers[id] = v
		redeemed = true
	})
	return redeemed, nil
}

type memPaymentRepository struct {
	s    *MemoryStore
	inTx bool
}

func (r *memPaymentRepository) Create(_ context.Context, p *entity.PaymentAttempt) error {
	r.s.write(r.inTx, func() {
		r.s.payments[p.ID] = *p
	})
	return nil
}

func (r *memPaymentRepository) FindByReference(_ context.Context, ref string) (*entity.PaymentAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *entity.PaymentAttempt
	for _, p := range r.s.payments {
		if p.ReferenceID == ref || (p.ExternalRef != nil && *p.ExternalRef == ref) {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				p := p
				latest = &p
			}
		}
	}
	return latest, nil
}

func (r *memPaymentRepository) FindLatestByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *entity.PaymentAttempt
	for _, p := range r.s.payments {
		if p.BookingID == bookingID && (latest == nil || p.CreatedAt.After(latest.CreatedAt)) {
			p := p
			latest = &p
		}
	}
	return latest, nil
}

func (r *memPaymentRepository) UpdateOutcome(_ context.Context, id uuid.UUID, outcome entity.PaymentOutcome, failureCode *string) error {
	var err error
	r.s.write(r.inTx, func() {
		p, ok := r.s.payments[id]
		if !ok {
			err = errPaymentNotFound(id)
			return
		}
		p.Outcome = outcome
		p.FailureCode = failureCode
		p.UpdatedAt = time.Now()
		r.s.payments[id] = p
	})
	return err
}

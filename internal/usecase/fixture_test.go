package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/internal/dto/request"
	"barber-booking/pkg/payment"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

var testLoc = time.FixedZone("PHT", 8*60*60)

const testDate = "2026-05-05"

type fakeGateway struct {
	mu       sync.Mutex
	outcome  payment.Outcome
	redirect string
	code     string
	err      error
	delay    time.Duration
	requests []*payment.Request
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) Supports(method string) bool {
	return method == "gcash" || method == "card"
}

func (g *fakeGateway) InitiatePayment(ctx context.Context, req *payment.Request) (*payment.Result, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	outcome, redirect, code, err, delay := g.outcome, g.redirect, g.code, g.err, g.delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return &payment.Result{
		Outcome:     outcome,
		ExternalRef: "ext_" + req.ReferenceID,
		RedirectURL: redirect,
		FailureCode: code,
	}, nil
}

func (g *fakeGateway) ParseWebhook(_ http.Header, body []byte) (*payment.Notification, error) {
	var wh struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(body, &wh); err != nil || wh.Reference == "" {
		return nil, payment.ErrInvalidWebhook
	}
	return &payment.Notification{Reference: wh.Reference, Outcome: payment.Outcome(wh.Status)}, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGateway) lastRequest() *payment.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return nil
	}
	return g.requests[len(g.requests)-1]
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, k := range p.keys {
		if k == key {
			n++
		}
	}
	return n
}

type fixture struct {
	store    *repository.MemoryStore
	repo     *repository.Repository
	cfg      engineConfig
	svc      *Service
	gateway  *fakeGateway
	events   *recordingPublisher
	branch   entity.Branch
	service  entity.Service
	barberA  entity.Barber
	barberB  entity.Barber
	customer entity.Customer
	staff    entity.Customer

	mu  sync.Mutex
	now time.Time
}

// newFixture seeds one branch with two barbers who both cut hair, a day before testDate.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   repository.NewMemoryStore(),
		gateway: &fakeGateway{outcome: payment.OutcomeSucceeded},
		events:  &recordingPublisher{},
		now:     time.Date(2026, 5, 4, 9, 0, 0, 0, testLoc),
	}
	f.repo = repository.NewMemoryRepository(f.store)
	f.cfg = engineConfig{
		loc:            testLoc,
		now:            f.clock,
		paymentTimeout: 50 * time.Millisecond,
		currency:       "PHP",
	}

	f.branch = entity.Branch{Base: entity.Base{ID: uuid.New()}, Name: "Makati", IsActive: true}
	f.service = entity.Service{Base: entity.Base{ID: uuid.New()}, Name: "Haircut", Price: 500, DurationMinutes: 30, IsActive: true}
	f.barberA = entity.Barber{Base: entity.Base{ID: uuid.New()}, BranchID: f.branch.ID, Name: "Andres", IsActive: true, ServiceIDs: []uuid.UUID{f.service.ID}}
	f.barberB = entity.Barber{Base: entity.Base{ID: uuid.New()}, BranchID: f.branch.ID, Name: "Benito", IsActive: true, ServiceIDs: []uuid.UUID{f.service.ID}}
	f.customer = entity.Customer{Base: entity.Base{ID: uuid.New()}, Email: "juan@example.com", Name: "Juan", Role: entity.RoleCustomer, IsActive: true}
	f.staff = entity.Customer{Base: entity.Base{ID: uuid.New()}, Email: "desk@example.com", Name: "Front Desk", Role: entity.RoleAdmin, IsActive: true}

	f.store.PutBranch(f.branch)
	f.store.PutService(f.service)
	f.store.PutBarber(f.barberA)
	f.store.PutBarber(f.barberB)
	f.store.PutCustomer(f.customer)
	f.store.PutCustomer(f.staff)

	f.svc = newService(f.repo, f.cfg, f.gateway, f.events, zaptest.NewLogger(t))
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

func (f *fixture) putVoucher(code string, value float64, expiresAt time.Time) entity.Voucher {
	v := entity.Voucher{
		Base:      entity.Base{ID: uuid.New()},
		Code:      code,
		Value:     value,
		ExpiresAt: expiresAt,
	}
	f.store.PutVoucher(v)
	return v
}

func (f *fixture) createRequest(barber *entity.Barber, clock, paymentType string) *request.CreateBookingRequest {
	req := &request.CreateBookingRequest{
		ServiceID:   f.service.ID.String(),
		BranchID:    f.branch.ID.String(),
		Date:        testDate,
		Time:        clock,
		PaymentType: paymentType,
	}
	if barber != nil {
		req.BarberID = barber.ID.String()
	}
	if paymentType == string(entity.PaymentTypePayNow) {
		req.PaymentMethod = "gcash"
	}
	return req
}

func (f *fixture) booking(t *testing.T, id string) *entity.Booking {
	t.Helper()
	b, err := f.repo.Booking.FindByID(context.Background(), uuid.MustParse(id))
	if err != nil || b == nil {
		t.Fatalf("FindByID(%s) = %v, %v", id, b, err)
	}
	return b
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want %s", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("error kind = %q (%v), want %q", got, err, kind)
	}
	var e *Error
	if !errors.As(err, &e) || e.Message == "" {
		t.Fatalf("error %v carries no message", err)
	}
}

package repository

import (
	"context"
	"errors"

	"barber-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrSlotTaken is returned by BookingRepository.Create when another active booking
// already holds the (barber, date, time) key.
var ErrSlotTaken = errors.New("slot already taken")

// Repository groups every store the engine touches. WithTx hands fn a Repository
// whose members all run inside one transaction.
type Repository struct {
	Branch   BranchRepository
	Service  ServiceRepository
	Barber   BarberRepository
	Customer CustomerRepository
	Session  SessionRepository
	Booking  BookingRepository
	Voucher  VoucherRepository
	Payment  PaymentRepository

	tx   txRunner
	ping func(ctx context.Context) error
}

type txRunner interface {
	runInTx(ctx context.Context, fn func(tx *Repository) error) error
}

// WithTx runs fn in a single transaction. Returning an error from fn rolls back every write made through tx.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.tx.runInTx(ctx, fn)
}

// Ping checks the backing store.
func (r *Repository) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newQuerierRepository(db, log)
	repo.tx = &pgxTxRunner{db: db, log: log}
	repo.ping = db.Ping
	return repo
}

func newQuerierRepository(db database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		Branch:   NewBranchRepository(db, log),
		Service:  NewServiceRepository(db, log),
		Barber:   NewBarberRepository(db, log),
		Customer: NewCustomerRepository(db, log),
		Session:  NewSessionRepository(db, log),
		Booking:  NewBookingRepository(db, log),
		Voucher:  NewVoucherRepository(db, log),
		Payment:  NewPaymentRepository(db, log),
	}
}

type pgxTxRunner struct {
	db  database.PgxIface
	log *zap.Logger
}

func (r *pgxTxRunner) runInTx(ctx context.Context, fn func(tx *Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		txRepo := newQuerierRepository(tx, r.log)
		txRepo.tx = sameTx{repo: txRepo}
		return fn(txRepo)
	})
}

// sameTx makes nested WithTx calls join the outer transaction.
type sameTx struct {
	repo *Repository
}

func (s sameTx) runInTx(_ context.Context, fn func(tx *Repository) error) error {
	return fn(s.repo)
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"barber-booking/internal/data/entity"
	"barber-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Catalog data (branches, services, barbers) is owned elsewhere and only read here.

type BranchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Branch, error)
}

type ServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
}

type BarberRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Barber, error)
	// FindByBranchID returns active barbers of a branch ordered by name.
	FindByBranchID(ctx context.Context, branchID uuid.UUID) ([]*entity.Barber, error)
}

type branchRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBranchRepository(db database.Querier, log *zap.Logger) BranchRepository {
	return &branchRepository{
		db:  db,
		log: log.With(zap.String("repository", "branch")),
	}
}

func (r *branchRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Branch, error) {
	query := `
		SELECT id, name, address, booking_start_hour, booking_end_hour, is_active, created_at, updated_at
		FROM branches
		WHERE id = $1
	`

	var branch entity.Branch
	err := r.db.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.Name,
		&branch.Address,
		&branch.StartHour,
		&branch.EndHour,
		&branch.IsActive,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find branch", zap.Error(err), zap.String("branch_id", id.String()))
		return nil, fmt.Errorf("find branch %s: %w", id, err)
	}

	return &branch, nil
}

type serviceRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewServiceRepository(db database.Querier, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	query := `
		SELECT id, name, price, duration_minutes, is_active, created_at, updated_at
		FROM services
		WHERE id = $1
	`

	var service entity.Service
	err := r.db.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.Name,
		&service.Price,
		&service.DurationMinutes,
		&service.IsActive,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service", zap.Error(err), zap.String("service_id", id.String()))
		return nil, fmt.Errorf("find service %s: %w", id, err)
	}

	return &service, nil
}

type barberRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBarberRepository(db database.Querier, log *zap.Logger) BarberRepository {
	return &barberRepository{
		db:  db,
		log: log.With(zap.String("repository", "barber")),
	}
}

const barberColumns = `
	b.id, b.branch_id, b.name, b.is_active,
	ARRAY(SELECT bs.service_id FROM barber_services bs WHERE bs.barber_id = b.id ORDER BY bs.service_id),
	b.created_at, b.updated_at
`

func scanBarber(row pgx.Row) (*entity.Barber, error) {
	var barber entity.Barber
	err := row.Scan(
		&barber.ID,
		&barber.BranchID,
		&barber.Name,
		&barber.IsActive,
		&barber.ServiceIDs,
		&barber.CreatedAt,
		&barber.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &barber, nil
}

func (r *barberRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Barber, error) {
	query := `SELECT ` + barberColumns + ` FROM barbers b WHERE b.id = $1`

	barber, err := scanBarber(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find barber", zap.Error(err), zap.String("barber_id", id.String()))
		return nil, fmt.Errorf("find barber %s: %w", id, err)
	}

	return barber, nil
}

func (r *barberRepository) FindByBranchID(ctx context.Context, branchID uuid.UUID) ([]*entity.Barber, error) {
	query := `SELECT ` + barberColumns + `
		FROM barbers b
		WHERE b.branch_id = $1 AND b.is_active = true
		ORDER BY b.name, b.id
	`

	rows, err := r.db.Query(ctx, query, branchID)
	if err != nil {
		r.log.Error("Failed to list barbers", zap.Error(err), zap.String("branch_id", branchID.String()))
		return nil, fmt.Errorf("list barbers for branch %s: %w", branchID, err)
	}
	defer rows.Close()

	var barbers []*entity.Barber
	for rows.Next() {
		barber, err := scanBarber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan barber: %w", err)
		}
		barbers = append(barbers, barber)
	}

	return barbers, rows.Err()
}

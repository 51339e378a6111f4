package entity

import "github.com/google/uuid"

type Branch struct {
	Base
	Name      string `db:"name"`
	Address   string `db:"address"`
	StartHour *int   `db:"booking_start_hour"`
	EndHour   *int   `db:"booking_end_hour"`
	IsActive  bool   `db:"is_active"`
}

// OperatingHours returns the booking window, falling back to 10:00-20:00
// when the branch has none configured.
func (b *Branch) OperatingHours() (start, end int) {
	start, end = DefaultStartHour, DefaultEndHour
	if b.StartHour != nil {
		start = *b.StartHour
	}
	if b.EndHour != nil {
		end = *b.EndHour
	}
	return start, end
}

// Barber is a staff member of one branch.
type Barber struct {
	Base
	BranchID   uuid.UUID   `db:"branch_id"`
	Name       string      `db:"name"`
	IsActive   bool        `db:"is_active"`
	ServiceIDs []uuid.UUID `db:"service_ids"`
}

func (b *Barber) CanPerform(serviceID uuid.UUID) bool {
	for _, id := range b.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

type Service struct {
	Base
	Name            string  `db:"name"`
	Price           float64 `db:"price"`
	DurationMinutes int     `db:"duration_minutes"`
	IsActive        bool    `db:"is_active"`
}

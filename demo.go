package main

import (
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// seedDemo fills an in-memory store with one branch, two barbers and a signed-in customer.
func seedDemo(store *repository.MemoryStore, log *zap.Logger) {
	branch := entity.Branch{Base: entity.Base{ID: uuid.New()}, Name: "Main Branch", IsActive: true}
	haircut := entity.Service{Base: entity.Base{ID: uuid.New()}, Name: "Haircut", Price: 350, DurationMinutes: 30, IsActive: true}
	shave := entity.Service{Base: entity.Base{ID: uuid.New()}, Name: "Hot Towel Shave", Price: 250, DurationMinutes: 30, IsActive: true}

	store.PutBranch(branch)
	store.PutService(haircut)
	store.PutService(shave)

	for _, name := range []string{"Andres", "Benito"} {
		store.PutBarber(entity.Barber{
			Base:       entity.Base{ID: uuid.New()},
			BranchID:   branch.ID,
			Name:       name,
			IsActive:   true,
			ServiceIDs: []uuid.UUID{haircut.ID, shave.ID},
		})
	}

	customer := entity.Customer{Base: entity.Base{ID: uuid.New()}, Email: "demo@example.com", Name: "Demo Customer", Role: entity.RoleCustomer, IsActive: true}
	admin := entity.Customer{Base: entity.Base{ID: uuid.New()}, Email: "desk@example.com", Name: "Front Desk", Role: entity.RoleAdmin, IsActive: true}
	store.PutCustomer(customer)
	store.PutCustomer(admin)

	customerToken, adminToken := uuid.New(), uuid.New()
	expires := time.Now().Add(24 * time.Hour)
	store.PutSession(entity.Session{BaseSimple: entity.BaseSimple{ID: uuid.New()}, UserID: customer.ID, Token: customerToken, ExpiresAt: expires})
	store.PutSession(entity.Session{BaseSimple: entity.BaseSimple{ID: uuid.New()}, UserID: admin.ID, Token: adminToken, ExpiresAt: expires})

	store.PutVoucher(entity.Voucher{
		Base:      entity.Base{ID: uuid.New()},
		Code:      "WELCOME100",
		Value:     100,
		ExpiresAt: expires.Add(30 * 24 * time.Hour),
	})

	log.Info("Demo data seeded",
		zap.String("branch_id", branch.ID.String()),
		zap.String("service_id", haircut.ID.String()),
		zap.String("customer_token", customerToken.String()),
		zap.String("admin_token", adminToken.String()),
	)
}

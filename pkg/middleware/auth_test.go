package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func seedSession(store *repository.MemoryStore, role entity.UserRole, expiresAt time.Time) (uuid.UUID, string) {
	user := entity.Customer{Base: entity.Base{ID: uuid.New()}, Email: "u@example.com", Name: "U", Role: role, IsActive: true}
	store.PutCustomer(user)

	token := uuid.New()
	store.PutSession(entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New()},
		UserID:     user.ID,
		Token:      token,
		ExpiresAt:  expiresAt,
	})
	return user.ID, token.String()
}

func TestAuthSession(t *testing.T) {
	store := repository.NewMemoryStore()
	auth := NewSessionAuth(repository.NewMemoryRepository(store), nil, time.Minute, zaptest.NewLogger(t))

	userID, token := seedSession(store, entity.RoleCustomer, time.Now().Add(time.Hour))
	_, expired := seedSession(store, entity.RoleCustomer, time.Now().Add(-time.Minute))

	var gotUser uuid.UUID
	var gotRole string
	handler := auth.AuthSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = utils.GetUserIDFromContext(r.Context())
		gotRole, _ = utils.GetRoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer " + uuid.NewString(), http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if gotUser != userID || gotRole != string(entity.RoleCustomer) {
		t.Errorf("context user/role = %s/%s, want %s/customer", gotUser, gotRole, userID)
	}
}

func TestStaff(t *testing.T) {
	store := repository.NewMemoryStore()
	auth := NewSessionAuth(repository.NewMemoryRepository(store), nil, time.Minute, zaptest.NewLogger(t))
	handler := auth.AuthSession(Staff(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		role entity.UserRole
		want int
	}{
		{entity.RoleCustomer, http.StatusForbidden},
		{entity.RoleStaff, http.StatusNoContent},
		{entity.RoleAdmin, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			_, token := seedSession(store, tt.role, time.Now().Add(time.Hour))
			req := httptest.NewRequest(http.MethodGet, "/api/admin/bookings", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

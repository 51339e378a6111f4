package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionCachePrefix = "session:"

// cachedSession is what AuthSession keeps in Redis per token.
type cachedSession struct {
	UserID    uuid.UUID       `json:"user_id"`
	Role      entity.UserRole `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SessionAuth resolves bearer tokens to users. Redis is optional; without it every request
// reads the session store.
type SessionAuth struct {
	sessions  repository.SessionRepository
	customers repository.CustomerRepository
	cache     *redis.Client
	ttl       time.Duration
	log       *zap.Logger
}

func NewSessionAuth(repo *repository.Repository, cache *redis.Client, ttl time.Duration, log *zap.Logger) *SessionAuth {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SessionAuth{
		sessions:  repo.Session,
		customers: repo.Customer,
		cache:     cache,
		ttl:       ttl,
		log:       log.With(zap.String("middleware", "auth")),
	}
}

// AuthSession validates "Authorization: Bearer <token>" and puts the user id and role in the context.
func (a *SessionAuth) AuthSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.ResponseUnauthorized(w, "Missing authorization token")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
			return
		}

		session, err := a.resolve(r.Context(), token)
		if err != nil {
			a.log.Error("Failed to validate session", zap.Error(err))
			utils.ResponseInternalError(w, "Internal server error")
			return
		}
		if session == nil {
			a.log.Warn("Invalid or expired session", zap.String("path", r.URL.Path))
			utils.ResponseUnauthorized(w, "Invalid or expired session")
			return
		}

		ctx := utils.SetUserContext(r.Context(), session.UserID, string(session.Role))
		ctx = utils.SetTokenContext(ctx, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *SessionAuth) resolve(ctx context.Context, token string) (*cachedSession, error) {
	key := sessionCachePrefix + token

	if a.cache != nil {
		raw, err := a.cache.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var s cachedSession
			if json.Unmarshal(raw, &s) == nil && s.ExpiresAt.After(time.Now()) {
				return &s, nil
			}
		case !errors.Is(err, redis.Nil):
			a.log.Warn("Session cache read failed, using store", zap.Error(err))
		}
	}

	session, err := a.sessions.FindValidSession(ctx, token)
	if err != nil || session == nil {
		return nil, err
	}

	customer, err := a.customers.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if customer == nil || !customer.IsActive {
		return nil, nil
	}

	s := &cachedSession{UserID: session.UserID, Role: customer.Role, ExpiresAt: session.ExpiresAt}

	if a.cache != nil {
		ttl := min(a.ttl, time.Until(session.ExpiresAt))
		if raw, err := json.Marshal(s); err == nil && ttl > 0 {
			if err := a.cache.Set(ctx, key, raw, ttl).Err(); err != nil {
				a.log.Warn("Session cache write failed", zap.Error(err))
			}
		}
	}
	return s, nil
}

// Staff lets through staff and admins. It must run after AuthSession.
func Staff(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			role, _ := utils.GetRoleFromContext(r.Context())
			c := entity.Customer{Role: entity.UserRole(role)}
			if !c.IsStaff() {
				logger.Warn("Staff check: non-staff access attempt",
					zap.String("user_id", userID.String()),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, "Staff access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

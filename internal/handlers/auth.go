package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scholarhub/apiserver/internal/auth"
	"github.com/scholarhub/apiserver/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Guards composes the auth and role stages of the request pipeline.
type Guards struct {
	issuer *auth.Issuer
	roles  *auth.RoleGuard
	logger *zap.Logger
}

func NewGuards(issuer *auth.Issuer, roles *auth.RoleGuard, logger *zap.Logger) *Guards {
	return &Guards{issuer: issuer, roles: roles, logger: orNop(logger)}
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// identity to the request context.
func (g *Guards) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.issuer.Authenticate(r)
		if err != nil {
			logging.WithRequestID(r, g.logger).Debug("authentication failed", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// RequireRole admits only callers whose stored role is in allowed. It must
// run after RequireAuth.
func (g *Guards) RequireRole(allowed auth.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if _, err := g.roles.Require(r.Context(), identity, allowed); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					writeError(w, http.StatusForbidden, "forbidden")
					return
				}
				logging.WithRequestID(r, g.logger).Error("failed to load user role", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isStaff reports whether the authenticated caller is an admin or moderator.
func (g *Guards) isStaff(r *http.Request) (bool, error) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return false, auth.ErrUnauthenticated
	}
	return g.roles.HasRole(r.Context(), identity, auth.Staff)
}

func identityFrom(r *http.Request) auth.Identity {
	identity, _ := auth.IdentityFromContext(r.Context())
	return identity
}

// requireSelf writes 403 unless the path email belongs to the caller.
func requireSelf(w http.ResponseWriter, r *http.Request) bool {
	if !sameEmail(pathEmail(r), identityFrom(r).Email) {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

const (
	limiterIdleTTL  = 10 * time.Minute
	maxLimiterCount = 10000
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client address. Entries idle for longer
// than limiterIdleTTL are dropped by Cleanup, and the table never holds more
// than maxLimiterCount addresses.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiterCount {
			rl.sweepLocked(now)
		}
		if len(rl.limiters) >= maxLimiterCount {
			rl.evictOldestLocked()
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Cleanup removes limiters that have been idle for longer than limiterIdleTTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sweepLocked(rl.now())
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// Len reports how many client addresses are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range rl.limiters {
		if oldestKey == "" || entry.lastSeen.Before(oldest) {
			oldestKey, oldest = key, entry.lastSeen
		}
	}
	delete(rl.limiters, oldestKey)
}

// Handler returns the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			key = host
		}
		if !rl.limiter(key).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthHandler issues credentials.
type AuthHandler struct {
	issuer *auth.Issuer
	logger *zap.Logger
}

func NewAuthHandler(issuer *auth.Issuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{issuer: issuer, logger: orNop(logger)}
}

// AuthRouter registers the token endpoint on the given router.
func AuthRouter(r chi.Router, issuer *auth.Issuer, limiter *RateLimiter, logger *zap.Logger) {
	handler := NewAuthHandler(issuer, logger)

	if limiter != nil {
		r.With(limiter.Handler).Post("/jwt", handler.IssueToken)
		return
	}
	r.Post("/jwt", handler.IssueToken)
}

// IssueToken signs the posted claims. The identity behind the claims must
// already have been proven by the identity provider.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var claims auth.Claims
	if !decodeJSON(w, r, &claims) {
		return
	}
	if claims == nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, err := h.issuer.Issue(claims)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create token")
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

type TokenResponse struct {
	Token string `json:"token"`
}

package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/identity"
	"github.com/fjod/go_cart/commerce-service/internal/metrics"
	"github.com/fjod/go_cart/commerce-service/internal/shopper"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	profileKey
)

const ProfileHeader = "X-Profile-ID"

// RequestIDMiddleware propagates X-Request-ID, falling back to chi's id.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ProfileMiddleware resolves the browser profile named by X-Profile-ID.
func ProfileMiddleware(profiles *shopper.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(ProfileHeader))
			if id == "" {
				respondError(w, http.StatusBadRequest, "missing_profile", ProfileHeader+" header is required")
				return
			}

			p := profiles.Get(r.Context(), id, primaryLocale(r.Header.Get("Accept-Language")))
			ctx := identity.WithProfile(r.Context(), id)
			ctx = context.WithValue(ctx, profileKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func profileFromContext(ctx context.Context) *shopper.Profile {
	p, _ := ctx.Value(profileKey).(*shopper.Profile)
	return p
}

// primaryLocale returns the first tag of an Accept-Language header.
func primaryLocale(header string) string {
	first, _, _ := strings.Cut(header, ",")
	tag, _, _ := strings.Cut(first, ";")
	return strings.TrimSpace(tag)
}

// AuthMiddleware attaches the shopper when a bearer token is present.
// Requests without one pass through anonymously. With an empty secret the
// token is not verified here and is only forwarded to the payment service.
func AuthMiddleware(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user := identity.User{Token: raw}
			if secret != "" {
				claims, err := parseToken(raw, secret)
				if err != nil {
					log.DebugContext(r.Context(), "rejecting bearer token", "error", err, "request_id", getRequestID(r.Context()))
					respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
					return
				}
				user.ID = claimString(claims["user_id"])
				user.Email = claimString(claims["email"])
			}
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func parseToken(raw, secret string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func claimString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}

// MetricsMiddleware records status and latency per route pattern.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, r.Method, status, time.Since(start))
		})
	}
}

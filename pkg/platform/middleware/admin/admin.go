// Package admin guards the catalog and targeting mutation surface. Who issues
// admin tokens and how administrators authenticate to get one is the outer
// layer's concern; this middleware only verifies the signed token it is handed.
package admin

import (
	"log/slog"
	"net/http"
	"strings"

	request "assent/pkg/platform/middleware/request"
	"assent/pkg/requestcontext"
)

// TokenValidator validates an admin bearer token and returns the actor it
// identifies.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims is the validated content of an admin token.
type Claims struct {
	ActorID string
}

// RequireAdmin rejects requests without a valid admin bearer token and stamps
// the acting administrator into the context for audit events.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "admin request without bearer token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "admin token rejected",
					"request_id", requestID,
					"error", err.Error(),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithActorID(ctx, claims.ActorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

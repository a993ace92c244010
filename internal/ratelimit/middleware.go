package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
	"assent/pkg/platform/middleware/metadata"
)

// Middleware enforces a Limiter in front of a route group.
type Middleware struct {
	limiter *Limiter
	metrics *Metrics
	logger  *slog.Logger
}

func NewMiddleware(limiter *Limiter, metrics *Metrics, logger *slog.Logger) *Middleware {
	return &Middleware{limiter: limiter, metrics: metrics, logger: logger}
}

// ByPath classifies each request by path prefix and applies the matching
// budget: the admin surfaces get the admin class, operational endpoints go
// unthrottled, everything else is public. This sits in front of the whole
// router so the feature handlers stay unaware of throttling.
func (m *Middleware) ByPath(next http.Handler) http.Handler {
	admin := m.Limit(ClassAdmin)(next)
	public := m.Limit(ClassPublic)(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/metrics" || r.URL.Path == "/healthz":
			next.ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/admin/"):
			admin.ServeHTTP(w, r)
		default:
			public.ServeHTTP(w, r)
		}
	})
}

// Limit returns the middleware for one endpoint class. Denials carry the
// standard X-RateLimit headers and a Retry-After. Limiter failures let the
// request through; protecting the surface must not take it down.
func (m *Middleware) Limit(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := metadata.ClientIPFromRequest(r)

			decision, err := m.limiter.CheckIP(r.Context(), ip, class)
			if err != nil {
				m.logger.WarnContext(r.Context(), "rate limit check failed, allowing request",
					"class", string(class),
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}

			if !decision.Allowed {
				m.metrics.incrementDecision(string(class), "limited")
				retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, slow down"))
				return
			}

			m.metrics.incrementDecision(string(class), "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

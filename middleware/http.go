// Package middleware translates admission decisions into transport responses:
// a net/http middleware and a gRPC unary interceptor. The admission core only
// returns decisions; everything response-shaped lives here.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/storyloom/gate/admission"
	"github.com/storyloom/gate/meta"
)

// Standard rate limit headers set on every response passing through the
// middleware.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderRequestID = "X-Request-ID"
)

// Options configures the HTTP middleware.
type Options struct {
	TrustForwardedFor bool   // take the client address from the first X-Forwarded-For hop
	UserIDHeader      string // header carrying the authenticated user id, optional
}

// IdentityFromRequest derives the request identity used for key derivation.
// It degrades to the unknown-source sentinel rather than failing open.
func IdentityFromRequest(r *http.Request, opts Options) meta.Identity {
	id := meta.Identity{Route: r.URL.Path}

	if opts.UserIDHeader != "" {
		id.UserID = strings.TrimSpace(r.Header.Get(opts.UserIDHeader))
	}

	if opts.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if first != "" {
				id.SourceIP = first
				return id.Normalize()
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		id.SourceIP = host
	} else {
		id.SourceIP = r.RemoteAddr
	}
	return id.Normalize()
}

// Middleware wraps handlers with admission control for ctrl's route class.
// Allowed requests carry limit headers and the identity in their context;
// denied requests get 429 with Retry-After and a small JSON body.
func Middleware(ctrl *admission.Controller, opts Options) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			id := IdentityFromRequest(r, opts)
			dec := ctrl.Check(r.Context(), id)

			w.Header().Set(HeaderLimit, strconv.Itoa(dec.Limit))
			w.Header().Set(HeaderRemaining, strconv.Itoa(dec.Remaining))
			w.Header().Set(HeaderReset, strconv.FormatInt(dec.ResetAt.Unix(), 10))

			if !dec.Allowed {
				writeRateLimited(w, requestID, dec)
				return
			}

			next.ServeHTTP(w, r.WithContext(id.WithContext(r.Context())))
		})
	}
}

// rateLimitedBody is the JSON payload returned with 429 responses.
type rateLimitedBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfterSeconds"`
	ResetAt    int64  `json:"resetAt"`
}

func writeRateLimited(w http.ResponseWriter, requestID string, dec admission.Decision) {
	retryAfter := dec.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	body := rateLimitedBody{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
		ResetAt:    dec.ResetAt.Unix(),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("failed to write rate limit response")
	}
}

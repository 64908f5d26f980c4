package server

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/http"
	"time"

	"docbay/internal/auth"
	"docbay/internal/constants"
)

// Chain applies middlewares in order. The first middleware is the outermost (runs first).
// Usage: Chain(handler, requestID, cors, authenticate)
// Request flow: requestID → cors → authenticate → handler
func Chain(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	// Apply in reverse so the first middleware in the list is outermost
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// requestIDHeaderKey is the HTTP header for request tracing.
const requestIDHeaderKey = "X-Request-ID"

// RequestID generates a unique request ID and sets it on the response header.
// If the incoming request already has an X-Request-ID header, it is preserved.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeaderKey)
		if id == "" {
			id = generateRequestID()
		}
		w.Header().Set(requestIDHeaderKey, id)
		next.ServeHTTP(w, r)
	})
}

// generateRequestID creates a random 16-byte hex string.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// CORS opens the service to any origin and answers preflight requests
// without reaching the handlers.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.HeaderCORSOrigin, "*")
		w.Header().Set(constants.HeaderCORSMethods, constants.CORSAllowedMethods)
		w.Header().Set(constants.HeaderCORSHeaders, constants.CORSAllowedHeaders)
		w.Header().Set(constants.HeaderCORSCredentials, "false")
		w.Header().Set(constants.HeaderCORSMaxAge, constants.CORSMaxAge)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLog logs every incoming request line.
func (s *Server) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Info("<< %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves the bearer token into a principal. No header means
// anonymous; a header that does not resolve to a live session aborts the
// request. The admin header is captured separately for the rule engine.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.Header.Get(constants.HeaderAdmin) != "" {
			ctx = auth.WithAdmin(ctx)
		}

		token := r.Header.Get(constants.HeaderAuthorization)
		if token != "" {
			user, err := s.app.Auth.ResolveToken(token)
			if err != nil {
				s.handleServiceError(w, err)
				return
			}
			ctx = auth.WithPrincipal(ctx, user)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Throttle simulates a slow connection by delaying each response while
// the knob is switched on.
func (s *Server) Throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.app.Throttled() {
			time.Sleep(throttleDelay())
		}
		next.ServeHTTP(w, r)
	})
}

func throttleDelay() time.Duration {
	window := constants.ThrottleMaxMillis - constants.ThrottleMinMillis
	n, err := rand.Int(rand.Reader, big.NewInt(int64(window)))
	millis := int64(constants.ThrottleMinMillis)
	if err == nil {
		millis += n.Int64()
	}
	return time.Duration(millis) * time.Millisecond
}

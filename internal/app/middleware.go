package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/eventmate/eventmate/internal/auth"
	"github.com/eventmate/eventmate/internal/rest"
	"github.com/eventmate/eventmate/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Authenticate resolves the session token into a user and stores it in the request context.
// Every token or identity problem produces the same 401 response.
func Authenticate(tokens auth.TokenValidator, revocations auth.Revocations, users user.Service, cookieName string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			session, err := tokens.Validate(auth.FromRequest(req, cookieName))
			if err != nil {
				log.Debugf("rejected token: %v", err)
				rest.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			revoked, err := revocations.IsRevoked(ctx, session.TokenId)
			if err != nil {
				rest.WriteInternalError(w, req, err)
				return
			}
			if revoked {
				log.Debugf("rejected revoked token %s", session.TokenId)
				rest.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			u, err := users.GetUser(ctx, session.UserId)
			if errors.Is(err, user.ErrUserNotFound) {
				log.Debugf("token subject %s no longer exists", session.UserId)
				rest.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			} else if err != nil {
				rest.WriteInternalError(w, req, err)
				return
			}

			next.ServeHTTP(w, req.WithContext(user.WithUser(ctx, u)))
		})
	}
}

// CORS allows the configured frontend origin to call the API with cookies.
// It wraps the router so preflight requests are answered before route matching.
func CORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if origin != "" && req.Header.Get("Origin") == origin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", strings.Join([]string{
					http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
				}, ", "))
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, req)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		log.WithFields(log.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

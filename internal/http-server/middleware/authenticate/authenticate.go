package authenticate

import (
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"qrpass/entity"
	"qrpass/lib/api/cont"
	"qrpass/lib/api/response"
	"qrpass/lib/sl"

	"log/slog"
	"net/http"

	"strings"
)

const headerOperatorKey = "X-Operator-Key"

type Authenticate interface {
	AuthEnabled() bool
	AuthenticateByKey(key string) (*entity.Operator, error)
}

// New guards operator routes. Without configured operators the routes stay open,
// which is logged once at startup.
func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	enabled := auth != nil && auth.AuthEnabled()
	if enabled {
		log.With(mod).Info("authenticate middleware initialized")
	} else {
		log.With(mod).Warn("no operators configured: operator routes are not protected")
	}

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			logger := log.With(
				mod,
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			key := operatorKey(r)
			if len(key) == 0 {
				logger.Warn("operator key not found")
				authFailed(w, r, "Operator key not found")
				return
			}

			operator, err := auth.AuthenticateByKey(key)
			if err != nil {
				logger.With(sl.Secret("key", key)).Warn("authentication failed", sl.Err(err))
				authFailed(w, r, "Unauthorized")
				return
			}
			logger.With(slog.String("operator", operator.Name)).Debug("operator authenticated")

			ctx := cont.PutOperator(r.Context(), operator)
			w.Header().Set("X-Operator", operator.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func operatorKey(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get(headerOperatorKey))
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}


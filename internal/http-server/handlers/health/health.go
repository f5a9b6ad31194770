package health

import (
	"context"
	"log/slog"
	"net/http"
	"qrpass/lib/api/response"
	"qrpass/lib/sl"

	"github.com/go-chi/render"
)

type Core interface {
	Health(ctx context.Context) error
}

func Check(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler.Health(r.Context()); err != nil {
			logger.With(sl.Module("http.handlers.health")).Error("store unavailable", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Store unavailable"))
			return
		}
		render.JSON(w, r, response.Message("ok"))
	}
}

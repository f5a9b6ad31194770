package passes

import (
	"context"
	"log/slog"
	"net/http"
	"qrpass/entity"
	"qrpass/internal/redemption"
	"qrpass/lib/api/response"
	"qrpass/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

const (
	messageInvalidPass = "Invalid pass."
	messageAlreadyUsed = "This pass has already been used."
	messageServerError = "Server error"
	messageUnknown     = "Unknown state"
)

type Core interface {
	Peek(ctx context.Context, token string) (*redemption.PeekResult, error)
	CheckIn(ctx context.Context, token string) (*redemption.CheckInResult, error)
	ResetPass(ctx context.Context, token string) (bool, error)
}

// Peek shows who a pass belongs to without consuming it.
func Peek(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.passes")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token, err := bindToken(r, false)
		if err != nil {
			log.Debug("peek: bad token", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(tokenErrorMessage(err)))
			return
		}
		log = log.With(sl.Token(token))

		result, err := handler.Peek(r.Context(), token)
		if err != nil {
			log.Error("peek", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(messageServerError))
			return
		}

		if result.Code == entity.CodeNotFound {
			render.JSON(w, r, response.Fail(entity.CodeNotFound, "", nil, messageInvalidPass))
			return
		}
		render.JSON(w, r, response.Ok(result.Code, result.Name, result.CheckedInAt))
	}
}

// CheckIn consumes a pass. Only POST is routed here.
func CheckIn(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.passes")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token, err := bindToken(r, true)
		if err != nil {
			log.Debug("check-in: bad token", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(tokenErrorMessage(err)))
			return
		}
		log = log.With(sl.Token(token))

		result, err := handler.CheckIn(r.Context(), token)
		if err != nil {
			log.Error("check-in", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(messageServerError))
			return
		}

		switch result.Kind {
		case redemption.KindSuccess, redemption.KindIdempotentSuccess:
			render.JSON(w, r, response.Ok(entity.CodeCheckedIn, result.Name, result.CheckedInAt))
		case redemption.KindConflict:
			render.JSON(w, r, response.Fail(entity.CodeAlreadyUsed, result.Name, result.CheckedInAt, messageAlreadyUsed))
		case redemption.KindNotFound:
			render.JSON(w, r, response.Fail(entity.CodeNotFound, "", nil, messageInvalidPass))
		default:
			render.JSON(w, r, response.Error(messageUnknown))
		}
	}
}

// UsePost rejects check-in over GET: scanners and link previews must not consume passes.
func UsePost(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodPost)
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, response.Error("Use POST"))
	}
}

// Reset returns a pass to unused unconditionally. Mounted on the operator route only.
func Reset(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.passes")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		token, err := bindToken(r, true)
		if err != nil {
			log.Debug("reset: bad token", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(tokenErrorMessage(err)))
			return
		}
		log = log.With(sl.Token(token))

		found, err := handler.ResetPass(r.Context(), token)
		if err != nil {
			log.Error("reset", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(messageServerError))
			return
		}
		if !found {
			render.JSON(w, r, response.Error("Pass not found"))
			return
		}
		render.JSON(w, r, response.Message("Pass reset to unused"))
	}
}

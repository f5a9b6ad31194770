package page

import (
	_ "embed"
	"log/slog"
	"net/http"
	"qrpass/lib/sl"
)

//go:embed pass.html
var passPage []byte

// Pass serves the guest page. The token stays in the query string; the page
// peeks first and checks in only on an explicit tap.
func Pass(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(passPage); err != nil {
			logger.With(sl.Module("http.handlers.page")).Warn("write page", sl.Err(err))
		}
	}
}

package passes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"qrpass/entity"
	"strings"

	"github.com/go-chi/render"
)

var errMissingToken = errors.New("missing token")

// bindToken takes the token from the query string, falling back to a JSON body.
// Validation happens here so a malformed token never reaches the store.
func bindToken(r *http.Request, allowBody bool) (string, error) {
	req := &entity.TokenRequest{Token: r.URL.Query().Get("token")}
	if allowBody && strings.TrimSpace(req.Token) == "" && r.Body != nil && r.Body != http.NoBody {
		if err := render.DecodeJSON(r.Body, req); err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("decode body: %w", err)
		}
	}
	if strings.TrimSpace(req.Token) == "" {
		return "", errMissingToken
	}
	if err := req.Bind(r); err != nil {
		return "", err
	}
	return req.Token, nil
}

func tokenErrorMessage(err error) string {
	if errors.Is(err, errMissingToken) {
		return "Missing token"
	}
	return fmt.Sprintf("Invalid token: %v", err)
}

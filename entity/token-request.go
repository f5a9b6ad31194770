package entity

import (
	"net/http"
	"qrpass/lib/validate"
	"strings"
)

// TokenRequest carries a pass token in a JSON body or query string.
type TokenRequest struct {
	Token string `json:"token" validate:"required,len=32,hexadecimal"`
}

func (t *TokenRequest) Bind(_ *http.Request) error {
	t.Token = strings.TrimSpace(t.Token)
	return validate.Struct(t)
}

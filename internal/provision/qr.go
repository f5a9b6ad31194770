package provision

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 600
	prefixLength  = 6
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_.-]`)
)

// Renderer writes a scannable image encoding content to path.
type Renderer interface {
	Render(content, path string) error
}

// QRRenderer writes square PNG QR codes.
type QRRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewQRRenderer(size int) *QRRenderer {
	if size <= 0 {
		size = DefaultQRSize
	}
	return &QRRenderer{
		Size:  size,
		Level: qrcode.Medium,
	}
}

func (q *QRRenderer) Render(content, path string) error {
	code, err := qrcode.New(content, q.Level)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	if err = code.WriteFile(q.Size, path); err != nil {
		return fmt.Errorf("write qr: %w", err)
	}
	return nil
}

// CleanBaseURL strips quotes that env files tend to leave around the value.
func CleanBaseURL(base string) string {
	return strings.Trim(strings.TrimSpace(base), `"'`)
}

// RedemptionURL appends the escaped token to the base link.
func RedemptionURL(base, token string) string {
	return base + url.QueryEscape(token)
}

// FileName is the artifact name for a pass: sanitized display name and a short token prefix.
// Collisions only affect the file name; the token stays the identifier.
func FileName(name, token string) string {
	safe := whitespace.ReplaceAllString(strings.TrimSpace(name), "_")
	safe = unsafeName.ReplaceAllString(safe, "")
	safe = strings.Trim(safe, ".")
	if safe == "" {
		safe = "Guest"
	}
	prefix := token
	if len(prefix) > prefixLength {
		prefix = prefix[:prefixLength]
	}
	return fmt.Sprintf("%s_%s.png", safe, prefix)
}

func artifactPath(dir, name, token string) string {
	return filepath.Join(dir, FileName(name, token))
}

// Package ticket issues the opaque payloads encoded in registration QR
// codes and renders them as PNG images.
package ticket

import (
	"fmt"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// NewCode returns a random payload. It carries no student or event data,
// so a scanned code is only meaningful when looked up within its event.
func NewCode() string {
	return uuid.NewString()
}

// PNG renders code as a QR image of size x size pixels.
func PNG(code string, size int) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("empty ticket code")
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

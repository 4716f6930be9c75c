// Package media validates and normalizes event attachments.
package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"eventide/internal/apperr"
)

const MaxBrochureBytes = 10 << 20

// MaxImagePixels bounds the declared size of an uploaded image before it
// is decoded.
const MaxImagePixels = 40_000_000

type ImageOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   float32
}

var DefaultImageOptions = ImageOptions{MaxWidth: 1600, MaxHeight: 1600, Quality: 80}

// ToWebP decodes a JPEG, PNG or WebP image, shrinks it to fit the
// configured bounds, and re-encodes it as WebP.
func ToWebP(data []byte, opt ImageOptions) ([]byte, error) {
	if len(data) == 0 {
		return nil, apperr.Invalid("image is empty")
	}

	var (
		img image.Image
		cfg image.Config
		err error
	)
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/jpeg"), mt.Is("image/png"):
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	case mt.Is("image/webp"):
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	default:
		return nil, apperr.Invalid(fmt.Sprintf("unsupported image type %s", mt.String()))
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "image could not be decoded")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, apperr.Invalid(fmt.Sprintf("image dimensions %dx%d are too large", cfg.Width, cfg.Height))
	}

	if mt.Is("image/webp") {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, err = imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "image could not be decoded")
	}
	img = fitWithin(img, opt.MaxWidth, opt.MaxHeight)

	q := opt.Quality
	if q <= 0 {
		q = DefaultImageOptions.Quality
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin shrinks img to the bounds, keeping its aspect ratio. A zero
// bound leaves that side unconstrained.
func fitWithin(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	switch {
	case maxW > 0 && maxH > 0:
		if b.Dx() > maxW || b.Dy() > maxH {
			return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
		}
	case maxW > 0:
		if b.Dx() > maxW {
			return imaging.Resize(img, maxW, 0, imaging.Lanczos)
		}
	case maxH > 0:
		if b.Dy() > maxH {
			return imaging.Resize(img, 0, maxH, imaging.Lanczos)
		}
	}
	return img
}

// CheckBrochure accepts PDF, PNG and JPEG files up to MaxBrochureBytes and
// returns the file extension to store it under.
func CheckBrochure(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Invalid("brochure is empty")
	}
	if len(data) > MaxBrochureBytes {
		return "", apperr.Invalid("brochure exceeds 10 MB")
	}
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/pdf"), mt.Is("image/png"), mt.Is("image/jpeg"):
		return mt.Extension(), nil
	}
	return "", apperr.Invalid(fmt.Sprintf("unsupported brochure type %s", mt.String()))
}

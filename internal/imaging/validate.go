// Package imaging validates inbound label photos and prepares them for the
// model calls.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"slices"
	"strings"

	_ "golang.org/x/image/webp" // register decoder
)

// Failure reasons, in the order checks run.
const (
	ReasonMalformed       = "malformed"
	ReasonUnsupportedType = "unsupported_media_type"
	ReasonTooLarge        = "too_large"
	ReasonCorrupt         = "corrupt_image"
	ReasonTooManyPixels   = "too_many_pixels"
)

// DefaultMaxPixels caps width * height when no other limit is set. A
// decoded RGBA frame of this size is about 160 MB.
const DefaultMaxPixels = 40_000_000

// ValidationError is returned for any payload that fails a check. Message
// is safe to show to the caller.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Reason + ": " + e.Message }

// Payload is the raw request input: base64 (optionally a data URL) plus the
// declared media type.
type Payload struct {
	Data      string
	MediaType string
}

// Image is a validated photo. Bytes are decoded, MediaType is normalized.
type Image struct {
	Bytes     []byte
	MediaType string
	Width     int
	Height    int
}

// Size returns the decoded byte length.
func (i *Image) Size() int { return len(i.Bytes) }

// Validator checks payloads against size and pixel limits and allowed
// media types.
type Validator struct {
	maxBytes  int64
	maxPixels int
	allowed   []string
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMaxPixels caps width * height. Non-positive values keep the default.
func WithMaxPixels(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxPixels = n
		}
	}
}

// NewValidator builds a validator. Media types are compared
// case-insensitively.
func NewValidator(maxBytes int64, allowed []string, opts ...ValidatorOption) *Validator {
	norm := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a = normalizeMediaType(a); a != "" {
			norm = append(norm, a)
		}
	}
	v := &Validator{maxBytes: maxBytes, maxPixels: DefaultMaxPixels, allowed: norm}
	for _, o := range opts {
		o(v)
	}
	return v
}

// MaxBytes returns the configured decoded size limit.
func (v *Validator) MaxBytes() int64 { return v.maxBytes }

// Validate runs the checks in order and stops at the first failure:
// decodable base64, allowed media type, size limit, that the bytes really
// are an image of the declared type, and the pixel limit. Only the image
// header is read, so an oversized frame is refused before it is decoded.
func (v *Validator) Validate(p Payload) (*Image, error) {
	raw, hint, err := decodeBase64MaybeDataURL(p.Data)
	if err != nil || len(raw) == 0 {
		return nil, &ValidationError{Reason: ReasonMalformed, Message: "image must be a non-empty base64 payload"}
	}

	mt := normalizeMediaType(p.MediaType)
	if mt == "" {
		mt = normalizeMediaType(hint)
	}
	if !slices.Contains(v.allowed, mt) {
		return nil, &ValidationError{
			Reason:  ReasonUnsupportedType,
			Message: fmt.Sprintf("media type %q is not supported; use one of %s", mt, strings.Join(v.allowed, ", ")),
		}
	}

	if int64(len(raw)) > v.maxBytes {
		return nil, &ValidationError{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("image is %d bytes; the limit is %d", len(raw), v.maxBytes),
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || "image/"+format != mt || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ValidationError{Reason: ReasonCorrupt, Message: "image data could not be read as " + mt}
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > int64(v.maxPixels) {
		return nil, &ValidationError{
			Reason:  ReasonTooManyPixels,
			Message: fmt.Sprintf("image is %dx%d pixels; the limit is %d pixels", cfg.Width, cfg.Height, v.maxPixels),
		}
	}

	return &Image{Bytes: raw, MediaType: mt, Width: cfg.Width, Height: cfg.Height}, nil
}

// decodeBase64MaybeDataURL accepts either plain base64 or a
// data:<mime>;base64,<payload> URL and returns the bytes plus any MIME hint.
func decodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hint string
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", fmt.Errorf("data url without payload")
		}
		meta := s[len("data:"):idx]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			hint = meta[:semi]
		} else {
			hint = meta
		}
		s = s[idx+1:]
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, hint, nil
	}
	b, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, "", err
	}
	return b, hint, nil
}

func normalizeMediaType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "image/jpg" {
		mt = "image/jpeg"
	}
	return mt
}

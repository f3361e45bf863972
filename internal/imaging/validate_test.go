package imaging

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 120, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// pngHeader returns a PNG that carries only a signature and IHDR for a
// w x h RGBA image. That is enough for image.DecodeConfig.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 6, 0, 0, 0) // 8-bit RGBA, no interlace
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected *ValidationError, got %T (%v)", err, err)
	require.NotEmpty(t, ve.Message)
	return ve.Reason
}

func TestValidate_OK(t *testing.T) {
	raw := pngBytes(t, 4, 3)
	v := NewValidator(1<<20, []string{"image/png", "IMAGE/JPEG"})

	img, err := v.Validate(Payload{Data: base64.StdEncoding.EncodeToString(raw), MediaType: "image/PNG"})
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MediaType)
	require.Equal(t, raw, img.Bytes)
	require.Equal(t, len(raw), img.Size())
	require.Equal(t, 4, img.Width)
	require.Equal(t, 3, img.Height)
}

func TestValidate_DataURLSuppliesMediaType(t *testing.T) {
	raw := pngBytes(t, 2, 2)
	v := NewValidator(1<<20, []string{"image/png"})

	img, err := v.Validate(Payload{Data: "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)})
	require.NoError(t, err)
	require.Equal(t, "image/png", img.MediaType)
}

func TestValidate_ChecksRunInOrder(t *testing.T) {
	raw := pngBytes(t, 8, 8)
	enc := base64.StdEncoding.EncodeToString(raw)

	cases := []struct {
		name   string
		v      *Validator
		p      Payload
		reason string
	}{
		{"not base64", NewValidator(1<<20, []string{"image/png"}), Payload{Data: "%%%not-base64", MediaType: "image/png"}, ReasonMalformed},
		{"empty", NewValidator(1<<20, []string{"image/png"}), Payload{Data: "", MediaType: "image/png"}, ReasonMalformed},
		// malformed wins over a bad media type
		{"malformed and bad type", NewValidator(1<<20, []string{"image/png"}), Payload{Data: "***", MediaType: "text/plain"}, ReasonMalformed},
		{"type not allowed", NewValidator(1<<20, []string{"image/jpeg"}), Payload{Data: enc, MediaType: "image/png"}, ReasonUnsupportedType},
		// unsupported type wins over size
		{"bad type and too large", NewValidator(1, []string{"image/jpeg"}), Payload{Data: enc, MediaType: "application/pdf"}, ReasonUnsupportedType},
		{"too large", NewValidator(int64(len(raw)-1), []string{"image/png"}), Payload{Data: enc, MediaType: "image/png"}, ReasonTooLarge},
		{"declared jpeg but png bytes", NewValidator(1<<20, []string{"image/jpeg"}), Payload{Data: enc, MediaType: "image/jpeg"}, ReasonCorrupt},
		{"garbage bytes", NewValidator(1<<20, []string{"image/png"}), Payload{Data: base64.StdEncoding.EncodeToString([]byte("hello wine")), MediaType: "image/png"}, ReasonCorrupt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.v.Validate(tc.p)
			require.Error(t, err)
			require.Equal(t, tc.reason, reasonOf(t, err))
		})
	}
}

func TestValidate_SizeBoundaryIsInclusive(t *testing.T) {
	raw := pngBytes(t, 5, 5)
	v := NewValidator(int64(len(raw)), []string{"image/png"})
	_, err := v.Validate(Payload{Data: base64.StdEncoding.EncodeToString(raw), MediaType: "image/png"})
	require.NoError(t, err)
}

func TestValidate_RejectsTooManyPixelsFromHeader(t *testing.T) {
	// A few dozen bytes that would decode to a 12000x12000 frame.
	bomb := pngHeader(12000, 12000)
	enc := base64.StdEncoding.EncodeToString(bomb)

	_, err := NewValidator(5<<20, []string{"image/png"}).Validate(Payload{Data: enc, MediaType: "image/png"})
	require.Error(t, err)
	require.Equal(t, ReasonTooManyPixels, reasonOf(t, err))
	require.Contains(t, err.Error(), "12000x12000")

	// The header alone is a readable image when the limit allows it.
	img, err := NewValidator(5<<20, []string{"image/png"}, WithMaxPixels(200_000_000)).
		Validate(Payload{Data: enc, MediaType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, 12000, img.Width)
}

func TestValidate_MaxPixelsBoundary(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngBytes(t, 20, 10))

	_, err := NewValidator(1<<20, []string{"image/png"}, WithMaxPixels(200)).Validate(Payload{Data: enc, MediaType: "image/png"})
	require.NoError(t, err)

	_, err = NewValidator(1<<20, []string{"image/png"}, WithMaxPixels(199)).Validate(Payload{Data: enc, MediaType: "image/png"})
	require.Equal(t, ReasonTooManyPixels, reasonOf(t, err))

	// Non-positive limits keep the default.
	require.Equal(t, DefaultMaxPixels, NewValidator(1, nil, WithMaxPixels(0)).maxPixels)
}

func TestNormalizeMediaType(t *testing.T) {
	require.Equal(t, "image/jpeg", normalizeMediaType(" Image/JPG "))
	require.Equal(t, "image/png", normalizeMediaType("image/png; charset=binary"))
	require.Equal(t, "", normalizeMediaType("  "))
}

func TestThumbnail(t *testing.T) {
	raw := pngBytes(t, 400, 200)
	img := &Image{Bytes: raw, MediaType: "image/png", Width: 400, Height: 200}

	small, err := Thumbnail(img, 100)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", small.MediaType)
	require.Equal(t, 100, small.Width)
	require.Equal(t, 50, small.Height)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(small.Bytes))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 100, cfg.Width)

	same, err := Thumbnail(img, 1000)
	require.NoError(t, err)
	require.Same(t, img, same)
}

package imaging

import (
	"bytes"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Thumbnail returns a JPEG copy of img scaled so its longest side is at
// most maxSide. Images already small enough are returned unchanged.
func Thumbnail(img *Image, maxSide int) (*Image, error) {
	if img == nil || maxSide <= 0 || (img.Width <= maxSide && img.Height <= maxSide) {
		return img, nil
	}
	src, _, err := image.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	scale := float64(maxSide) / float64(max(bounds.Dx(), bounds.Dy()))
	newW := max(int(float64(bounds.Dx())*scale), 1)
	newH := max(int(float64(bounds.Dy())*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return &Image{Bytes: buf.Bytes(), MediaType: "image/jpeg", Width: newW, Height: newH}, nil
}

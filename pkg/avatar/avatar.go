// Package avatar normalizes uploaded profile images before they are handed
// to object storage.
package avatar

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

const (
	// Uploaded avatars are cropped to a 600x600 cover.
	Width  = 600
	Height = 600
)

// Normalize decodes data, center-crops it to the avatar dimensions and
// re-encodes it to match mimeType (PNG stays PNG, everything else becomes
// JPEG).
func Normalize(data []byte, mimeType string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	out := imaging.Fill(img, Width, Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, out)
	default:
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Ext returns the object-key extension for a mime type.
func Ext(mimeType string) string {
	if mimeType == "image/png" {
		return ".png"
	}
	return ".jpg"
}

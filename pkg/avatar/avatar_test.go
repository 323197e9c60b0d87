package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeCoverDimensions(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"landscape", 900, 300},
		{"portrait", 300, 900},
		{"small", 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Normalize(encodePNG(t, tc.w, tc.h), "image/png")
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if format != "png" {
				t.Errorf("format = %q, want png", format)
			}
			if cfg.Width != Width || cfg.Height != Height {
				t.Errorf("dimensions = %dx%d, want %dx%d", cfg.Width, cfg.Height, Width, Height)
			}
		})
	}
}

func TestNormalizeReencodesToJPEG(t *testing.T) {
	out, err := Normalize(encodePNG(t, 640, 480), "image/jpeg")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize([]byte("not an image"), "image/png"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExt(t *testing.T) {
	if got := Ext("image/png"); got != ".png" {
		t.Errorf("png ext = %q", got)
	}
	if got := Ext("image/jpeg"); got != ".jpg" {
		t.Errorf("jpeg ext = %q", got)
	}
	if got := Ext("application/octet-stream"); got != ".jpg" {
		t.Errorf("fallback ext = %q", got)
	}
}

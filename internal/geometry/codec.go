package geometry

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"
)

// Decode parses uploaded sketch bytes. PNG and JPEG are accepted.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// EncodePNG serializes an image for transport to the provider and for artifact
// storage. All artifacts are PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

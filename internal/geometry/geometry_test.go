package geometry

import (
	"image"
	"testing"
)

func testSketch(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(x * 7)
			img.Pix[i+1] = uint8(y * 13)
			img.Pix[i+2] = uint8((x + y) * 3)
			img.Pix[i+3] = uint8(255 - (x+y)%37)
		}
	}
	return img
}

func isSupported(a, b int) bool {
	for _, c := range supportedRatios {
		if c[0] == a && c[1] == b {
			return true
		}
	}
	return false
}

func TestPickBestRatioReturnsSupportedRatio(t *testing.T) {
	cases := []struct {
		w, h         int
		wantA, wantB int
	}{
		{100, 100, 1, 1},
		{100, 300, 2, 3},
		{300, 100, 3, 2},
		{640, 480, 1, 1},
		{1, 1, 1, 1},
		{50, 1000, 2, 3},
	}
	for _, tc := range cases {
		a, b := PickBestRatio(tc.w, tc.h)
		if !isSupported(a, b) {
			t.Fatalf("PickBestRatio(%d,%d) = %d:%d, not a supported ratio", tc.w, tc.h, a, b)
		}
		if a != tc.wantA || b != tc.wantB {
			t.Fatalf("PickBestRatio(%d,%d) = %d:%d, want %d:%d", tc.w, tc.h, a, b, tc.wantA, tc.wantB)
		}
	}
}

func TestPickBestRatioDeterministic(t *testing.T) {
	a1, b1 := PickBestRatio(200, 200)
	a2, b2 := PickBestRatio(200, 200)
	if a1 != a2 || b1 != b2 {
		t.Fatalf("identical inputs gave different ratios: %d:%d vs %d:%d", a1, b1, a2, b2)
	}
}

func TestPadToAspectCanvasContainsOriginal(t *testing.T) {
	for _, size := range [][2]int{{100, 100}, {37, 61}, {61, 37}, {1, 1}, {640, 480}} {
		orig := testSketch(size[0], size[1])
		padded, mask, off := PadToAspect(orig)

		pw, ph := padded.Bounds().Dx(), padded.Bounds().Dy()
		if pw < size[0] || ph < size[1] {
			t.Fatalf("padded %dx%d smaller than original %dx%d", pw, ph, size[0], size[1])
		}
		if off.X < 0 || off.Y < 0 {
			t.Fatalf("negative offset %v", off)
		}
		if off.X != (pw-size[0])/2 || off.Y != (ph-size[1])/2 {
			t.Fatalf("offset %v is not centered for %dx%d in %dx%d", off, size[0], size[1], pw, ph)
		}
		if mask.Bounds() != padded.Bounds() {
			t.Fatalf("mask bounds %v != padded bounds %v", mask.Bounds(), padded.Bounds())
		}
	}
}

func TestPadCropRoundTrip(t *testing.T) {
	for _, size := range [][2]int{{100, 100}, {37, 61}, {61, 37}, {3, 200}} {
		orig := testSketch(size[0], size[1])
		padded, _, off := PadToAspect(orig)

		back := CropBack(padded, off, size[0], size[1])
		if back.Bounds() != orig.Bounds() {
			t.Fatalf("round trip bounds %v, want %v", back.Bounds(), orig.Bounds())
		}
		for i := range orig.Pix {
			if back.Pix[i] != orig.Pix[i] {
				t.Fatalf("size %dx%d: pixel mismatch at byte %d: got %d, want %d", size[0], size[1], i, back.Pix[i], orig.Pix[i])
			}
		}
	}
}

func TestMaskOpaqueExactlyOverContent(t *testing.T) {
	orig := testSketch(37, 61)
	_, mask, off := PadToAspect(orig)

	content := image.Rect(off.X, off.Y, off.X+37, off.Y+61)
	bounds := mask.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			alpha := mask.Pix[mask.PixOffset(x, y)+3]
			inside := image.Pt(x, y).In(content)
			if inside && alpha != 255 {
				t.Fatalf("mask transparent inside content region at (%d,%d): alpha=%d", x, y, alpha)
			}
			if !inside && alpha != 0 {
				t.Fatalf("mask opaque outside content region at (%d,%d): alpha=%d", x, y, alpha)
			}
		}
	}
}

func TestEncodeDecodePreservesPixels(t *testing.T) {
	orig := testSketch(20, 30)
	data, err := EncodePNG(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 30 {
		t.Fatalf("decoded size %v, want 20x30", decoded.Bounds())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected error for non-image bytes")
	}
}

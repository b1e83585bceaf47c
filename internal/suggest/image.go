package suggest

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// maxImageWidth caps the snapshot width sent to the model. Full-page
// captures of a 1920px window waste upload time and vision tokens without
// improving answers.
const maxImageWidth = 1024

// loadScaled reads a PNG snapshot and downscales it to maxImageWidth when
// wider, preserving aspect ratio.
func loadScaled(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	src, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		// Not decodable as PNG; send as captured.
		return raw, nil
	}

	bounds := src.Bounds()
	if bounds.Dx() <= maxImageWidth {
		return raw, nil
	}

	scale := float64(maxImageWidth) / float64(bounds.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, int(float64(bounds.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return raw, nil
	}
	return buf.Bytes(), nil
}

package systray

import (
	"image"
	"image/color"
	"log/slog"

	"golang.org/x/image/draw"
)

const iconSize = 22

// appIcon draws the menu bar glyph: a clipboard holding a picture. It is
// black on transparent so macOS can tint it as a template image.
func appIcon() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	ink := image.NewUniform(color.NRGBA{A: 0xFF})

	fill := func(x0, y0, x1, y1 int) {
		draw.Draw(img, image.Rect(x0, y0, x1, y1), ink, image.Point{}, draw.Src)
	}

	// board outline
	fill(3, 3, 19, 5)
	fill(3, 20, 19, 22)
	fill(3, 3, 5, 22)
	fill(17, 3, 19, 22)
	// clip
	fill(8, 1, 14, 5)
	// mountain and sun
	for i := 0; i < 5; i++ {
		fill(7+i, 17-i, 15-i, 18-i)
	}
	fill(7, 17, 16, 19)
	fill(13, 8, 15, 10)

	icon, err := encodePNG(img)
	if err != nil {
		slog.Error("Failed to encode tray icon", "error", err)
		return nil
	}
	return icon
}

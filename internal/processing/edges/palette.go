package edges

import (
	"image/color"
	"strings"

	"gocv.io/x/gocv"
)

// PaletteColor is one of the fixed outline colours.
type PaletteColor int

const (
	White PaletteColor = iota
	Blue
	Yellow
	Red
	Green
	Gold
	Black
)

var paletteNames = [...]string{
	White:  "White",
	Blue:   "Blue",
	Yellow: "Yellow",
	Red:    "Red",
	Green:  "Green",
	Gold:   "Gold",
	Black:  "Black",
}

var paletteRGB = [...]color.RGBA{
	White:  {R: 255, G: 255, B: 255, A: 255},
	Blue:   {R: 0, G: 0, B: 255, A: 255},
	Yellow: {R: 255, G: 255, B: 0, A: 255},
	Red:    {R: 255, G: 0, B: 0, A: 255},
	Green:  {R: 0, G: 255, B: 0, A: 255},
	Gold:   {R: 255, G: 215, B: 0, A: 255},
	Black:  {R: 0, G: 0, B: 0, A: 255},
}

// Palette lists every colour in display order.
func Palette() []PaletteColor {
	return []PaletteColor{White, Blue, Yellow, Red, Green, Gold, Black}
}

// PaletteNames lists the colour names in display order.
func PaletteNames() []string {
	names := make([]string, 0, len(paletteNames))
	for _, c := range Palette() {
		names = append(names, c.String())
	}
	return names
}

func (c PaletteColor) Valid() bool {
	return c >= White && c <= Black
}

func (c PaletteColor) String() string {
	if !c.Valid() {
		return paletteNames[White]
	}
	return paletteNames[c]
}

// RGBA is the opaque colour; out of range values map to White.
func (c PaletteColor) RGBA() color.RGBA {
	if !c.Valid() {
		return paletteRGB[White]
	}
	return paletteRGB[c]
}

// Scalar is the colour in OpenCV BGRA channel order.
func (c PaletteColor) Scalar() gocv.Scalar {
	rgba := c.RGBA()
	return gocv.NewScalar(float64(rgba.B), float64(rgba.G), float64(rgba.R), float64(rgba.A))
}

// ParsePaletteColor matches name case-insensitively. Unknown names return
// White and false.
func ParsePaletteColor(name string) (PaletteColor, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Palette() {
		if strings.EqualFold(name, c.String()) {
			return c, true
		}
	}
	return White, false
}

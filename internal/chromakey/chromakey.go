// Package chromakey turns raw video frames into small square sprites: green
// screen and listed background colors become transparent, fixed bands are
// trimmed from the top and bottom, and the centered square is scaled down.
//
// Everything here is a pure function of its inputs; callers own I/O,
// logging and retries.
package chromakey

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// MarginTop and MarginBottom bound the kept rows as fractions of the
	// frame height: [floor(h*MarginTop), floor(h*MarginBottom)).
	MarginTop    = 0.15
	MarginBottom = 0.92

	// HueMin and HueMax bound the keyed hue band in degrees, inclusive.
	HueMin = 60.0
	HueMax = 180.0
	// SaturationMin is exclusive: greys and whites are never keyed by hue.
	SaturationMin = 0.1

	// TargetSize is the output edge length in pixels.
	TargetSize = 36
)

var (
	ErrInvalidGeometry = errors.New("invalid frame geometry")
	ErrMalformedPixel  = errors.New("malformed pixel")
)

// Transparent replaces every removed pixel.
var Transparent = color.NRGBA{R: 255, G: 255, B: 255, A: 0}

// Processor binds a RemovalSet so frames can be processed one at a time.
type Processor struct {
	Removal RemovalSet
}

func NewProcessor(removal RemovalSet) *Processor {
	return &Processor{Removal: removal}
}

func (p *Processor) Process(frame image.Image) (*image.NRGBA, error) {
	return Process(frame, p.Removal)
}

// Process keys out removable pixels, trims the margins, crops the centered
// square and resizes it to TargetSize x TargetSize. It either returns a
// complete image or an error, never both.
func Process(frame image.Image, set RemovalSet) (*image.NRGBA, error) {
	b := frame.Bounds()
	top, bottom := MarginRows(b.Dy())
	if b.Dx() <= 0 || bottom-top <= 0 {
		return nil, fmt.Errorf("frame %dx%d leaves %d rows after margins: %w",
			b.Dx(), b.Dy(), bottom-top, ErrInvalidGeometry)
	}

	keyed, err := KeyOut(frame, set)
	if err != nil {
		return nil, err
	}

	band := imaging.Crop(keyed, image.Rect(0, top, b.Dx(), bottom))
	square := imaging.Crop(band, CenterSquare(band.Bounds().Dx(), band.Bounds().Dy()))

	sb := square.Bounds()
	width := int(math.Round(float64(sb.Dx()) * TargetSize / float64(sb.Dy())))
	out := imaging.Resize(square, width, TargetSize, imaging.Linear)
	clearTransparent(out)
	return out, nil
}

// KeyOut returns a copy of frame, anchored at the origin, in which every
// removable pixel is Transparent. Other pixels keep their color and alpha;
// frames without an alpha channel come out opaque.
func KeyOut(frame image.Image, set RemovalSet) (*image.NRGBA, error) {
	b := frame.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			c, err := nrgbaAt(frame, x, y)
			if err != nil {
				return nil, err
			}
			if Removable(RGB{R: c.R, G: c.G, B: c.B}, set) {
				c = Transparent
			}
			i := (x - b.Min.X) * 4
			row[i+0] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = c.A
		}
	}
	return dst, nil
}

// Removable reports whether c falls in the green hue band or is listed in set.
func Removable(c RGB, set RemovalSet) bool {
	return set.Contains(c) || InGreenBand(c)
}

// InGreenBand reports whether c's hue lies in [HueMin, HueMax] with
// saturation above SaturationMin.
func InGreenBand(c RGB) bool {
	h, s, _ := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hsv()
	return h >= HueMin && h <= HueMax && s > SaturationMin
}

// MarginRows returns the half-open row range kept by the margin crop.
func MarginRows(height int) (top, bottom int) {
	return int(float64(height) * MarginTop), int(float64(height) * MarginBottom)
}

// CenterSquare returns the largest square centered in a w x h rectangle
// anchored at the origin. Odd leftovers go to the right and bottom.
func CenterSquare(w, h int) image.Rectangle {
	s := min(w, h)
	left := (w - s) / 2
	top := (h - s) / 2
	return image.Rect(left, top, left+s, top+s)
}

func nrgbaAt(img image.Image, x, y int) (color.NRGBA, error) {
	switch src := img.(type) {
	case *image.NRGBA:
		i := src.PixOffset(x, y)
		p := src.Pix[i : i+4 : i+4]
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}, nil
	case *image.RGBA:
		i := src.PixOffset(x, y)
		p := src.Pix[i : i+4 : i+4]
		if p[0] > p[3] || p[1] > p[3] || p[2] > p[3] {
			return color.NRGBA{}, fmt.Errorf("pixel (%d,%d) rgba(%d,%d,%d,%d): %w",
				x, y, p[0], p[1], p[2], p[3], ErrMalformedPixel)
		}
		if p[3] == 0xff {
			return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xff}, nil
		}
	}

	c := img.At(x, y)
	r, g, b, a := c.RGBA()
	if r > a || g > a || b > a {
		return color.NRGBA{}, fmt.Errorf("pixel (%d,%d) %v: %w", x, y, c, ErrMalformedPixel)
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA), nil
}

// clearTransparent normalizes fully transparent pixels to Transparent; the
// resampler leaves them zeroed since they carry no color weight.
func clearTransparent(img *image.NRGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 0 {
			img.Pix[i+0] = Transparent.R
			img.Pix[i+1] = Transparent.G
			img.Pix[i+2] = Transparent.B
		}
	}
}

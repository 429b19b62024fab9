package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/makeworld-the-better-one/dither/v2"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"d30-print/internal/raster"
)

// ErrInvalidImage is returned for a source image with no pixels
var ErrInvalidImage = errors.New("invalid image")

// DefaultThreshold is the gray level below which a pixel prints as ink
const DefaultThreshold = 128

// NormalizeOptions controls how a source image is reduced to one bit per pixel
type NormalizeOptions struct {
	Threshold uint8 // ignored when Dither is set
	Dither    bool  // Floyd-Steinberg instead of a fixed threshold
	Invert    bool
}

// LoadImage loads an image from file
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Normalize scales img to width dots, keeping its aspect ratio, and reduces it
// to a monochrome raster. Transparent areas print as white.
func Normalize(img image.Image, width int, opts NormalizeOptions) (*raster.Raster, error) {
	if width <= 0 {
		return nil, fmt.Errorf("target width must be positive, got %d", width)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: source is %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}

	scaled := scaleToWidth(img, width)
	h := scaled.Bounds().Dy()
	out := raster.New(width, h)

	if opts.Dither {
		ditherInto(out, scaled)
	} else {
		for y := 0; y < h; y++ {
			for x := 0; x < width; x++ {
				if rgbToGray(scaled.At(x, y)) < opts.Threshold {
					out.Set(x, y, 1)
				}
			}
		}
	}

	if opts.Invert {
		for y := 0; y < h; y++ {
			for x := 0; x < width; x++ {
				out.Set(x, y, 1-out.At(x, y))
			}
		}
	}
	return out, nil
}

// scaleToWidth resamples img onto a white canvas width pixels wide
func scaleToWidth(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if b.Dx() == width && b.Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	}
	return dst
}

func ditherInto(out *raster.Raster, img image.Image) {
	palette := []color.Color{color.Black, color.White}
	d := dither.NewDitherer(palette)
	d.Matrix = dither.FloydSteinberg
	dithered := d.DitherPaletted(img)

	black := uint8(dithered.Palette.Index(color.Black))
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			if dithered.ColorIndexAt(x, y) == black {
				out.Set(x, y, 1)
			}
		}
	}
}

// rgbToGray converts a color to grayscale value
func rgbToGray(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	// Standard luminance formula, values are 16-bit so divide by 256
	gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
	return uint8(gray)
}

// Preview renders a raster as a viewable grayscale image
func Preview(r *raster.Raster) image.Image {
	img := image.NewGray(image.Rect(0, 0, r.Width(), r.Height()))

	for y := 0; y < r.Height(); y++ {
		for x := 0; x < r.Width(); x++ {
			if r.At(x, y) == 1 {
				img.SetGray(x, y, color.Gray{0}) // black
			} else {
				img.SetGray(x, y, color.Gray{255}) // white
			}
		}
	}

	return img
}

package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"strings"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// LabelSize is the printable area of a label stock, in landscape pixels
type LabelSize struct {
	Name     string
	CaptionW int // text area
	CaptionH int
	OffsetX  int // shift of the text area right of centre
}

// Label canvas, landscape. Rotated it is 96 dots wide, the D30 head width.
const (
	CanvasW = 320
	CanvasH = 96
)

var (
	StandardLabel = LabelSize{"standard", 288, 88, 0}
	// Fruit labels have a die cut on the left that the text must clear
	FruitLabel = LabelSize{"fruit", 240, 80, 20}
)

var AllSizes = []LabelSize{StandardLabel, FruitLabel}

// LabelOptions configures text rendering
type LabelOptions struct {
	FontPath string  // TTF file; empty uses Go Regular
	FontSize float64 // pixels
	Size     LabelSize
}

// LoadFont parses a TrueType font file, or the embedded Go Regular for ""
func LoadFont(path string) (*truetype.Font, error) {
	data := goregular.TTF
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", path, err)
	}
	return f, nil
}

// RenderLabel draws text centred in the label's caption area and places that
// on the full landscape canvas. Use ForPrint before sending it to the printer.
func RenderLabel(text string, opts LabelOptions) (image.Image, error) {
	if opts.FontSize <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", opts.FontSize)
	}
	size := opts.Size
	if size.CaptionW == 0 || size.CaptionH == 0 {
		size = StandardLabel
	}

	f, err := LoadFont(opts.FontPath)
	if err != nil {
		return nil, err
	}

	caption := image.NewRGBA(image.Rect(0, 0, size.CaptionW, size.CaptionH))
	draw.Draw(caption, caption.Bounds(), image.White, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(72) // font size in pixels
	c.SetFont(f)
	c.SetFontSize(opts.FontSize)
	c.SetClip(caption.Bounds())
	c.SetDst(caption)
	c.SetSrc(image.Black)
	c.SetHinting(font.HintingFull)

	face := truetype.NewFace(f, &truetype.Options{Size: opts.FontSize, DPI: 72})
	defer face.Close()
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()

	lines := wrapText(text, face, size.CaptionW)
	y := (size.CaptionH-len(lines)*lineHeight)/2 + metrics.Ascent.Ceil()

	for _, line := range lines {
		// Center each line horizontally
		x := (size.CaptionW - measureString(face, line)) / 2
		if _, err := c.DrawString(line, freetype.Pt(x, y)); err != nil {
			return nil, fmt.Errorf("draw text: %w", err)
		}
		y += lineHeight
	}

	canvas := image.NewRGBA(image.Rect(0, 0, CanvasW, CanvasH))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	origin := image.Pt((CanvasW-size.CaptionW)/2+size.OffsetX, (CanvasH-size.CaptionH)/2)
	draw.Draw(canvas, caption.Bounds().Add(origin), caption, image.Point{}, draw.Src)

	return canvas, nil
}

// wrapText splits text into lines, only breaking at word boundaries
// unless a single word is wider than maxWidth
func wrapText(text string, face font.Face, maxWidth int) []string {
	var lines []string

	// First split by explicit newlines
	paragraphs := strings.Split(text, "\n")

	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		currentLine := ""
		for _, word := range words {
			testLine := word
			if currentLine != "" {
				testLine = currentLine + " " + word
			}

			if measureString(face, testLine) <= maxWidth {
				currentLine = testLine
				continue
			}
			if currentLine != "" {
				lines = append(lines, currentLine)
			}
			if measureString(face, word) > maxWidth {
				currentLine = breakLongWord(word, face, maxWidth, &lines)
			} else {
				currentLine = word
			}
		}

		if currentLine != "" {
			lines = append(lines, currentLine)
		}
	}

	return lines
}

// breakLongWord breaks a single word that's too long to fit
func breakLongWord(word string, face font.Face, maxWidth int, lines *[]string) string {
	var currentPart string
	for _, char := range word {
		testPart := currentPart + string(char)
		if measureString(face, testPart) > maxWidth && currentPart != "" {
			*lines = append(*lines, currentPart)
			currentPart = string(char)
		} else {
			currentPart = testPart
		}
	}
	return currentPart
}

// measureString returns the width of a string in pixels
func measureString(face font.Face, s string) int {
	var width fixed.Int26_6
	for _, r := range s {
		adv, ok := face.GlyphAdvance(r)
		if ok {
			width += adv
		}
	}
	return width.Ceil()
}

// ForPrint turns a landscape label upright for the print head: 270 degrees
// clockwise, so the canvas height becomes the raster width.
func ForPrint(img image.Image) image.Image {
	return rotate90CCW(img)
}

// rotate90CCW rotates an image 90 degrees counter-clockwise
func rotate90CCW(src image.Image) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Set(y, w-1-x, src.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	return dst
}

// SizeByName returns the label size with the given name
func SizeByName(name string) (LabelSize, bool) {
	for _, s := range AllSizes {
		if s.Name == name {
			return s, true
		}
	}
	return LabelSize{}, false
}


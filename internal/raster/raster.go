package raster

import (
	"errors"
	"fmt"
	"iter"
)

// ErrUnsupportedWidth is returned when a row cannot be packed into whole bytes
var ErrUnsupportedWidth = errors.New("unsupported raster width")

// Raster is a 1-bit image, one byte per pixel (0 = white, 1 = ink)
type Raster struct {
	width  int
	height int
	pix    []uint8
}

// New returns a blank raster of the given size
func New(width, height int) *Raster {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("raster: negative size %dx%d", width, height))
	}
	return &Raster{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height),
	}
}

// FromRows builds a raster from explicit rows. Every row must have the same length.
func FromRows(rows [][]uint8) (*Raster, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	width := len(rows[0])
	r := New(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d pixels, want %d", y, len(row), width)
		}
		for x, p := range row {
			r.pix[y*width+x] = p & 1
		}
	}
	return r, nil
}

func (r *Raster) Width() int  { return r.width }
func (r *Raster) Height() int { return r.height }

// At returns the pixel at (x, y)
func (r *Raster) At(x, y int) uint8 {
	return r.pix[y*r.width+x]
}

// Set sets the pixel at (x, y). Only the low bit of v is kept.
func (r *Raster) Set(x, y int, v uint8) {
	r.pix[y*r.width+x] = v & 1
}

// Row returns row y. The slice aliases the raster and must not be modified.
func (r *Raster) Row(y int) []uint8 {
	return r.pix[y*r.width : (y+1)*r.width : (y+1)*r.width]
}

func (r *Raster) String() string {
	return fmt.Sprintf("Raster(%d,%d)", r.width, r.height)
}

// Chunk is a run of consecutive rows taken from a raster
type Chunk struct {
	Width int
	Start int // index of the first row in the source raster
	Rows  [][]uint8
}

// Height returns the number of rows in the chunk
func (c Chunk) Height() int {
	return len(c.Rows)
}

// Chunks splits the raster into runs of at most maxRows rows, top to bottom.
// Chunks are produced lazily and alias the raster's rows.
func (r *Raster) Chunks(maxRows int) iter.Seq[Chunk] {
	if maxRows < 1 {
		panic(fmt.Sprintf("raster: chunk size must be positive, got %d", maxRows))
	}
	return func(yield func(Chunk) bool) {
		for start := 0; start < r.height; start += maxRows {
			end := min(start+maxRows, r.height)
			rows := make([][]uint8, 0, end-start)
			for y := start; y < end; y++ {
				rows = append(rows, r.Row(y))
			}
			if !yield(Chunk{Width: r.width, Start: start, Rows: rows}) {
				return
			}
		}
	}
}

// ChunkCount returns how many chunks Chunks(maxRows) yields
func (r *Raster) ChunkCount(maxRows int) int {
	return (r.height + maxRows - 1) / maxRows
}

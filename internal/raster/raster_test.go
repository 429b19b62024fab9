package raster

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func aRandomRaster(width, maxHeight int) *Raster {
	r := New(width, rand.IntN(maxHeight+1))
	for y := range r.Height() {
		for x := range width {
			r.Set(x, y, uint8(rand.IntN(2)))
		}
	}
	return r
}

func assertRowsEqual(t *testing.T, got, want []uint8) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("row length %d, want %d", len(got), len(want))
	}
	for x := range want {
		if got[x] != want[x] {
			t.Errorf("pixel %d = %d, want %d", x, got[x], want[x])
		}
	}
}

func TestPackRow(t *testing.T) {
	checker := make([]uint8, 96)
	for x := range checker {
		checker[x] = uint8(1 - x%2)
	}
	black := bytes.Repeat([]byte{1}, 96)
	single := make([]uint8, 16)
	single[0] = 1
	single[15] = 1

	tests := []struct {
		name    string
		row     []uint8
		want    []byte
		wantErr error
	}{
		{name: "checkerboard", row: checker, want: bytes.Repeat([]byte{0xAA}, 12)},
		{name: "all black", row: black, want: bytes.Repeat([]byte{0xFF}, 12)},
		{name: "all white", row: make([]uint8, 96), want: make([]byte, 12)},
		{name: "msb first", row: single, want: []byte{0x80, 0x01}},
		{name: "empty row", row: []uint8{}, want: []byte{}},
		{name: "width not multiple of 8", row: make([]uint8, 95), wantErr: ErrUnsupportedWidth},
		{name: "short row", row: make([]uint8, 3), wantErr: ErrUnsupportedWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PackRow(tt.row)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("PackRow() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PackRow() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("PackRow() = [% x], want [% x]", got, tt.want)
			}
		})
	}
}

func TestPackRowRoundTrip(t *testing.T) {
	for i := range 30 {
		r := aRandomRaster(96, 50)
		t.Run(fmt.Sprintf("test %d: %s", i, r), func(t *testing.T) {
			for y := range r.Height() {
				packed, err := PackRow(r.Row(y))
				if err != nil {
					t.Fatalf("PackRow(row %d) error = %v", y, err)
				}
				if len(packed) != 12 {
					t.Fatalf("packed row %d has %d bytes, want 12", y, len(packed))
				}
				assertRowsEqual(t, UnpackRow(packed, 96), r.Row(y))
			}
		})
	}
}

func TestAppendPackedRowKeepsPrefix(t *testing.T) {
	dst := []byte{0x1f, 0x11}
	got, err := AppendPackedRow(dst, []uint8{1, 1, 1, 1, 0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x1f, 0x11, 0xF0}; !bytes.Equal(got, want) {
		t.Errorf("AppendPackedRow() = [% x], want [% x]", got, want)
	}
}

func TestFromRows(t *testing.T) {
	r, err := FromRows([][]uint8{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if r.Width() != 2 || r.Height() != 2 {
		t.Fatalf("got %s, want Raster(2,2)", r)
	}
	if r.At(0, 0) != 1 || r.At(1, 0) != 0 || r.At(1, 1) != 1 {
		t.Errorf("pixels not copied: %v", r.pix)
	}

	if _, err := FromRows([][]uint8{{1, 0}, {1}}); err == nil {
		t.Error("FromRows() with ragged rows should fail")
	}
}

func TestChunksPartition(t *testing.T) {
	for _, height := range []int{0, 1, 7, 8, 9, 256, 257, 700} {
		for _, maxRows := range []int{1, 3, 8, 256} {
			t.Run(fmt.Sprintf("h=%d/R=%d", height, maxRows), func(t *testing.T) {
				r := New(96, height)
				for y := range height {
					r.Set(y%96, y, 1)
				}

				var chunks []Chunk
				for c := range r.Chunks(maxRows) {
					chunks = append(chunks, c)
				}
				if len(chunks) != r.ChunkCount(maxRows) {
					t.Fatalf("got %d chunks, ChunkCount() = %d", len(chunks), r.ChunkCount(maxRows))
				}

				next := 0
				for i, c := range chunks {
					if c.Start != next {
						t.Fatalf("chunk %d starts at %d, want %d", i, c.Start, next)
					}
					if c.Width != 96 {
						t.Fatalf("chunk %d width %d, want 96", i, c.Width)
					}
					if i < len(chunks)-1 && c.Height() != maxRows {
						t.Fatalf("chunk %d has %d rows, want %d", i, c.Height(), maxRows)
					}
					if c.Height() < 1 || c.Height() > maxRows {
						t.Fatalf("chunk %d has %d rows", i, c.Height())
					}
					for j, row := range c.Rows {
						assertRowsEqual(t, row, r.Row(next+j))
					}
					next += c.Height()
				}
				if next != height {
					t.Fatalf("chunks cover %d rows, want %d", next, height)
				}
			})
		}
	}
}

func TestChunksZeroHeight(t *testing.T) {
	r := New(96, 0)
	for c := range r.Chunks(8) {
		t.Fatalf("unexpected chunk %+v", c)
	}
}

func TestChunksStopsEarly(t *testing.T) {
	r := New(96, 100)
	n := 0
	for range r.Chunks(10) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("consumed %d chunks, want 2", n)
	}
}

func TestChunksRejectsNonPositiveSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Chunks(0) should panic")
		}
	}()
	New(96, 1).Chunks(0)
}

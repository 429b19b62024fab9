package raster

import "fmt"

const bitsPerByte = 8

// PackedRowLen returns the number of bytes a row of width pixels packs into
func PackedRowLen(width int) (int, error) {
	if width%bitsPerByte != 0 {
		return 0, fmt.Errorf("%w: %d is not a multiple of %d", ErrUnsupportedWidth, width, bitsPerByte)
	}
	return width / bitsPerByte, nil
}

// PackRow packs a row MSB first: bit 7-j of byte i holds pixel 8*i+j
func PackRow(row []uint8) ([]byte, error) {
	n, err := PackedRowLen(len(row))
	if err != nil {
		return nil, err
	}
	return AppendPackedRow(make([]byte, 0, n), row)
}

// AppendPackedRow packs row and appends the bytes to dst
func AppendPackedRow(dst []byte, row []uint8) ([]byte, error) {
	if _, err := PackedRowLen(len(row)); err != nil {
		return dst, err
	}
	for i := 0; i < len(row); i += bitsPerByte {
		var b byte
		for j := 0; j < bitsPerByte; j++ {
			b |= (row[i+j] & 1) << (7 - j)
		}
		dst = append(dst, b)
	}
	return dst, nil
}

// UnpackRow expands packed bytes back into width pixels
func UnpackRow(packed []byte, width int) []uint8 {
	row := make([]uint8, width)
	for x := range width {
		row[x] = (packed[x/bitsPerByte] >> (7 - x%bitsPerByte)) & 1
	}
	return row
}

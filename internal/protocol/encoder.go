package protocol

import (
	"errors"
	"fmt"

	"d30-print/internal/raster"
)

// ErrInvalidChunk is returned when a chunk does not match the device geometry
var ErrInvalidChunk = errors.New("invalid chunk")

// Frame is one ready-to-send write: preamble followed by packed rows
type Frame []byte

// Encoder turns chunks into frames for a single printer profile
type Encoder struct {
	profile Profile
}

// NewEncoder returns an encoder for p
func NewEncoder(p Profile) (*Encoder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{profile: p}, nil
}

// Profile returns the encoder's device profile
func (e *Encoder) Profile() Profile {
	return e.profile
}

// InitializationSequence returns the writes to send once per connection,
// in order. The returned slices are copies.
func (e *Encoder) InitializationSequence() [][]byte {
	out := make([][]byte, len(e.profile.Init))
	for i, pkt := range e.profile.Init {
		out[i] = append([]byte(nil), pkt...)
	}
	return out
}

// EncodeChunk packs the chunk's rows behind the image preamble
func (e *Encoder) EncodeChunk(c raster.Chunk) (Frame, error) {
	p := e.profile
	if c.Width != p.DotWidth {
		return nil, fmt.Errorf("%w: width %d, device prints %d dots", ErrInvalidChunk, c.Width, p.DotWidth)
	}
	if c.Height() > p.RowsPerChunk() {
		return nil, fmt.Errorf("%w: %d rows exceed the %d row limit", ErrInvalidChunk, c.Height(), p.RowsPerChunk())
	}

	frame := make([]byte, 0, len(p.Preamble)+c.Height()*p.BytesPerRow())
	frame = append(frame, p.Preamble...)
	for i, row := range c.Rows {
		if len(row) != p.DotWidth {
			return nil, fmt.Errorf("%w: row %d has %d pixels, want %d", ErrInvalidChunk, c.Start+i, len(row), p.DotWidth)
		}
		var err error
		if frame, err = raster.AppendPackedRow(frame, row); err != nil {
			return nil, err
		}
	}
	return Frame(frame), nil
}

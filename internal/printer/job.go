package printer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"d30-print/internal/protocol"
	"d30-print/internal/raster"
)

// Job prints one raster over a fresh connection
type Job struct {
	Dialer  Dialer
	Encoder *protocol.Encoder
	Adapter string // local adapter address
	Device  string // remote device address or port name
	Logger  zerolog.Logger // zero value logs nothing
}

// Run connects, initializes the printer, streams the raster chunk by chunk and
// closes the connection, also on failure. The raster is checked before dialing
// so geometry errors never leave a half printed label. A raster with no rows
// is not printed and no connection is made.
//
// Cancelling ctx between writes closes the connection, which the printer
// treats as an aborted print.
func (j *Job) Run(ctx context.Context, r *raster.Raster) (err error) {
	log := j.Logger
	p := j.Encoder.Profile()
	if r.Width() != p.DotWidth {
		return fmt.Errorf("%w: raster is %d dots wide, %s prints %d", raster.ErrUnsupportedWidth, r.Width(), p.Name, p.DotWidth)
	}
	if r.Height() == 0 {
		log.Warn().Msg("empty raster, nothing to print")
		return nil
	}

	s, err := Connect(ctx, j.Dialer, j.Adapter, j.Device, WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := s.Initialize(j.Encoder); err != nil {
		return err
	}

	rows := p.RowsPerChunk()
	log.Info().
		Int("rows", r.Height()).
		Int("chunks", r.ChunkCount(rows)).
		Msg("sending raster")

	for c := range r.Chunks(rows) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("print aborted at row %d: %w", c.Start, err)
		}
		f, err := j.Encoder.EncodeChunk(c)
		if err != nil {
			return err
		}
		if err := s.SendFrame(f); err != nil {
			return fmt.Errorf("chunk at row %d: %w", c.Start, err)
		}
	}

	log.Info().Msg("label sent")
	return nil
}

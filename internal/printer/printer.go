package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"d30-print/internal/protocol"
)

// State is the position of a session in its print job
type State int

const (
	Disconnected State = iota
	Connected
	Initialized
	Transmitting
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Initialized:
		return "initialized"
	case Transmitting:
		return "transmitting"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns the channel to one printer for the duration of one job.
// It is not safe for concurrent use, except that Close may be called from
// another goroutine to abort the job.
type Session struct {
	remote string
	log    zerolog.Logger

	mu    sync.Mutex
	conn  io.ReadWriteCloser
	state State
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// Connect dials the printer and returns a session in the Connected state
func Connect(ctx context.Context, d Dialer, local, remote string, opts ...Option) (*Session, error) {
	s := &Session{
		remote: remote,
		log:    zerolog.Nop(),
		state:  Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.Info().Str("adapter", local).Str("device", remote).Msg("connecting to printer")
	conn, err := d.Dial(ctx, local, remote)
	if err != nil {
		return nil, wrapConnection(err)
	}

	s.conn = conn
	s.state = Connected
	s.log.Info().Str("device", remote).Msg("connected")
	return s, nil
}

// State reports where the session is in its job
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send writes all of b as a single write. Any failure closes the session.
func (s *Session) Send(b []byte) error {
	s.mu.Lock()
	conn, state := s.conn, s.state
	s.mu.Unlock()

	if state == Closed || conn == nil {
		return fmt.Errorf("%w: session closed", ErrTransmission)
	}

	n, err := conn.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		s.log.Error().Err(err).Int("bytes", len(b)).Int("written", n).Msg("write failed")
		s.Close()
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrTransmission, n, len(b), err)
	}

	s.log.Debug().Int("bytes", len(b)).Hex("head", head(b, 16)).Msg("sent")
	return nil
}

// Initialize sends the device's initialization writes, one Send each
func (s *Session) Initialize(enc *protocol.Encoder) error {
	if st := s.State(); st != Connected {
		return fmt.Errorf("initialize in state %s", st)
	}
	for i, pkt := range enc.InitializationSequence() {
		if err := s.Send(pkt); err != nil {
			return fmt.Errorf("init write %d: %w", i, err)
		}
	}
	s.setState(Initialized)
	return nil
}

// SendFrame transmits one encoded chunk
func (s *Session) SendFrame(f protocol.Frame) error {
	switch st := s.State(); st {
	case Initialized, Transmitting:
	case Closed:
		return fmt.Errorf("%w: session closed", ErrTransmission)
	default:
		return fmt.Errorf("%w: state %s", ErrNotInitialized, st)
	}
	if err := s.Send(f); err != nil {
		return err
	}
	s.setState(Transmitting)
	return nil
}

// Close releases the channel. Calling it again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return nil
	}
	s.state = Closed
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.log.Info().Str("device", s.remote).Msg("connection closed")
	if err != nil {
		return fmt.Errorf("close %s: %w", s.remote, err)
	}
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Closed {
		s.state = st
	}
}

func wrapConnection(err error) error {
	if errors.Is(err, ErrConnection) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

func head(b []byte, n int) []byte {
	if len(b) < n {
		return b
	}
	return b[:n]
}

// SerialDialer opens a serial port that is already bound to the printer,
// such as /dev/rfcomm0 on Linux or a Bluetooth COM port on Windows.
// The remote address is the port name; the local address is ignored.
type SerialDialer struct {
	BaudRate int
}

// Dial opens the port
func (d SerialDialer) Dial(ctx context.Context, _, portName string) (io.ReadWriteCloser, error) {
	if portName == "" {
		return nil, fmt.Errorf("%w: no serial port", ErrConnection)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	baud := d.BaudRate
	if baud == 0 {
		baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open port %s: %w", ErrConnection, portName, err)
	}
	return port, nil
}

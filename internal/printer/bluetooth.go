package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// Common errors
var (
	ErrConnection     = errors.New("failed to establish printer connection")
	ErrTransmission   = errors.New("failed to send to printer")
	ErrNotSupported   = errors.New("operation not supported on this platform")
	ErrNotInitialized = errors.New("printer session not initialized")
)

// DefaultChannel is the RFCOMM channel the D30 listens on
const DefaultChannel = 1

// Dialer opens a byte channel to a printer.
// local is the adapter address, remote the device address or port name.
type Dialer interface {
	Dial(ctx context.Context, local, remote string) (io.ReadWriteCloser, error)
}

// RFCOMMDialer connects straight to the device with a Bluetooth socket
type RFCOMMDialer struct {
	Channel int
}

func (d RFCOMMDialer) channel() int {
	if d.Channel == 0 {
		return DefaultChannel
	}
	return d.Channel
}

// parseBDAddr parses "XX:XX:XX:XX:XX:XX" into the little-endian byte order
// used by sockaddr_rc
func parseBDAddr(s string) ([6]byte, error) {
	var addr [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return addr, fmt.Errorf("invalid Bluetooth address %q: %w", s, err)
	}
	if len(hw) != 6 {
		return addr, fmt.Errorf("bluetooth address %q must be 6 bytes, got %d", s, len(hw))
	}
	for i := 0; i < 6; i++ {
		addr[i] = hw[5-i]
	}
	return addr, nil
}

// resolveAddrs validates both addresses before any socket is opened
func resolveAddrs(local, remote string) (localAddr, remoteAddr [6]byte, err error) {
	if remote == "" {
		return localAddr, remoteAddr, fmt.Errorf("%w: no device address", ErrConnection)
	}
	if remoteAddr, err = parseBDAddr(remote); err != nil {
		return localAddr, remoteAddr, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if local != "" {
		if localAddr, err = parseBDAddr(local); err != nil {
			return localAddr, remoteAddr, fmt.Errorf("%w: adapter: %w", ErrConnection, err)
		}
	}
	return localAddr, remoteAddr, nil
}

//go:build linux

package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Dial binds the adapter address, when given, and connects to the device.
// Cancelling ctx aborts a connect that is still in progress.
func (d RFCOMMDialer) Dial(ctx context.Context, local, remote string) (io.ReadWriteCloser, error) {
	localAddr, remoteAddr, err := resolveAddrs(local, remote)
	if err != nil {
		return nil, err
	}
	channel := d.channel()

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, fmt.Errorf("%w: create socket: %w", ErrConnection, err)
	}

	if local != "" {
		if err := unix.Bind(fd, &unix.SockaddrRFCOMM{Addr: localAddr, Channel: uint8(channel)}); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("%w: bind adapter %s: %w", ErrConnection, local, err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: remoteAddr, Channel: uint8(channel)})
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		// shutdown wakes the blocked connect
		unix.Shutdown(fd, unix.SHUT_RDWR)
		<-done
		err = ctx.Err()
	}
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: connect %s channel %d: %w", ErrConnection, remote, channel, err)
	}

	return os.NewFile(uintptr(fd), "rfcomm:"+remote), nil
}

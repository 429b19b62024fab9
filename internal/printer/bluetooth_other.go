//go:build !linux

package printer

import (
	"context"
	"fmt"
	"io"
)

// Dial is only available on Linux. Elsewhere pair the printer with the OS and
// use SerialDialer with the COM port it creates.
func (d RFCOMMDialer) Dial(ctx context.Context, local, remote string) (io.ReadWriteCloser, error) {
	if _, _, err := resolveAddrs(local, remote); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w: use the serial transport", ErrConnection, ErrNotSupported)
}

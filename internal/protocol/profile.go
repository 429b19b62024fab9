package protocol

import (
	"encoding/hex"
	"fmt"

	"d30-print/internal/raster"
)

// ErrUnsupportedWidth is returned for a dot width that does not pack into whole bytes
var ErrUnsupportedWidth = raster.ErrUnsupportedWidth

// Profile describes the fixed protocol constants of one printer model
type Profile struct {
	Name         string
	DotWidth     int // print head width in dots
	MaxWriteSize int // largest single write the firmware accepts
	Channel      int // RFCOMM channel
	Init         [][]byte
	Preamble     []byte
}

// D30 is the Phomemo D30 as captured from the "Print Master" Android app.
// Each Init entry is exactly one transport write.
var D30 = Profile{
	Name:         "d30",
	DotWidth:     96,
	MaxWriteSize: 14 + 256*12,
	Channel:      1,
	Init: [][]byte{
		mustHex("1f1138"),
		mustHex("1f1112" + "1f1113"),
		mustHex("1f1109"),
		mustHex("1f1111"),
		mustHex("1f1119"),
		mustHex("1f1107"),
		mustHex("1f110a" + "1f110202"),
	},
	// US 11 24 00, ESC @, GS v 0 with 12 bytes per row and 320 rows
	Preamble: mustHex("1f1124001b401d7630000c004001"),
}

var profiles = map[string]Profile{
	D30.Name: D30,
}

// Lookup returns the profile registered under name
func Lookup(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown printer model %q", name)
	}
	return p, nil
}

// BytesPerRow returns the packed length of one raster row
func (p Profile) BytesPerRow() int {
	return p.DotWidth / 8
}

// RowsPerChunk returns the most rows that fit in one write after the preamble
func (p Profile) RowsPerChunk() int {
	if p.BytesPerRow() == 0 {
		return 0
	}
	return (p.MaxWriteSize - len(p.Preamble)) / p.BytesPerRow()
}

// Validate checks that the profile describes a usable device
func (p Profile) Validate() error {
	if p.DotWidth <= 0 {
		return fmt.Errorf("profile %s: dot width must be positive", p.Name)
	}
	if _, err := raster.PackedRowLen(p.DotWidth); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if len(p.Preamble) == 0 {
		return fmt.Errorf("profile %s: empty preamble", p.Name)
	}
	if p.RowsPerChunk() < 1 {
		return fmt.Errorf("profile %s: max write size %d leaves no room for a row after the %d byte preamble",
			p.Name, p.MaxWriteSize, len(p.Preamble))
	}
	if p.Channel < 1 || p.Channel > 30 {
		return fmt.Errorf("profile %s: RFCOMM channel %d out of range", p.Name, p.Channel)
	}
	return nil
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

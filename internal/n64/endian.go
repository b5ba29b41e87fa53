// Package n64 reads the fixed parts of N64 cartridge images: byte order,
// the 0x40-byte header and the IPL3 boot code.
package n64

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ROM layout.
const (
	HeaderSize     = 0x40
	BootCodeOffset = 0x1000 // end of IPL3, start of the game's boot segment
	MaxBootSegment = 0x100000
)

var (
	ErrUnrecognizedFormat = errors.New("unrecognized ROM format")
	ErrTruncated          = errors.New("ROM is truncated")
)

// Format is the byte order a ROM image is stored in.
type Format int

const (
	FormatNative      Format = iota // .z64, big-endian
	FormatReversed                  // .n64, each word byte-reversed
	FormatHalfSwapped               // .v64, each half-word byte-swapped
)

var formatMagic = [...][4]byte{
	FormatNative:      {0x80, 0x37, 0x12, 0x40},
	FormatReversed:    {0x40, 0x12, 0x37, 0x80},
	FormatHalfSwapped: {0x37, 0x80, 0x40, 0x12},
}

func (f Format) String() string {
	switch f {
	case FormatNative:
		return "z64"
	case FormatReversed:
		return "n64"
	case FormatHalfSwapped:
		return "v64"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Description returns a human readable name of the byte order.
func (f Format) Description() string {
	switch f {
	case FormatNative:
		return "big-endian"
	case FormatReversed:
		return "little-endian"
	case FormatHalfSwapped:
		return "byte-swapped"
	}
	return "unknown"
}

// Magic returns the first four bytes of a ROM stored in format f.
func (f Format) Magic() [4]byte {
	return formatMagic[f]
}

// DetectFormat classifies the first four bytes of a ROM image.
func DetectFormat(prefix []byte) (Format, error) {
	if len(prefix) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrTruncated, len(prefix))
	}
	for f, magic := range formatMagic {
		if prefix[0] == magic[0] && prefix[1] == magic[1] && prefix[2] == magic[2] && prefix[3] == magic[3] {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("%w: magic % X", ErrUnrecognizedFormat, prefix[:4])
}

// Normalize rewrites buf in place from format f into big-endian order. The
// length of buf must be a multiple of 4.
func Normalize(f Format, buf []byte) error {
	if len(buf)%4 != 0 {
		return fmt.Errorf("buffer length %d is not a multiple of 4", len(buf))
	}
	switch f {
	case FormatNative:
	case FormatReversed:
		for i := 0; i < len(buf); i += 4 {
			buf[i], buf[i+1], buf[i+2], buf[i+3] = buf[i+3], buf[i+2], buf[i+1], buf[i]
		}
	case FormatHalfSwapped:
		for i := 0; i < len(buf); i += 2 {
			buf[i], buf[i+1] = buf[i+1], buf[i]
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnrecognizedFormat, f)
	}
	return nil
}

// Word reads the canonical word stored at the start of b in format f.
func (f Format) Word(b []byte) uint32 {
	switch f {
	case FormatReversed:
		return binary.LittleEndian.Uint32(b)
	case FormatHalfSwapped:
		return uint32(b[1])<<24 | uint32(b[0])<<16 | uint32(b[3])<<8 | uint32(b[2])
	}
	return binary.BigEndian.Uint32(b)
}

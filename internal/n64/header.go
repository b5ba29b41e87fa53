package n64

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

// Header is the 0x40-byte cartridge header in canonical byte order.
type Header struct {
	PIBSDDom1   [4]byte  // 0x00
	ClockRate   uint32   // 0x04
	Entrypoint  uint32   // 0x08
	Revision    uint32   // 0x0C, low byte is the libultra version
	CRC1        uint32   // 0x10
	CRC2        uint32   // 0x14
	Unknown18   [8]byte  // 0x18
	ImageName   [20]byte // 0x20, Shift-JIS
	Unknown34   [4]byte  // 0x34
	MediaFormat uint32   // 0x38
	CartridgeID [2]byte  // 0x3C
	CountryCode byte     // 0x3E
	Version     byte     // 0x3F
}

// ParseHeader decodes the header at the start of a normalized ROM.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(rom))
	}
	var h Header
	if err := binary.Read(bytes.NewReader(rom[:HeaderSize]), binary.BigEndian, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// LibultraVersion returns the version character in the revision field.
func (h *Header) LibultraVersion() rune {
	return rune(h.Revision & 0xFF)
}

// Name decodes the internal ROM name. Invalid Shift-JIS falls back to the
// raw bytes.
func (h *Header) Name() string {
	raw := bytes.TrimRight(h.ImageName[:], "\x00")
	name, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		name = bytes.ToValidUTF8(raw, []byte("?"))
	}
	return strings.TrimRight(string(name), " \x00")
}

// MediaFormatChar returns the media format code as a character.
func (h *Header) MediaFormatChar() rune {
	if h.MediaFormat > utf8.MaxRune {
		return utf8.RuneError
	}
	return rune(h.MediaFormat)
}

var mediaFormats = map[rune]string{
	'N': "cartridge",
	'D': "64DD disk",
	'C': "cartridge part of expandable game OR GameCube",
	'E': "64DD expansion for cart",
	'Z': "Aleck64 cartridge",
}

// MediaFormatDescription describes the media format code.
func (h *Header) MediaFormatDescription() (string, error) {
	if d, ok := mediaFormats[h.MediaFormatChar()]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unrecognised media format 0x%X", h.MediaFormat)
}

var countryCodes = map[byte]string{
	'7':  "Beta",
	'A':  "Asian (NTSC)",
	'B':  "Brazilian",
	'C':  "Chinese",
	'D':  "German",
	'E':  "North America",
	'F':  "French",
	'G':  "Gateway 64 (NTSC)",
	'H':  "Dutch",
	'I':  "Italian",
	'J':  "Japanese",
	'K':  "Korean",
	'L':  "Gateway 64 (PAL)",
	'N':  "Canadian",
	'P':  "European (basic spec.)",
	'S':  "Spanish",
	'U':  "Australian",
	'W':  "Scandinavian",
	'X':  "European",
	'Y':  "European",
	0x00: "iQue",
}

// CountryDescription describes the destination code.
func (h *Header) CountryDescription() (string, error) {
	if d, ok := countryCodes[h.CountryCode]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unrecognised country code 0x%02X", h.CountryCode)
}

// CartridgeIDString returns the two-character game code.
func (h *Header) CartridgeIDString() string {
	return strings.ToValidUTF8(string(h.CartridgeID[:]), "?")
}

// Country returns the destination code as a printable string.
func (h *Header) Country() string {
	if h.CountryCode == 0 {
		return "\\0"
	}
	return string(rune(h.CountryCode))
}

func describe(s string, err error) string {
	if err != nil {
		return "unknown"
	}
	return s
}

// Summary is the one-line, comma separated header digest.
func (h *Header) Summary() string {
	return fmt.Sprintf("%08X, %08X, %08X, %08X %08X, %s, %c, %s, %s, %X",
		h.ClockRate, h.Entrypoint, h.Revision, h.CRC1, h.CRC2,
		h.Name(), h.MediaFormatChar(), h.CartridgeIDString(), h.Country(), h.Version)
}

// Dump is the full multi-line rendering of every header field.
func (h *Header) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pibsddomain1_register:  % X\n", h.PIBSDDom1[:])
	fmt.Fprintf(&sb, "clock_rate:             %08X\n", h.ClockRate)
	fmt.Fprintf(&sb, "reported_entrypoint:    %08X\n", h.Entrypoint)
	fmt.Fprintf(&sb, "revision:               %08X (libultra %c)\n", h.Revision, h.LibultraVersion())
	fmt.Fprintf(&sb, "checksum:               %08X %08X\n", h.CRC1, h.CRC2)
	fmt.Fprintf(&sb, "unk_18:                 % X\n", h.Unknown18[:])
	fmt.Fprintf(&sb, "image_name:             %q\n", h.Name())
	fmt.Fprintf(&sb, "unk_34:                 % X\n", h.Unknown34[:])
	fmt.Fprintf(&sb, "media_format:           %c (%s)\n", h.MediaFormatChar(), describe(h.MediaFormatDescription()))
	fmt.Fprintf(&sb, "cartridge_id:           %s\n", h.CartridgeIDString())
	fmt.Fprintf(&sb, "country_code:           %s (%s)\n", h.Country(), describe(h.CountryDescription()))
	fmt.Fprintf(&sb, "version:                0x%02X\n", h.Version)
	return sb.String()
}

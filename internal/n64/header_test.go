package n64

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader(name []byte) []byte {
	rom := make([]byte, HeaderSize)
	copy(rom, []byte{0x80, 0x37, 0x12, 0x40})
	binary.BigEndian.PutUint32(rom[0x04:], 0x0000000F)
	binary.BigEndian.PutUint32(rom[0x08:], 0x80246000)
	binary.BigEndian.PutUint32(rom[0x0C:], 0x00001444)
	binary.BigEndian.PutUint32(rom[0x10:], 0x635A2BFF)
	binary.BigEndian.PutUint32(rom[0x14:], 0x8B022326)
	for i := 0x20; i < 0x34; i++ {
		rom[i] = ' '
	}
	copy(rom[0x20:0x34], name)
	binary.BigEndian.PutUint32(rom[0x38:], 'N')
	rom[0x3C], rom[0x3D] = 'S', 'M'
	rom[0x3E] = 'E'
	rom[0x3F] = 0
	return rom
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader(sampleHeader([]byte("SUPER MARIO 64")))
	require.NoError(t, err)

	assert.Equal(t, [4]byte{0x80, 0x37, 0x12, 0x40}, h.PIBSDDom1)
	assert.Equal(t, uint32(0x0F), h.ClockRate)
	assert.Equal(t, uint32(0x80246000), h.Entrypoint)
	assert.Equal(t, 'D', h.LibultraVersion())
	assert.Equal(t, uint32(0x635A2BFF), h.CRC1)
	assert.Equal(t, "SUPER MARIO 64", h.Name())
	assert.Equal(t, 'N', h.MediaFormatChar())
	assert.Equal(t, "SM", h.CartridgeIDString())
	assert.Equal(t, "E", h.Country())

	media, err := h.MediaFormatDescription()
	require.NoError(t, err)
	assert.Equal(t, "cartridge", media)
	country, err := h.CountryDescription()
	require.NoError(t, err)
	assert.Equal(t, "North America", country)

	assert.Equal(t, "0000000F, 80246000, 00001444, 635A2BFF 8B022326, SUPER MARIO 64, N, SM, E, 0", h.Summary())
	assert.True(t, strings.Contains(h.Dump(), "reported_entrypoint:    80246000\n"))
	assert.True(t, strings.Contains(h.Dump(), "country_code:           E (North America)\n"))
}

func TestHeaderShiftJISName(t *testing.T) {
	// ｽｰﾊﾟｰﾏﾘｵ in half-width katakana.
	h, err := ParseHeader(sampleHeader([]byte{0xBD, 0xB0, 0xCA, 0xDF, 0xB0, 0xCF, 0xD8, 0xB5}))
	require.NoError(t, err)
	assert.Equal(t, "ｽｰﾊﾟｰﾏﾘｵ", h.Name())
}

func TestHeaderUnknownCodes(t *testing.T) {
	rom := sampleHeader(nil)
	binary.BigEndian.PutUint32(rom[0x38:], 'Q')
	rom[0x3E] = 'q'
	h, err := ParseHeader(rom)
	require.NoError(t, err)

	_, err = h.MediaFormatDescription()
	assert.Error(t, err)
	_, err = h.CountryDescription()
	assert.Error(t, err)
	assert.Contains(t, h.Dump(), "(unknown)")

	rom[0x3E] = 0
	h, _ = ParseHeader(rom)
	assert.Equal(t, "\\0", h.Country())
}

func TestParseHeaderTruncated(t *testing.T) {
	_, err := ParseHeader(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrTruncated)
}

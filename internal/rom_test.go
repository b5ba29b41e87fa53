package internal

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/firodj/n64sora/internal/n64"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testEntrypoint = 0x80000400

// fixtureWords is a typical libultra boot stub: clear BSS, set sp, jump.
var fixtureWords = []uint32{
	0x3C088004, // lui   t0, 0x8004
	0x2508E940, // addiu t0, t0, -0x16C0
	0x24095D50, // addiu t1, zero, 0x5D50
	0x2129FFF8, // addi  t1, t1, -0x8
	0xAD000000, // sw    zero, 0x0(t0)
	0xAD000004, // sw    zero, 0x4(t0)
	0x1520FFFC, // bnez  t1, -0x4
	0x21080008, // addi  t0, t0, 0x8
	0x3C0A8002, // lui   t2, 0x8002
	0x3C1D8004, // lui   sp, 0x8004
	0x254A5CC0, // addiu t2, t2, 0x5CC0
	0x01400008, // jr    t2
	0x27BDF330, // addiu sp, sp, -0xCD0
	0x00000000,
	0x00000000,
}

// buildROM returns a big-endian image with code placed at the entrypoint.
func buildROM(code []uint32) []byte {
	size := 0x2000
	if n := n64.BootCodeOffset + len(code)*4; n > size {
		size = (n + 0xFFF) &^ 0xFFF
	}
	rom := make([]byte, size)
	copy(rom, []byte{0x80, 0x37, 0x12, 0x40})
	binary.BigEndian.PutUint32(rom[0x04:], 0x0000000F)
	binary.BigEndian.PutUint32(rom[0x08:], testEntrypoint)
	binary.BigEndian.PutUint32(rom[0x0C:], 0x00001444)
	copy(rom[0x20:0x34], "N64SORA TEST        ")
	binary.BigEndian.PutUint32(rom[0x38:], 'N')
	rom[0x3C], rom[0x3D], rom[0x3E] = 'S', 'T', 'E'

	for i := n64.HeaderSize; i < n64.BootCodeOffset; i++ {
		rom[i] = byte(i*13 + 7)
	}
	for i, w := range code {
		binary.BigEndian.PutUint32(rom[n64.BootCodeOffset+i*4:], w)
	}
	return rom
}

// testTable knows the boot code buildROM writes.
func testTable() *n64.Table {
	rom := buildROM(nil)
	table := n64.NewTable()
	if err := table.Register(n64.CIC{
		Checksum: n64.Cksum(rom[n64.HeaderSize:n64.BootCodeOffset]),
		NTSCName: "6102",
		PALName:  "7101",
	}); err != nil {
		panic(err)
	}
	return table
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	return log
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Color = false
	return cfg
}

func newTestDocument(t *testing.T, code []uint32, cfg Config) *SoraDocument {
	t.Helper()
	doc, err := NewSoraDocument("test.z64", buildROM(code), testTable(), cfg, logrus.NewEntry(testLogger()))
	require.NoError(t, err)
	return doc
}

// encodeAs stores a canonical image in byte order f.
func encodeAs(f n64.Format, canonical []byte) []byte {
	out := append([]byte(nil), canonical...)
	switch f {
	case n64.FormatReversed:
		for i := 0; i+4 <= len(out); i += 4 {
			out[i], out[i+1], out[i+2], out[i+3] = out[i+3], out[i+2], out[i+1], out[i]
		}
	case n64.FormatHalfSwapped:
		for i := 0; i+2 <= len(out); i += 2 {
			out[i], out[i+1] = out[i+1], out[i]
		}
	}
	return out
}

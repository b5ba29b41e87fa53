package n64

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

var ErrUnknownBootROM = errors.New("unrecognised IPL3 boot code")

// absoluteEntrypoint marks an offset that is itself the entrypoint.
const absoluteEntrypoint = 0x80000000

// A CIC identifies one IPL3 boot code by the checksum of the bytes between
// the header and BootCodeOffset.
type CIC struct {
	Checksum         uint32
	NTSCName         string
	PALName          string
	EntrypointOffset uint32
}

// Name returns "6102 / 7101", or a single name when one region has no chip.
func (c CIC) Name() string {
	switch {
	case c.NTSCName == "-":
		return c.PALName
	case c.PALName == "-":
		return c.NTSCName
	}
	return c.NTSCName + " / " + c.PALName
}

// CorrectEntrypoint converts the entrypoint claimed by the header into the
// address the boot code really jumps to. Most IPL3 variants load the game at
// an offset from the header value; 7102 hardcodes the address, which is
// flagged by bit 31 of the stored offset.
func (c CIC) CorrectEntrypoint(headerEntrypoint uint32) uint32 {
	if c.EntrypointOffset&absoluteEntrypoint != 0 {
		return c.EntrypointOffset
	}
	return headerEntrypoint - c.EntrypointOffset
}

var knownCICs = []CIC{
	{0xD1F2D592, "6102", "7101", 0x000000},
	{0x27DF61E2, "6103", "7103", 0x100000},
	{0x229F516C, "6105", "7105", 0x000000},
	{0xA0DD69F7, "6106", "7106", 0x200000},
	{0x0013579C, "6101", "-", 0x000000},
	{0xDAB442CD, "-", "7102", 0x80000480},
}

// Table maps IPL3 checksums to their CIC entry.
type Table struct {
	entries map[uint32]CIC
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[uint32]CIC)}
}

// DefaultTable returns a table holding the retail IPL3 variants.
func DefaultTable() *Table {
	t := NewTable()
	for _, c := range knownCICs {
		if err := t.Register(c); err != nil {
			panic(err)
		}
	}
	return t
}

// Register adds c to the table. Checksums must be unique.
func (t *Table) Register(c CIC) error {
	if old, ok := t.entries[c.Checksum]; ok {
		return fmt.Errorf("checksum %08X already registered for %s", c.Checksum, old.Name())
	}
	t.entries[c.Checksum] = c
	return nil
}

// Lookup finds the entry for a checksum.
func (t *Table) Lookup(checksum uint32) (CIC, bool) {
	c, ok := t.entries[checksum]
	return c, ok
}

// Entries returns all entries ordered by checksum.
func (t *Table) Entries() []CIC {
	out := make([]CIC, 0, len(t.entries))
	for _, c := range t.entries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Checksum < out[j].Checksum })
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Identify checksums the IPL3 region of a normalized ROM and looks it up.
func (t *Table) Identify(rom []byte) (CIC, uint32, error) {
	if len(rom) < BootCodeOffset {
		return CIC{}, 0, fmt.Errorf("%w: IPL3 needs %d bytes, have %d", ErrTruncated, BootCodeOffset, len(rom))
	}
	sum := Cksum(rom[HeaderSize:BootCodeOffset])
	c, ok := t.Lookup(sum)
	if !ok {
		return CIC{}, sum, fmt.Errorf("%w: checksum %08X", ErrUnknownBootROM, sum)
	}
	return c, sum, nil
}

type yamlCIC struct {
	Checksum string `yaml:"checksum"`
	NTSC     string `yaml:"ntsc"`
	PAL      string `yaml:"pal"`
	Offset   string `yaml:"offset"`
}

// LoadYAML registers additional entries from a YAML list such as:
//
//	- checksum: "0xD1F2D592"
//	  ntsc: "6102"
//	  pal: "7101"
//	  offset: "0x0"
func (t *Table) LoadYAML(r io.Reader) error {
	var list []yamlCIC
	if err := yaml.NewDecoder(r).Decode(&list); err != nil {
		return err
	}
	for i, e := range list {
		sum, err := strconv.ParseUint(e.Checksum, 0, 32)
		if err != nil {
			return fmt.Errorf("entry %d: checksum: %w", i, err)
		}
		var offset uint64
		if e.Offset != "" {
			offset, err = strconv.ParseUint(e.Offset, 0, 32)
			if err != nil {
				return fmt.Errorf("entry %d: offset: %w", i, err)
			}
		}
		c := CIC{
			Checksum:         uint32(sum),
			NTSCName:         orDash(e.NTSC),
			PALName:          orDash(e.PAL),
			EntrypointOffset: uint32(offset),
		}
		if err := t.Register(c); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

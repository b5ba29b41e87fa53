package internal

import (
	"errors"
	"fmt"

	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/internal/n64"
)

// StopRule selects how the entrypoint walk decides it is done.
type StopRule int

const (
	// StopAfterJump stops one instruction after the first jump or
	// unconditional branch, once its delay slot has executed.
	StopAfterJump StopRule = iota
	// StopAtDoubleNop stops at the second consecutive zero word.
	StopAtDoubleNop
)

func (r StopRule) String() string {
	switch r {
	case StopAfterJump:
		return "jump"
	case StopAtDoubleNop:
		return "double-nop"
	}
	return fmt.Sprintf("stoprule(%d)", int(r))
}

func ParseStopRule(s string) (StopRule, error) {
	switch s {
	case "jump", "":
		return StopAfterJump, nil
	case "double-nop", "nop":
		return StopAtDoubleNop, nil
	}
	return StopAfterJump, fmt.Errorf("unknown stop rule: %q", s)
}

// ScanDirection selects how the classifier walks the boot segment.
type ScanDirection int

const (
	ScanForward ScanDirection = iota
	ScanReverse
)

func (d ScanDirection) String() string {
	switch d {
	case ScanForward:
		return "forward"
	case ScanReverse:
		return "reverse"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

func ParseScanDirection(s string) (ScanDirection, error) {
	switch s {
	case "forward", "":
		return ScanForward, nil
	case "reverse":
		return ScanReverse, nil
	}
	return ScanForward, fmt.Errorf("unknown scan direction: %q", s)
}

// OutputFormat selects the report rendering.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputYAML OutputFormat = "yaml"
	OutputJSON OutputFormat = "json"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputYAML, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	}
	return OutputText, fmt.Errorf("unknown output format: %q", s)
}

// Config is built once from flags, environment and config file, then only
// read.
type Config struct {
	PrintWidth  int
	ABI         mips.ABI
	Verbosity   int // -1 quiet, 0 normal, 1 debug
	Window      uint32
	StopRule    StopRule
	Direction   ScanDirection
	MinEvidence int
	Terse       bool
	Output      OutputFormat
	Color       bool
	DB          string
	IPL3Table   string
	Jobs        int
	KeepGoing   bool
}

func DefaultConfig() Config {
	return Config{
		PrintWidth:  10,
		ABI:         mips.ABIO32,
		Window:      n64.BootCodeOffset,
		StopRule:    StopAfterJump,
		Direction:   ScanForward,
		MinEvidence: 10,
		Output:      OutputText,
		Color:       true,
		Jobs:        1,
		KeepGoing:   true,
	}
}

// MinROMSize is the smallest ROM the analysis can run on.
func (cfg Config) MinROMSize() int {
	return n64.BootCodeOffset + int(cfg.Window)
}

func (cfg Config) Validate() error {
	switch {
	case cfg.Window == 0 || cfg.Window%4 != 0:
		return fmt.Errorf("window 0x%X must be a non-zero multiple of 4", cfg.Window)
	case cfg.Window > n64.MaxBootSegment:
		return fmt.Errorf("window 0x%X exceeds 0x%X", cfg.Window, n64.MaxBootSegment)
	case cfg.Jobs < 1:
		return errors.New("jobs must be at least 1")
	case cfg.MinEvidence < 0:
		return errors.New("min-evidence must not be negative")
	case cfg.PrintWidth < 0:
		return errors.New("width must not be negative")
	}
	return nil
}

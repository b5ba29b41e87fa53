// Package mips decodes the subset of the VR4300 instruction set that shows up
// in N64 boot code.
package mips

import "fmt"

// ABI selects the register naming convention.
type ABI int

const (
	ABIO32 ABI = iota
	ABIN32
	ABIN64
)

func (abi ABI) String() string {
	switch abi {
	case ABIO32:
		return "o32"
	case ABIN32:
		return "n32"
	case ABIN64:
		return "n64"
	}
	return fmt.Sprintf("abi(%d)", int(abi))
}

// ParseABI converts a name such as "o32" into an ABI.
func ParseABI(name string) (ABI, error) {
	switch name {
	case "o32", "":
		return ABIO32, nil
	case "n32":
		return ABIN32, nil
	case "n64":
		return ABIN64, nil
	}
	return ABIO32, fmt.Errorf("unknown ABI: %q", name)
}

// Gpr identifies one of the 32 general purpose registers.
type Gpr uint8

const (
	Zero Gpr = iota
	AT
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

// NumGprs is the size of the register file.
const NumGprs = 32

type registerInfo struct {
	name            string
	clobberedByCall bool
}

var gprInfo = [NumGprs]registerInfo{
	Zero: {"zero", false},
	AT:   {"at", true},
	V0:   {"v0", true},
	V1:   {"v1", true},
	A0:   {"a0", true},
	A1:   {"a1", true},
	A2:   {"a2", true},
	A3:   {"a3", true},
	T0:   {"t0", true},
	T1:   {"t1", true},
	T2:   {"t2", true},
	T3:   {"t3", true},
	T4:   {"t4", true},
	T5:   {"t5", true},
	T6:   {"t6", true},
	T7:   {"t7", true},
	S0:   {"s0", false},
	S1:   {"s1", false},
	S2:   {"s2", false},
	S3:   {"s3", false},
	S4:   {"s4", false},
	S5:   {"s5", false},
	S6:   {"s6", false},
	S7:   {"s7", false},
	T8:   {"t8", true},
	T9:   {"t9", true},
	K0:   {"k0", false},
	K1:   {"k1", false},
	GP:   {"gp", false},
	SP:   {"sp", true},
	FP:   {"fp", true},
	RA:   {"ra", false},
}

// The new ABIs pass eight arguments in registers, renaming $8-$15.
var newABINames = [...]string{"a4", "a5", "a6", "a7", "t0", "t1", "t2", "t3"}

// GprFromIndex converts a register number, reporting false when it is out of
// range.
func GprFromIndex(v uint32) (Gpr, bool) {
	if v >= NumGprs {
		return Zero, false
	}
	return Gpr(v), true
}

// Valid reports whether r names one of the 32 registers.
func (r Gpr) Valid() bool {
	return r < NumGprs
}

// Name returns the o32 name of the register.
func (r Gpr) Name() string {
	if !r.Valid() {
		return fmt.Sprintf("$%d", int(r))
	}
	return gprInfo[r].name
}

// NameABI returns the register name under the given ABI.
func (r Gpr) NameABI(abi ABI) string {
	if abi != ABIO32 && r >= T0 && r <= T7 {
		return newABINames[r-T0]
	}
	return r.Name()
}

// ClobberedByCall reports whether a called function may overwrite r.
func (r Gpr) ClobberedByCall() bool {
	return r.Valid() && gprInfo[r].clobberedByCall
}

func (r Gpr) String() string {
	return r.Name()
}

// gprField extracts a 5-bit register field starting at bit shift.
func gprField(word uint32, shift uint) Gpr {
	r, _ := GprFromIndex((word >> shift) & 0x1F)
	return r
}

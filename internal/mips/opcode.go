package mips

// Op is the primary opcode, bits 31-26 of an instruction word.
type Op uint32

const (
	OpSpecial Op = 0b000_000
	OpJ       Op = 0b000_010
	OpJal     Op = 0b000_011
	OpBeq     Op = 0b000_100
	OpBne     Op = 0b000_101
	OpAddi    Op = 0b001_000
	OpAddiu   Op = 0b001_001
	OpOri     Op = 0b001_101
	OpLui     Op = 0b001_111
	OpSw      Op = 0b101_011
)

// Func is the secondary function code of a SPECIAL instruction, bits 5-0.
type Func uint32

const (
	FuncJr Func = 0b001_000
)

// Format is the encoding layout selected by the primary opcode.
type Format int

const (
	FormatR Format = iota
	FormatJ
	FormatI
)

var opFormats = map[Op]Format{
	OpSpecial: FormatR,
	OpJ:       FormatJ,
	OpJal:     FormatJ,
	OpBeq:     FormatI,
	OpBne:     FormatI,
	OpAddi:    FormatI,
	OpAddiu:   FormatI,
	OpOri:     FormatI,
	OpLui:     FormatI,
	OpSw:      FormatI,
}

// Format returns the layout of op, or false if the opcode is not supported.
func (op Op) Format() (Format, bool) {
	f, ok := opFormats[op]
	return f, ok
}

// Opcode extracts the primary opcode of word.
func Opcode(word uint32) Op {
	return Op(word >> 26)
}

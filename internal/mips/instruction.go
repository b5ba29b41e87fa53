package mips

import "fmt"

// Kind tags a decoded instruction. Pseudo-instructions (b, beqz, bnez, nop)
// are canonical forms of real encodings.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalid

	KindJ
	KindJal
	KindBeq
	KindBne
	KindAddi
	KindAddiu
	KindOri
	KindLui
	KindSw
	KindJr

	KindB
	KindBeqz
	KindBnez
	KindNop

	numKinds
)

// Operands describes how the operands of a kind are laid out.
type Operands int

const (
	OperandsNone      Operands = iota
	OperandsTarget             // j 0x80000400
	OperandsReg                // jr t2
	OperandsRegRegOff          // bne t0, t1, -0x4
	OperandsRegOff             // bnez t1, -0x4
	OperandsOff                // b -0x4
	OperandsRegRegImm          // addiu t0, t0, -0x16C0
	OperandsRegRegUimm         // ori t0, t0, 0x1234
	OperandsRegUpper           // lui t0, (0x80040000 >> 16)
	OperandsMem                // sw zero, 0x4(t0)
	OperandsRaw                // undecodable word
)

// Info is the static metadata for a kind.
type Info struct {
	Name     string
	IsBranch bool
	IsJump   bool
	Operands Operands
}

var kindInfo = [numKinds]Info{
	KindUnknown: {"unknown", false, false, OperandsRaw},
	KindInvalid: {"invalid", false, false, OperandsRaw},

	KindJ:     {"j", false, true, OperandsTarget},
	KindJal:   {"jal", false, true, OperandsTarget},
	KindBeq:   {"beq", true, false, OperandsRegRegOff},
	KindBne:   {"bne", true, false, OperandsRegRegOff},
	KindAddi:  {"addi", false, false, OperandsRegRegImm},
	KindAddiu: {"addiu", false, false, OperandsRegRegImm},
	KindOri:   {"ori", false, false, OperandsRegRegUimm},
	KindLui:   {"lui", false, false, OperandsRegUpper},
	KindSw:    {"sw", false, false, OperandsMem},
	KindJr:    {"jr", false, true, OperandsReg},

	KindB:    {"b", true, false, OperandsOff},
	KindBeqz: {"beqz", true, false, OperandsRegOff},
	KindBnez: {"bnez", true, false, OperandsRegOff},
	KindNop:  {"nop", false, false, OperandsNone},
}

// Info returns the metadata of k. Out of range kinds report as unknown.
func (k Kind) Info() Info {
	if k >= numKinds {
		return kindInfo[KindUnknown]
	}
	return kindInfo[k]
}

func (k Kind) String() string {
	return k.Info().Name
}

// Instruction is one decoded word.
//
// Field use depends on Kind:
//
//	j, jal          Target
//	beq, bne        Rs, Rt compared, Imm offset
//	beqz, bnez      Rs compared, Imm offset
//	b               Imm offset
//	addi, addiu,ori Rs source, Rt destination, Imm
//	lui             Rt destination, Imm (unshifted)
//	sw              Rs base, Rt source, Imm offset
//	jr              Rs
//	unknown,invalid Opcode
//
// Imm always holds the raw 16-bit field; sign extension and scaling are left
// to consumers. Word is the encoding the instruction was decoded from.
type Instruction struct {
	Kind   Kind
	Rs     Gpr
	Rt     Gpr
	Imm    uint32
	Target uint32
	Opcode uint32
	Word   uint32
}

// Name returns the display mnemonic.
func (in Instruction) Name() string {
	return in.Kind.Info().Name
}

// IsBranch reports whether in is a PC-relative branch.
func (in Instruction) IsBranch() bool {
	return in.Kind.Info().IsBranch
}

// IsJump reports whether in is a jump (absolute or through a register).
func (in Instruction) IsJump() bool {
	return in.Kind.Info().IsJump
}

// HasDelaySlot reports whether the next instruction executes before in takes
// effect.
func (in Instruction) HasDelaySlot() bool {
	return in.IsBranch() || in.IsJump()
}

// IsError reports whether in could not be decoded.
func (in Instruction) IsError() bool {
	return in.Kind == KindUnknown || in.Kind == KindInvalid
}

// IsConditional reports whether in is a branch that may fall through.
func (in Instruction) IsConditional() bool {
	switch in.Kind {
	case KindBeq, KindBne, KindBeqz, KindBnez:
		return true
	}
	return false
}

// IsLink reports whether in saves a return address.
func (in Instruction) IsLink() bool {
	return in.Kind == KindJal
}

// IsReturn reports whether in is "jr ra".
func (in Instruction) IsReturn() bool {
	return in.Kind == KindJr && in.Rs == RA
}

// Dest returns the register written by in, or zero.
func (in Instruction) Dest() Gpr {
	switch in.Kind {
	case KindAddi, KindAddiu, KindOri, KindLui:
		return in.Rt
	}
	return Zero
}

// SignedImm returns the immediate sign-extended from 16 bits.
func (in Instruction) SignedImm() int32 {
	return int32(int16(in.Imm))
}

// BranchTarget returns the destination of a branch located at pc.
func (in Instruction) BranchTarget(pc uint32) uint32 {
	return pc + 4 + uint32(in.SignedImm()<<2)
}

// JumpTarget returns the destination of a j or jal located at pc.
func (in Instruction) JumpTarget(pc uint32) uint32 {
	return ((pc + 4) & 0xF0000000) | in.Target
}

// Format renders in with the mnemonic padded to width columns.
func (in Instruction) Format(width int, abi ABI) string {
	operands := in.operandString(abi)
	if operands == "" {
		return in.Name()
	}
	return fmt.Sprintf("%-*s %s", width, in.Name(), operands)
}

func (in Instruction) String() string {
	return in.Format(10, ABIO32)
}

func (in Instruction) operandString(abi ABI) string {
	reg := func(r Gpr) string { return r.NameABI(abi) }
	imm := SignedHex(in.SignedImm())
	switch in.Kind.Info().Operands {
	case OperandsTarget:
		return fmt.Sprintf("0x%X", in.Target)
	case OperandsReg:
		return reg(in.Rs)
	case OperandsRegRegOff:
		return fmt.Sprintf("%s, %s, %s", reg(in.Rs), reg(in.Rt), imm)
	case OperandsRegOff:
		return fmt.Sprintf("%s, %s", reg(in.Rs), imm)
	case OperandsOff:
		return imm
	case OperandsRegRegImm:
		return fmt.Sprintf("%s, %s, %s", reg(in.Rt), reg(in.Rs), imm)
	case OperandsRegRegUimm:
		return fmt.Sprintf("%s, %s, 0x%X", reg(in.Rt), reg(in.Rs), in.Imm)
	case OperandsRegUpper:
		return fmt.Sprintf("%s, (0x%X >> 16)", reg(in.Rt), in.Imm<<16)
	case OperandsMem:
		return fmt.Sprintf("%s, %s(%s)", reg(in.Rt), imm, reg(in.Rs))
	case OperandsRaw:
		return fmt.Sprintf("(op: %#08b, word: %08X)", in.Opcode, in.Word)
	}
	return ""
}

// SignedHex formats v as hex with a leading minus sign for negative values.
func SignedHex(v int32) string {
	if v < 0 {
		return fmt.Sprintf("-0x%X", -int64(v))
	}
	return fmt.Sprintf("0x%X", v)
}

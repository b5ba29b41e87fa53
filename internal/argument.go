package internal

import (
	"fmt"

	"github.com/firodj/n64sora/internal/codegen"
	"github.com/firodj/n64sora/internal/mips"
)

type SoraArgType string

const (
	ArgNone SoraArgType = ""
	ArgImm  SoraArgType = "imm"
	ArgReg  SoraArgType = "reg"
	ArgMem  SoraArgType = "mem"
)

type SoraArgument struct {
	Type           SoraArgType
	Label          string
	ValOfs         int
	Reg            string
	IsCodeLocation bool
}

func regArgument(r mips.Gpr, abi mips.ABI) *SoraArgument {
	return &SoraArgument{Type: ArgReg, Reg: r.NameABI(abi)}
}

func immArgument(v int) *SoraArgument {
	return &SoraArgument{Type: ArgImm, ValOfs: v}
}

func codeArgument(addr uint32, labellookup func(uint32) *string) *SoraArgument {
	arg := &SoraArgument{Type: ArgImm, ValOfs: int(addr), IsCodeLocation: true}
	if labellookup != nil {
		if label := labellookup(addr); label != nil {
			arg.Label = *label
		}
	}
	return arg
}

// NewSoraArguments lists the operands of in, located at pc, in display order.
// Branch and jump targets are resolved to absolute code locations.
func NewSoraArguments(in mips.Instruction, pc uint32, abi mips.ABI, labellookup func(uint32) *string) (arguments []*SoraArgument) {
	switch in.Kind.Info().Operands {
	case mips.OperandsTarget:
		arguments = append(arguments, codeArgument(in.JumpTarget(pc), labellookup))
	case mips.OperandsReg:
		arg := regArgument(in.Rs, abi)
		arg.IsCodeLocation = true
		arguments = append(arguments, arg)
	case mips.OperandsRegRegOff:
		arguments = append(arguments, regArgument(in.Rs, abi), regArgument(in.Rt, abi),
			codeArgument(in.BranchTarget(pc), labellookup))
	case mips.OperandsRegOff:
		arguments = append(arguments, regArgument(in.Rs, abi), codeArgument(in.BranchTarget(pc), labellookup))
	case mips.OperandsOff:
		arguments = append(arguments, codeArgument(in.BranchTarget(pc), labellookup))
	case mips.OperandsRegRegImm:
		arguments = append(arguments, regArgument(in.Rt, abi), regArgument(in.Rs, abi), immArgument(int(in.SignedImm())))
	case mips.OperandsRegRegUimm:
		arguments = append(arguments, regArgument(in.Rt, abi), regArgument(in.Rs, abi), immArgument(int(in.Imm)))
	case mips.OperandsRegUpper:
		arguments = append(arguments, regArgument(in.Rt, abi), immArgument(int(in.Imm<<16)))
	case mips.OperandsMem:
		arguments = append(arguments, regArgument(in.Rt, abi),
			&SoraArgument{Type: ArgMem, Reg: in.Rs.NameABI(abi), ValOfs: int(in.SignedImm())})
	}
	return
}

func (arg *SoraArgument) ValueStr(isDec bool) string {
	ss := ""
	n := arg.ValOfs

	if arg.ValOfs < 0 {
		ss += "-"
		n = -n
	}

	if !isDec {
		ss += fmt.Sprintf("0x%x", n)
	} else {
		ss += fmt.Sprintf("%d", n)
	}

	return ss
}

func (arg *SoraArgument) Str(isDec bool) string {
	ss := ""

	switch arg.Type {
	case ArgImm:
		if arg.Label != "" {
			ss += arg.Label
		} else {
			ss += arg.ValueStr(isDec)
		}
	case ArgReg:
		if arg.Reg == "zero" {
			ss += "0"
		} else {
			ss += arg.Reg
		}
	case ArgMem:
		ss += "[" + arg.Reg
		if arg.ValOfs != 0 {
			ss += " + " + arg.ValueStr(isDec)
		}
		ss += "]"
	default:
		ss += "??"
	}

	return ss
}

func (arg *SoraArgument) CodeLabel(doc *SoraDocument) string {
	if arg.IsCodeLocation && arg.Type == ArgImm {
		return doc.GetLabelName(uint32(arg.ValOfs))
	}
	return arg.Str(false)
}

func (arg *SoraArgument) IsNegative() bool {
	return arg.Type == ArgImm && arg.ValOfs < 0
}

func (arg *SoraArgument) IsNumber() bool {
	return arg.Type == ArgImm
}

func (arg *SoraArgument) IsZero() bool {
	return (arg.Type == ArgImm && arg.ValOfs == 0) || (arg.Type == ArgReg && arg.Reg == "zero")
}

func (arg *SoraArgument) ToPseudo() codegen.ASTNode {
	switch arg.Type {
	case ArgImm:
		if arg.Label != "" {
			e := codegen.ASTSymbolRef{}
			e.Name = arg.Label
			return &e
		}
		return &codegen.ASTNumber{Value: arg.ValOfs}
	case ArgReg:
		if arg.Reg == "zero" {
			return &codegen.ASTNumber{Value: 0}
		}
		e := codegen.ASTSymbolRef{}
		e.Name = arg.Reg
		return &e
	case ArgMem:
		b := codegen.ASTSymbolRef{}
		b.Name = arg.Reg
		e := codegen.ASTPointer{
			Sz:   "u32",
			Expr: &b,
		}
		if arg.ValOfs != 0 {
			e.Expr = &codegen.ASTBinary{
				Op:    "+",
				Left:  &b,
				Right: &codegen.ASTNumber{Value: arg.ValOfs},
			}
		}
		return &e
	}

	panic("unknown argument type")
}

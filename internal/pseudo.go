package internal

import (
	"fmt"

	"github.com/firodj/n64sora/internal/codegen"
	"github.com/firodj/n64sora/internal/mips"
)

type PseudoPrint func(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode

var kindToPseudo = map[mips.Kind]PseudoPrint{
	mips.KindNop: PseudoNothing,

	mips.KindAddi:  PseudoAssign,
	mips.KindAddiu: PseudoAssign,
	mips.KindOri:   PseudoAssign,
	mips.KindLui:   PseudoLoadUpper,
	mips.KindSw:    PseudoStore,

	mips.KindBeq:  PseudoBranch,
	mips.KindBne:  PseudoBranch,
	mips.KindBeqz: PseudoBranch,
	mips.KindBnez: PseudoBranch,
	mips.KindB:    PseudoBranch,

	mips.KindJ:   PseudoJump,
	mips.KindJal: PseudoJump,
	mips.KindJr:  PseudoJump,
}

// Code renders instr as a pseudo-C statement. The second result is 1 when
// the statement transfers control after a delay slot, -1 when instr could not
// be decoded and 0 otherwise.
func Code(instr *SoraInstruction, doc *SoraDocument) (string, int) {
	fn, ok := kindToPseudo[instr.Instr.Kind]
	if !ok {
		return "", -1
	}
	node := fn(instr, doc)
	if node == nil {
		return "", 0
	}
	if instr.Info.HasDelaySlot {
		return fmt.Sprint(node), 1
	}
	return fmt.Sprint(node), 0
}

func PseudoNothing(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode {
	return nil
}

func PseudoAssign(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode {
	op := "+"
	if instr.Instr.Kind == mips.KindOri {
		op = "|"
	}

	e := codegen.ASTAssign{}
	e.Left = instr.Args[0].ToPseudo()
	switch {
	case instr.Args[1].IsZero():
		e.Right = instr.Args[2].ToPseudo()
	case instr.Args[2].IsZero():
		e.Right = instr.Args[1].ToPseudo()
	default:
		e.Right = &codegen.ASTBinary{
			Op:    op,
			Left:  instr.Args[1].ToPseudo(),
			Right: instr.Args[2].ToPseudo(),
		}
	}
	return &e
}

func PseudoLoadUpper(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode {
	e := codegen.ASTAssign{}
	e.Left = instr.Args[0].ToPseudo()
	e.Right = instr.Args[1].ToPseudo()
	return &e
}

func PseudoStore(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode {
	e := codegen.ASTAssign{}
	e.Left = instr.Args[1].ToPseudo()
	e.Right = instr.Args[0].ToPseudo()
	return &e
}

func gotoLabel(arg *SoraArgument, doc *SoraDocument) codegen.ASTNode {
	label := codegen.ASTSymbolRef{}
	label.Name = arg.CodeLabel(doc)
	return &codegen.ASTGoto{Target: &label}
}

func PseudoBranch(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode {
	args := instr.Args
	target := gotoLabel(args[len(args)-1], doc)

	var cond codegen.ASTNode
	switch instr.Instr.Kind {
	case mips.KindB:
		return target
	case mips.KindBeqz:
		cond = &codegen.ASTBinary{Op: "==", Left: args[0].ToPseudo(), Right: &codegen.ASTNumber{}}
	case mips.KindBnez:
		cond = &codegen.ASTBinary{Op: "!=", Left: args[0].ToPseudo(), Right: &codegen.ASTNumber{}}
	case mips.KindBeq:
		cond = &codegen.ASTBinary{Op: "==", Left: args[0].ToPseudo(), Right: args[1].ToPseudo()}
	case mips.KindBne:
		cond = &codegen.ASTBinary{Op: "!=", Left: args[0].ToPseudo(), Right: args[1].ToPseudo()}
	}
	return &codegen.ASTIf{Cond: cond, Then: target}
}

func PseudoJump(instr *SoraInstruction, doc *SoraDocument) codegen.ASTNode {
	switch {
	case instr.Instr.IsReturn():
		return &codegen.ASTReturn{}
	case instr.Instr.Kind == mips.KindJr:
		return &codegen.ASTGoto{Target: &codegen.ASTUnary{Op: "*", Expr: instr.Args[0].ToPseudo()}}
	case instr.Instr.IsLink():
		fn := codegen.ASTSymbolRef{}
		fn.Name = instr.Args[0].CodeLabel(doc)
		return &codegen.ASTCall{Expr: &fn}
	}
	return gotoLabel(instr.Args[0], doc)
}

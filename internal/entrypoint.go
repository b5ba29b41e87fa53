package internal

import (
	"fmt"

	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/firodj/n64sora/models"
	"github.com/sirupsen/logrus"
)

// StopReason tells why the entrypoint walk ended.
type StopReason int

const (
	StoppedAtEndOfWindow StopReason = iota
	StoppedAtDoubleNop
	StoppedAfterJump
	StoppedAtDecodeError
)

func (r StopReason) String() string {
	switch r {
	case StoppedAtDoubleNop:
		return "double nop"
	case StoppedAfterJump:
		return "jump"
	case StoppedAtDecodeError:
		return "decode error"
	}
	return "end of window"
}

// Toolchain is a compiler family guess.
type Toolchain int

const (
	ToolchainUnknown Toolchain = iota
	ToolchainIDO
	ToolchainGCC
)

func (t Toolchain) String() string {
	switch t {
	case ToolchainIDO:
		return "IDO"
	case ToolchainGCC:
		return "GCC"
	}
	return "unknown"
}

// EntryResult is what the entrypoint walk recovered.
type EntryResult struct {
	JumpAddress  uint32
	BSSStart     uint32
	BSSSize      uint32
	StackPointer uint32

	// BSSStride is the per-iteration step of the BSS clear loop.
	BSSStride uint32

	JumpRegister       mips.Gpr
	SizeRegister       mips.Gpr
	BSSPointerRegister mips.Gpr
	// SizeGuessed is set when no clear loop counter was found and the size
	// register had to be picked by elimination.
	SizeGuessed bool
	Accumulator int

	// DelaySlotHint classifies the instruction in the final jump's delay slot.
	DelaySlotHint  Toolchain
	DelaySlotInstr mips.Instruction

	StoppedBy StopReason
	Registers RegisterFile
	Lines     []models.MipsOpcode
	Blocks    int
}

type EntryAnalyzer struct {
	doc    *SoraDocument
	rule   StopRule
	window uint32
	log    *logrus.Entry
}

func NewEntryAnalyzer(doc *SoraDocument) *EntryAnalyzer {
	return &EntryAnalyzer{
		doc:    doc,
		rule:   doc.cfg.StopRule,
		window: doc.cfg.Window,
		log:    doc.Stage(StageEntrypoint),
	}
}

// entryWalk is the mutable state of one pass.
type entryWalk struct {
	res EntryResult

	nops         int
	prevHasDelay bool
	sawJump      bool
	sawSizeAddi  bool
	jumpTarget   uint32
	hasTarget    bool
}

// Process walks the window at the entrypoint and evaluates the register
// state it leaves behind.
func (anal *EntryAnalyzer) Process() (*EntryResult, error) {
	doc := anal.doc
	if _, ok := doc.RomOffset(doc.EntryAddr + anal.window - 4); !ok {
		return nil, doc.stageError(StageEntrypoint, fmt.Errorf("%w: entrypoint window of 0x%X bytes", n64.ErrTruncated, anal.window))
	}

	var w entryWalk
	w.res.StoppedBy = StoppedAtEndOfWindow

	last_addr := doc.EntryAddr
	for off := uint32(0); off < anal.window; off += 4 {
		addr := doc.EntryAddr + off
		instr := doc.Disasm(addr)

		if instr.Info.Encoded == 0 {
			w.nops++
		} else {
			w.nops = 0
		}
		if w.nops > 1 {
			anal.log.Debugf("second nop at 0x%08X", addr)
			w.res.StoppedBy = StoppedAtDoubleNop
			break
		}

		line := instr.Info
		line.InDelaySlot = w.prevHasDelay
		w.res.Lines = append(w.res.Lines, line)
		last_addr = addr

		if instr.Instr.IsError() {
			anal.log.Warnf("stopping at undecodable word %08X at 0x%08X", instr.Info.Encoded, addr)
			w.res.StoppedBy = StoppedAtDecodeError
			break
		}

		if w.prevHasDelay && w.sawJump && anal.rule == StopAfterJump {
			anal.step(&w, instr)
			w.res.DelaySlotInstr = instr.Instr
			if instr.Instr.Kind == mips.KindNop {
				w.res.DelaySlotHint = ToolchainGCC
			} else {
				w.res.DelaySlotHint = ToolchainIDO
			}
			w.res.StoppedBy = StoppedAfterJump
			break
		}

		anal.step(&w, instr)
		w.prevHasDelay = instr.Instr.HasDelaySlot()
	}

	anal.finish(&w)
	w.res.Blocks = anal.buildBlocks(doc.EntryAddr, last_addr)

	if w.res.JumpAddress != 0 {
		doc.SymMap.AddLabel("boot_jump", w.res.JumpAddress)
	}
	if w.res.BSSStart != 0 {
		doc.SymMap.AddLabel("bss_start", w.res.BSSStart)
	}

	return &w.res, nil
}

// step applies one instruction to the register file.
func (anal *EntryAnalyzer) step(w *entryWalk, instr *SoraInstruction) {
	in := instr.Instr
	rf := &w.res.Registers
	refined := anal.rule == StopAfterJump

	switch in.Kind {
	case mips.KindLui:
		rf.Set(in.Rt, in.Imm<<16, ProvNone)
	case mips.KindAddiu:
		if refined && in.Rs == in.Rt && rf.LowPatched(in.Rt) {
			anal.log.Debugf("0x%08X: %s already patched, skipping", instr.Address, in.Rt)
			return
		}
		// the reference form, applied to the sign-extended field
		imm := uint32(in.SignedImm())
		rf.Set(in.Rt, rf.Get(in.Rs)+imm+((imm&0x8000)<<1), ProvAddiu)
	case mips.KindOri:
		if refined && in.Rs == in.Rt && rf.LowPatched(in.Rt) {
			anal.log.Debugf("0x%08X: %s already patched, skipping", instr.Address, in.Rt)
			return
		}
		rf.Set(in.Rt, rf.Get(in.Rs)|in.Imm, ProvOri)
	case mips.KindAddi:
		if in.Imm >= 0x8000 {
			w.res.Accumulator--
			if refined && !w.sawSizeAddi && in.Rs == in.Rt {
				w.res.SizeRegister = in.Rt
				w.res.BSSStride = uint32(-in.SignedImm())
				w.sawSizeAddi = true
			}
		} else {
			w.res.Accumulator++
		}
		if !refined && w.res.BSSStride == 0 && in.Rs == in.Rt {
			stride := in.SignedImm()
			if stride < 0 {
				stride = -stride
			}
			w.res.BSSStride = uint32(stride)
		}
	case mips.KindSw:
		w.res.BSSPointerRegister = in.Rs
	case mips.KindBne, mips.KindBnez:
		if !refined {
			w.res.SizeRegister = in.Rs
		}
	case mips.KindJr:
		w.res.JumpRegister = in.Rs
		w.sawJump = true
	case mips.KindJ, mips.KindJal:
		w.jumpTarget = in.JumpTarget(instr.Address)
		w.hasTarget = true
		w.sawJump = true
	case mips.KindB:
		w.jumpTarget = in.BranchTarget(instr.Address)
		w.hasTarget = true
		w.sawJump = true
	}
}

func (anal *EntryAnalyzer) finish(w *entryWalk) {
	res := &w.res
	rf := &res.Registers

	if anal.rule == StopAfterJump && !w.sawSizeAddi {
		exclude := []mips.Gpr{mips.Zero, res.JumpRegister, mips.SP, res.BSSPointerRegister}
		if r, ok := rf.FirstNonZero(exclude...); ok {
			res.SizeRegister = r
			res.SizeGuessed = true
			anal.log.Warnf("no BSS clear loop counter found, guessing size from %s = 0x%X; needs manual review", r, rf.Get(r))
		}
	}

	if anal.rule == StopAfterJump && w.hasTarget && res.JumpRegister == mips.Zero {
		res.JumpAddress = w.jumpTarget
	} else {
		res.JumpAddress = rf.Get(res.JumpRegister)
	}
	res.BSSSize = rf.Get(res.SizeRegister)
	res.BSSStart = rf.Get(res.BSSPointerRegister)
	if res.Accumulator < 0 {
		res.BSSStart -= res.BSSSize
	}
	res.StackPointer = rf.Get(mips.SP)
}

// buildBlocks records the basic blocks of the walked range, splitting at
// branch targets that land inside it.
func (anal *EntryAnalyzer) buildBlocks(start_addr, last_addr uint32) int {
	doc := anal.doc
	type edge struct {
		branch, to uint32
		linked     bool
	}
	var edges []edge

	doc.ProcessBB(start_addr, last_addr, func(state BBAnalState) {
		bb := doc.BBManager.Create(state.BBAddr)
		if bb == nil {
			return
		}
		bb.LastAddress = state.LastAddr
		bb.BranchAddress = state.BranchAddr
		if state.BranchAddr == 0 {
			return
		}
		branch := doc.InstrManager.Get(state.BranchAddr)
		if branch.Info.IsBranchToRegister {
			return
		}
		edges = append(edges, edge{state.BranchAddr, branch.Info.BranchTarget, branch.Info.IsLinkedBranch})
	})

	for _, e := range edges {
		if e.to >= start_addr && e.to <= last_addr {
			doc.BBManager.SplitAt(e.to)
		}
		// look the source up after splitting, the branch may now be in the tail
		from := doc.BBManager.Get(e.branch)
		ref := doc.BBManager.CreateReference(from.Address, e.to)
		ref.IsLinked = e.linked
	}

	return doc.BBManager.Len()
}

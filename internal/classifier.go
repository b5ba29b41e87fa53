package internal

import (
	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/internal/n64"
)

// FunctionSpan is a function body found by the classifier, as instruction
// indices into the scanned stream. End is inclusive and covers the delay slot
// of the closing "jr ra".
type FunctionSpan struct {
	Start, End int
}

type Classification struct {
	Branches  int
	Jumps     int
	Verdict   Toolchain
	Evidence  bool // false when there were too few samples to decide
	Functions []FunctionSpan
}

// VerdictString is the toolchain name, or "insufficient evidence".
func (c *Classification) VerdictString() string {
	if !c.Evidence {
		return "insufficient evidence"
	}
	return c.Verdict.String()
}

// Classify counts branches and plain jumps inside the function bodies of
// instrs and guesses the toolchain. IDO favours branches over jumps.
func Classify(instrs []mips.Instruction, dir ScanDirection, minEvidence int) Classification {
	var c Classification
	if dir == ScanReverse {
		c.Branches, c.Jumps = classifyReverse(instrs)
	} else {
		c.Branches, c.Jumps, c.Functions = classifyForward(instrs)
	}

	if c.Branches+c.Jumps < minEvidence {
		return c
	}
	c.Evidence = true
	if c.Branches > c.Jumps {
		c.Verdict = ToolchainIDO
	} else {
		c.Verdict = ToolchainGCC
	}
	return c
}

func count(in mips.Instruction, branches, jumps *int) {
	if in.IsBranch() {
		*branches++
	} else if in.Kind == mips.KindJ {
		*jumps++
	}
}

// classifyReverse walks backwards: a "jr ra" opens a function body, an
// undecodable word closes it.
func classifyReverse(instrs []mips.Instruction) (branches, jumps int) {
	inFunc := false
	for i := len(instrs) - 1; i >= 0; i-- {
		in := instrs[i]
		switch {
		case in.IsReturn():
			inFunc = true
		case in.IsError():
			inFunc = false
		case inFunc:
			count(in, &branches, &jumps)
		}
	}
	return
}

// classifyForward walks forwards, holding counts until the region they belong
// to is closed by "jr ra" and dropping them at an undecodable word. It
// agrees with classifyReverse on the totals.
func classifyForward(instrs []mips.Instruction) (branches, jumps int, funcs []FunctionSpan) {
	var pendingBranches, pendingJumps int
	funcStart := 0
	for i, in := range instrs {
		switch {
		case in.IsReturn():
			branches += pendingBranches
			jumps += pendingJumps
			pendingBranches, pendingJumps = 0, 0

			end := i + 1
			if end >= len(instrs) {
				end = i
			}
			if funcStart <= i {
				funcs = append(funcs, FunctionSpan{Start: funcStart, End: end})
			}
			funcStart = i + 2
		case in.IsError():
			pendingBranches, pendingJumps = 0, 0
			funcStart = i + 1
		default:
			count(in, &pendingBranches, &pendingJumps)
		}
	}
	return
}

// BootSegmentLength sizes the classifier window: from the entrypoint up to
// the start of BSS, clamped to [window, 1 MiB] and to the available bytes.
func BootSegmentLength(entry, bssStart, window, available uint32) uint32 {
	length := uint32(n64.MaxBootSegment)
	if bssStart > entry {
		length = bssStart - entry
	}
	if length < window {
		length = window
	}
	if length > n64.MaxBootSegment {
		length = n64.MaxBootSegment
	}
	if length > available {
		length = available
	}
	return length &^ 3
}

// Classify runs the classifier over the boot segment and registers the
// function bodies it finds.
func (doc *SoraDocument) Classify(res *EntryResult) (*Classification, uint32) {
	available := uint32(len(doc.rom) - n64.BootCodeOffset)
	length := BootSegmentLength(doc.EntryAddr, res.BSSStart, doc.cfg.Window, available)

	instrs := mips.DisassembleAll(doc.Words(doc.EntryAddr, length))
	c := Classify(instrs, doc.cfg.Direction, doc.cfg.MinEvidence)

	for _, span := range c.Functions {
		addr := doc.EntryAddr + uint32(span.Start)*4
		fun := doc.FunManager.CreateNewFunction(addr, uint32(span.End-span.Start+1)*4)
		if fun == nil {
			continue
		}
		for _, in := range instrs[span.Start : span.End+1] {
			count(in, &fun.Branches, &fun.Jumps)
		}
	}

	doc.Stage(StageClassify).Debugf("boot segment 0x%X bytes: %d branches, %d jumps, %d functions",
		length, c.Branches, c.Jumps, len(c.Functions))
	return &c, length
}

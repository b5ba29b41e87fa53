package internal

import "github.com/sirupsen/logrus"

type BBYieldFunc func(state BBAnalState)

// BBAnalState accumulates the lines of one basic block while a walk is in
// progress.
type BBAnalState struct {
	BBAddr     uint32
	BranchAddr uint32
	LastAddr   uint32
	Lines      []*SoraInstruction
	Count      int
	Visited    bool

	log *logrus.Entry
}

func (bbas *BBAnalState) Init(log *logrus.Entry) {
	bbas.Reset()
	bbas.Count = 0
	bbas.log = log
}

func (bbas *BBAnalState) Reset() {
	bbas.BBAddr = 0
	bbas.BranchAddr = 0
	bbas.Lines = nil
	bbas.Visited = false
}

func (bbas *BBAnalState) SetBB(addr uint32, visited bool) {
	if bbas.BBAddr == 0 {
		bbas.BBAddr = addr
		bbas.Visited = visited
	}
}

func (bbas *BBAnalState) SetBranch(addr uint32) {
	if bbas.BranchAddr != 0 && bbas.log != nil {
		bbas.log.Warnf("SetBranch already set at 0x%08x, now 0x%08x", bbas.BranchAddr, addr)
	}
	bbas.BranchAddr = addr
}

func (bbas *BBAnalState) Append(instr *SoraInstruction) {
	bbas.Lines = append(bbas.Lines, instr)
}

func (bbas *BBAnalState) Yield(last_addr uint32, cb BBYieldFunc) {
	if len(bbas.Lines) == 0 {
		return
	}
	bbas.LastAddr = last_addr
	cb(*bbas)

	bbas.Reset()
	bbas.Count += 1
}

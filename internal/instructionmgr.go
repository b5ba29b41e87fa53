package internal

import (
	"github.com/firodj/n64sora/binarysearchtree"
	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/models"
)

type SoraInstruction struct {
	Info    models.MipsOpcode
	Address uint32
	Instr   mips.Instruction
	Args    []*SoraArgument
}

func (instr *SoraInstruction) Mnemonic() string {
	return instr.Instr.Name()
}

type InstructionManager struct {
	doc *SoraDocument

	instructions binarysearchtree.AVLTree[uint32, *SoraInstruction]
}

func NewInstructionManager(doc *SoraDocument) *InstructionManager {
	return &InstructionManager{
		doc: doc,
	}
}

func (mgr *InstructionManager) Create(addr uint32, in mips.Instruction, info *models.MipsOpcode) *SoraInstruction {
	if mgr.Get(addr) != nil {
		return nil
	}
	instr := &SoraInstruction{
		Info:    *info,
		Address: addr,
		Instr:   in,
	}
	mgr.instructions.Insert(addr, instr)
	return instr
}

func (mgr *InstructionManager) Get(addr uint32) *SoraInstruction {
	it := mgr.instructions.Search(addr)
	if it.End() {
		return nil
	}
	return it.Value()
}

func (mgr *InstructionManager) Len() int {
	return mgr.instructions.Size()
}

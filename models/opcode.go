package models

import "fmt"

// MipsOpcode is one listing line: a decoded word and where it lives.
type MipsOpcode struct {
	Address            uint32 `yaml:"address" json:"address"`
	RomOffset          uint32 `yaml:"rom_offset" json:"rom_offset"`
	Encoded            uint32 `yaml:"encoded" json:"encoded"`
	IsConditional      bool   `yaml:"is_conditional,omitempty" json:"is_conditional,omitempty"`
	IsBranch           bool   `yaml:"is_branch,omitempty" json:"is_branch,omitempty"`
	IsLinkedBranch     bool   `yaml:"is_linked_branch,omitempty" json:"is_linked_branch,omitempty"`
	IsBranchToRegister bool   `yaml:"is_branch_to_register,omitempty" json:"is_branch_to_register,omitempty"`
	HasDelaySlot       bool   `yaml:"has_delay_slot,omitempty" json:"has_delay_slot,omitempty"`
	InDelaySlot        bool   `yaml:"in_delay_slot,omitempty" json:"in_delay_slot,omitempty"`
	IsInvalid          bool   `yaml:"is_invalid,omitempty" json:"is_invalid,omitempty"`
	BranchTarget       uint32 `yaml:"branch_target,omitempty" json:"branch_target,omitempty"`
	BranchRegister     int    `yaml:"branch_register,omitempty" json:"branch_register,omitempty"`
	Dizz               string `yaml:"dizz" json:"dizz"`
	Log                string `yaml:"log,omitempty" json:"log,omitempty"`
}

// Listing renders the line as "/* RAM ROM WORD */" followed by the
// disassembly. Delay slot instructions are indented one extra column.
func (op *MipsOpcode) Listing() string {
	indent := "     "
	if op.InDelaySlot {
		indent += " "
	}
	s := fmt.Sprintf("/* %08X %06X %08X */%s%s", op.Address, op.RomOffset, op.Encoded, indent, op.Dizz)
	if op.Log != "" {
		s += "\t# " + op.Log
	}
	return s
}

package internal

import "github.com/firodj/n64sora/internal/mips"

// Provenance records which instruction last wrote the low half of a register.
type Provenance uint8

const (
	ProvNone Provenance = iota
	ProvAddiu
	ProvOri
)

func (p Provenance) String() string {
	switch p {
	case ProvAddiu:
		return "addiu"
	case ProvOri:
		return "ori"
	}
	return "none"
}

// RegisterFile is the symbolic register state of one analysis pass. The zero
// register is never written.
type RegisterFile struct {
	values [mips.NumGprs]uint32
	prov   [mips.NumGprs]Provenance
}

func (rf *RegisterFile) Get(r mips.Gpr) uint32 {
	if !r.Valid() {
		return 0
	}
	return rf.values[r]
}

func (rf *RegisterFile) Set(r mips.Gpr, v uint32, prov Provenance) {
	if r == mips.Zero || !r.Valid() {
		return
	}
	rf.values[r] = v
	rf.prov[r] = prov
}

func (rf *RegisterFile) Provenance(r mips.Gpr) Provenance {
	if !r.Valid() {
		return ProvNone
	}
	return rf.prov[r]
}

// LowPatched reports whether the low 16 bits of r have already been filled in.
func (rf *RegisterFile) LowPatched(r mips.Gpr) bool {
	return rf.Get(r)&0xFFFF != 0
}

// FirstNonZero returns the lowest numbered register holding a non-zero value
// that is not in exclude.
func (rf *RegisterFile) FirstNonZero(exclude ...mips.Gpr) (mips.Gpr, bool) {
next:
	for i, v := range rf.values {
		r := mips.Gpr(i)
		if v == 0 {
			continue
		}
		for _, x := range exclude {
			if r == x {
				continue next
			}
		}
		return r, true
	}
	return mips.Zero, false
}

// Written returns the registers holding a non-zero value, in index order.
func (rf *RegisterFile) Written() []mips.Gpr {
	var regs []mips.Gpr
	for i, v := range rf.values {
		if v != 0 {
			regs = append(regs, mips.Gpr(i))
		}
	}
	return regs
}

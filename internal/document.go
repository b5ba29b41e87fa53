package internal

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/firodj/n64sora/internal/mips"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/firodj/n64sora/models"
	"github.com/sirupsen/logrus"
)

// SoraDocument is one ROM image, normalized and identified, together with
// everything discovered about it so far.
type SoraDocument struct {
	Filename string
	Size     int
	Format   n64.Format
	Header   *n64.Header
	CIC      n64.CIC
	Checksum uint32

	// EntryAddr is the corrected entrypoint, which ROM offset 0x1000 maps to.
	EntryAddr uint32

	BBManager    *BasicBlockManager
	FunManager   *FunctionManager
	InstrManager *InstructionManager
	SymMap       *SymbolMap

	rom []byte
	cfg Config
	log *logrus.Entry
}

func newSoraDocument(filename string, cfg Config, log *logrus.Entry) *SoraDocument {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	doc := &SoraDocument{
		Filename: filename,
		SymMap:   CreateSymbolMap(),
		cfg:      cfg,
		log:      log.WithField("file", filename),
	}

	doc.BBManager = NewBasicBlockManager(doc)
	doc.FunManager = NewFunctionManager(doc)
	doc.InstrManager = NewInstructionManager(doc)

	return doc
}

// NewSoraDocument normalizes raw, parses its header and identifies its IPL3
// against table. raw is not modified.
func NewSoraDocument(filename string, raw []byte, table *n64.Table, cfg Config, log *logrus.Entry) (*SoraDocument, error) {
	doc := newSoraDocument(filename, cfg, log)
	doc.Size = len(raw)

	format, err := n64.DetectFormat(raw)
	if err != nil {
		return nil, doc.stageError(StageEndian, err)
	}
	doc.Format = format

	if len(raw) < cfg.MinROMSize() {
		return nil, doc.stageError(StageHeader, fmt.Errorf("%w: need 0x%X bytes, have 0x%X", n64.ErrTruncated, cfg.MinROMSize(), len(raw)))
	}

	doc.rom = make([]byte, len(raw)&^3)
	copy(doc.rom, raw)
	if err := n64.Normalize(format, doc.rom); err != nil {
		return nil, doc.stageError(StageEndian, err)
	}
	if len(raw)%4 != 0 {
		doc.Stage(StageEndian).Warnf("ignoring %d trailing bytes", len(raw)%4)
	}

	doc.Header, err = n64.ParseHeader(doc.rom)
	if err != nil {
		return nil, doc.stageError(StageHeader, err)
	}

	doc.CIC, doc.Checksum, err = table.Identify(doc.rom)
	if err != nil {
		return nil, doc.stageError(StageIPL3, err)
	}

	doc.EntryAddr = doc.CIC.CorrectEntrypoint(doc.Header.Entrypoint)
	doc.SymMap.AddLabel("entrypoint", doc.EntryAddr)

	doc.Stage(StageIPL3).WithFields(logrus.Fields{
		"cic":        doc.CIC.Name(),
		"checksum":   fmt.Sprintf("%08X", doc.Checksum),
		"entrypoint": fmt.Sprintf("%08X", doc.EntryAddr),
	}).Debug("identified boot code")

	return doc, nil
}

func (doc *SoraDocument) stageError(stage string, err error) error {
	return &StageError{File: doc.Filename, Stage: stage, Err: err}
}

// Stage returns the document logger tagged with a pipeline stage.
func (doc *SoraDocument) Stage(stage string) *logrus.Entry {
	return doc.log.WithField("stage", stage)
}

func (doc *SoraDocument) Config() Config {
	return doc.cfg
}

// ROM returns the normalized image.
func (doc *SoraDocument) ROM() []byte {
	return doc.rom
}

// RomOffset maps a RAM address of the boot segment to its ROM offset.
func (doc *SoraDocument) RomOffset(addr uint32) (uint32, bool) {
	if addr < doc.EntryAddr {
		return 0, false
	}
	off := uint64(addr-doc.EntryAddr) + n64.BootCodeOffset
	if off+4 > uint64(len(doc.rom)) {
		return 0, false
	}
	return uint32(off), true
}

// Address maps a ROM offset at or after the boot code to its RAM address.
func (doc *SoraDocument) Address(romOffset uint32) uint32 {
	return doc.EntryAddr + romOffset - n64.BootCodeOffset
}

func (doc *SoraDocument) Word(addr uint32) (uint32, bool) {
	off, ok := doc.RomOffset(addr)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(doc.rom[off:]), true
}

// Words returns up to length bytes of canonical words starting at addr.
func (doc *SoraDocument) Words(addr uint32, length uint32) []uint32 {
	off, ok := doc.RomOffset(addr)
	if !ok {
		return nil
	}
	end := uint64(off) + uint64(length)
	if end > uint64(len(doc.rom)) {
		end = uint64(len(doc.rom))
	}
	words := make([]uint32, 0, (end-uint64(off))/4)
	for i := uint64(off); i+4 <= end; i += 4 {
		words = append(words, binary.BigEndian.Uint32(doc.rom[i:]))
	}
	return words
}

// Disasm decodes the instruction at addr, caching the result. It returns nil
// outside the ROM.
func (doc *SoraDocument) Disasm(address uint32) *SoraInstruction {
	instr := doc.InstrManager.Get(address)
	if instr != nil {
		return instr
	}
	word, ok := doc.Word(address)
	if !ok {
		return nil
	}
	off, _ := doc.RomOffset(address)

	in := mips.Disassemble(word)
	info := models.MipsOpcode{
		Address:            address,
		RomOffset:          off,
		Encoded:            word,
		IsConditional:      in.IsConditional(),
		IsBranch:           in.HasDelaySlot(),
		IsLinkedBranch:     in.IsLink(),
		IsBranchToRegister: in.Kind == mips.KindJr,
		HasDelaySlot:       in.HasDelaySlot(),
		IsInvalid:          in.IsError(),
		Dizz:               in.Format(doc.cfg.PrintWidth, doc.cfg.ABI),
	}
	switch {
	case in.IsBranch():
		info.BranchTarget = in.BranchTarget(address)
	case in.Kind == mips.KindJ || in.Kind == mips.KindJal:
		info.BranchTarget = in.JumpTarget(address)
	case in.Kind == mips.KindJr:
		info.BranchRegister = int(in.Rs)
	}
	if prev := doc.InstrManager.Get(address - 4); prev != nil {
		info.InDelaySlot = prev.Info.HasDelaySlot
	} else if pw, ok := doc.Word(address - 4); ok {
		info.InDelaySlot = mips.Disassemble(pw).HasDelaySlot()
	}

	instr = doc.InstrManager.Create(address, in, &info)
	instr.Args = NewSoraArguments(in, address, doc.cfg.ABI, doc.SymMap.GetLabelName)

	return instr
}

// ProcessBB walks basic blocks from start_addr, yielding each one once its
// delay slot has been consumed. With last_addr zero the walk ends after the
// first unconditional transfer; otherwise it covers the whole range.
func (doc *SoraDocument) ProcessBB(start_addr uint32, last_addr uint32, cb BBYieldFunc) int {
	var bbas BBAnalState
	bbas.Init(doc.log)
	var prevInstr *SoraInstruction = nil
	if bb_exists := doc.BBManager.Get(start_addr); bb_exists != nil && last_addr == 0 {
		doc.log.Debugf("overwrite last_addr because ProcessBB exists on 0x%08x", bb_exists.Address)
		last_addr = bb_exists.LastAddress
	}

	seen_addr := start_addr
	// addr < start_addr once the walk wraps past the top of the address space
	for addr := start_addr; addr >= start_addr && (last_addr == 0 || addr <= last_addr); addr += 4 {
		instr := doc.Disasm(addr)
		if instr == nil {
			break
		}
		seen_addr = addr

		exists := doc.BBManager.Get(addr)
		bbas.SetBB(addr, exists != nil && exists.Address == addr)
		bbas.Append(instr)

		if instr.Info.IsBranch {
			bbas.SetBranch(addr)
		}

		if instr.Info.IsInvalid {
			doc.log.Warnf("undecodable word %08X at 0x%08x", instr.Info.Encoded, addr)
			bbas.Yield(addr, cb)
			if last_addr == 0 {
				break
			}
			prevInstr = instr
			continue
		}

		if prevInstr != nil && prevInstr.Info.HasDelaySlot {
			bbas.Yield(addr, cb)

			if last_addr == 0 && !prevInstr.Info.IsConditional {
				break
			}
		}

		prevInstr = instr
	}

	bbas.Yield(seen_addr, cb)

	return bbas.Count
}

func (doc *SoraDocument) GetLabelName(addr uint32) string {
	if funTarget := doc.SymMap.GetFunctionStart(addr); funTarget != 0 {
		label := doc.SymMap.GetLabelName(funTarget)
		if label != nil {
			ss := *label
			disp := addr - funTarget
			if disp != 0 {
				ss += fmt.Sprintf("__0x%x", disp)
			}

			return ss
		}
	}
	if label := doc.SymMap.GetLabelName(addr); label != nil {
		return *label
	}
	return fmt.Sprintf("loc_0x%08x", addr)
}

// PrintLines returns a yield function writing each block as a listing, with
// pseudo-C comments when pseudo is set.
func (doc *SoraDocument) PrintLines(w io.Writer, pseudo bool) BBYieldFunc {
	return func(state BBAnalState) {
		label := doc.GetLabelName(state.BBAddr)

		fmt.Fprintf(w, "%s:\t// 0x%08x", label, state.BBAddr)
		if state.Visited {
			fmt.Fprintln(w, "\t(v)")
		} else {
			fmt.Fprintln(w)
		}

		for _, line := range state.Lines {
			mark := " "
			if line.Address == state.BranchAddr {
				mark = "*"
			}
			fmt.Fprintf(w, "%s%s", mark, line.Info.Listing())

			if pseudo {
				if ss, _ := Code(line, doc); ss != "" {
					fmt.Fprintf(w, "\t; %s", ss)
				}
			}
			fmt.Fprintln(w)
		}
	}
}

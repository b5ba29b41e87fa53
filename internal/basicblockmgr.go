package internal

import (
	"fmt"

	"github.com/firodj/n64sora/binarysearchtree"
	"github.com/sirupsen/logrus"
)

type SoraBasicBlock struct {
	Address       uint32 `yaml:"address" json:"address"`
	LastAddress   uint32 `yaml:"last_address" json:"last_address"`
	BranchAddress uint32 `yaml:"branch_address,omitempty" json:"branch_address,omitempty"`
}

func (bb *SoraBasicBlock) Size() uint32 {
	return bb.LastAddress - bb.Address + 4
}

type BBRefKey struct {
	From uint32 `yaml:"from"`
	To   uint32 `yaml:"to"`
}

type SoraBBRef struct {
	BBRefKey

	IsAdjacent bool // next/prev
	IsLinked   bool // call/linked
}

func (ref *SoraBBRef) SetAdjacent(v bool) *SoraBBRef {
	ref.IsAdjacent = v
	return ref
}

func (ref *SoraBBRef) String() string {
	kind := "branch"
	if ref.IsAdjacent {
		kind = "adjacent"
	} else if ref.IsLinked {
		kind = "call"
	}
	return fmt.Sprintf("0x%08x -> 0x%08x (%s)", ref.From, ref.To, kind)
}

type BasicBlockManager struct {
	doc *SoraDocument

	basicBlocks binarysearchtree.AVLTree[uint32, *SoraBasicBlock]
	refs        map[BBRefKey]*SoraBBRef
	refsToBB    map[uint32][]uint32
	refsFromBB  map[uint32][]uint32
}

func NewBasicBlockManager(doc *SoraDocument) *BasicBlockManager {
	return &BasicBlockManager{
		doc:        doc,
		refs:       make(map[BBRefKey]*SoraBBRef),
		refsToBB:   make(map[uint32][]uint32),
		refsFromBB: make(map[uint32][]uint32),
	}
}

func (bbmanager *BasicBlockManager) log() *logrus.Entry {
	if bbmanager.doc != nil && bbmanager.doc.log != nil {
		return bbmanager.doc.log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Get returns the block containing addr.
func (bbmanager *BasicBlockManager) Get(addr uint32) (bb *SoraBasicBlock) {
	if addr == 0 {
		return nil
	}

	f, c := bbmanager.basicBlocks.FloorCeil(addr)

	if !c.End() {
		bb = c.Value()

		if addr != bb.Address {
			if !f.End() {
				bb = f.Value()
			} else {
				bb = nil
			}
		}
	} else if !f.End() {
		bb = f.Value()
	}

	if bb != nil && addr > bb.LastAddress {
		bb = nil
	}

	if bb != nil && bb.Address > addr {
		panic(fmt.Errorf("found=%d query=%d", bb.Address, addr))
	}

	return
}

func (bbmanager *BasicBlockManager) Create(addr uint32) *SoraBasicBlock {
	bb := bbmanager.Get(addr)
	if bb != nil {
		return nil
	}

	bb = &SoraBasicBlock{
		Address:     addr,
		LastAddress: addr,
	}

	bbmanager.basicBlocks.Insert(addr, bb)
	return bb
}

func (bbmanager *BasicBlockManager) CreateReference(from_addr, to_addr uint32) *SoraBBRef {
	key := BBRefKey{
		From: from_addr,
		To:   to_addr,
	}

	if ref, ok := bbmanager.refs[key]; ok {
		return ref
	}

	bbref := &SoraBBRef{
		BBRefKey: key,
	}
	bbmanager.refsToBB[to_addr] = append(bbmanager.refsToBB[to_addr], from_addr)
	bbmanager.refsFromBB[from_addr] = append(bbmanager.refsFromBB[from_addr], to_addr)
	bbmanager.refs[key] = bbref

	return bbref
}

// GetRefs returns the references entering and leaving the block at bb_addr.
func (bbmanager *BasicBlockManager) GetRefs(bb_addr uint32) (xref_froms, xref_tos []*SoraBBRef) {
	for _, from := range bbmanager.refsToBB[bb_addr] {
		xref_froms = append(xref_froms, bbmanager.refs[BBRefKey{From: from, To: bb_addr}])
	}
	for _, to := range bbmanager.refsFromBB[bb_addr] {
		xref_tos = append(xref_tos, bbmanager.refs[BBRefKey{From: bb_addr, To: to}])
	}
	return
}

func (bbmanager *BasicBlockManager) SplitAt(split_addr uint32) (prev_bb, split_bb *SoraBasicBlock) {
	prev_bb = bbmanager.Get(split_addr)
	if prev_bb == nil {
		return
	} else if prev_bb.Address == split_addr {
		split_bb = prev_bb
		return
	}

	last_addr := prev_bb.LastAddress
	prev_bb.LastAddress = split_addr - 4

	split_bb = bbmanager.Create(split_addr)
	if split_bb == nil {
		prev_bb.LastAddress = last_addr
		bbmanager.log().Errorf("unable to create splitted bb at: 0x%08x, possibly exists?", split_addr)
		return
	}

	if prev_bb.BranchAddress >= split_bb.Address {
		split_bb.BranchAddress = prev_bb.BranchAddress
		prev_bb.BranchAddress = 0
	}

	split_bb.LastAddress = last_addr

	// outgoing references now leave from the tail
	outs := append([]uint32(nil), bbmanager.refsFromBB[prev_bb.Address]...)
	for _, to := range outs {
		ref := bbmanager.refs[BBRefKey{From: prev_bb.Address, To: to}]
		if ref.IsAdjacent {
			continue
		}
		bbmanager.removeReference(ref.BBRefKey)
		moved := bbmanager.CreateReference(split_bb.Address, to)
		moved.IsLinked = ref.IsLinked
	}
	bbmanager.CreateReference(prev_bb.Address, split_bb.Address).SetAdjacent(true)
	return
}

func (bbmanager *BasicBlockManager) removeReference(key BBRefKey) {
	delete(bbmanager.refs, key)
	bbmanager.refsToBB[key.To] = without(bbmanager.refsToBB[key.To], key.From)
	bbmanager.refsFromBB[key.From] = without(bbmanager.refsFromBB[key.From], key.To)
}

func without(addrs []uint32, addr uint32) []uint32 {
	out := addrs[:0]
	for _, a := range addrs {
		if a != addr {
			out = append(out, a)
		}
	}
	return out
}

// Blocks returns every block in address order.
func (bbmanager *BasicBlockManager) Blocks() []*SoraBasicBlock {
	var blocks []*SoraBasicBlock
	bbmanager.basicBlocks.InOrderTraverse(func(_ uint32, bb *SoraBasicBlock) bool {
		blocks = append(blocks, bb)
		return true
	})
	return blocks
}

func (bbmanager *BasicBlockManager) Len() int {
	return bbmanager.basicBlocks.Size()
}

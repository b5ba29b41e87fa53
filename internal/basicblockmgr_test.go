package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreate(t *testing.T) {
	bbmanager := NewBasicBlockManager(nil)

	addr := uint32(0x800001)
	bb := bbmanager.Create(addr)
	bb.LastAddress = addr
	assert.NotNil(t, bb)

	bb2 := bbmanager.Create(addr)
	assert.Nil(t, bb2)
}

func TestGet(t *testing.T) {
	bbmanager := NewBasicBlockManager(nil)

	bb := bbmanager.Create(0x800020)
	bb.LastAddress = 0x80002C

	bb = bbmanager.Create(0x800010)
	bb.LastAddress = 0x80001C

	bb = bbmanager.Get(0x800000)
	assert.Nil(t, bb)

	bb = bbmanager.Get(0x800010)
	assert.NotNil(t, bb)
	assert.Equal(t, uint32(0x800010), bb.Address)

	bb = bbmanager.Get(0x800018)
	assert.NotNil(t, bb)
	assert.Equal(t, uint32(0x800010), bb.Address)

	bb = bbmanager.Get(0x800030)
	assert.Nil(t, bb)
}

func TestSplitAt(t *testing.T) {
	bbmanager := NewBasicBlockManager(nil)

	bb := bbmanager.Create(0x800008)
	bb.LastAddress = 0x80001C
	bb.BranchAddress = 0x800018

	prev, split := bbmanager.SplitAt(0x800014)

	assert.Equal(t, uint32(0x800008), prev.Address)
	assert.Equal(t, uint32(0x800014-4), prev.LastAddress)

	assert.Equal(t, uint32(0x800014), split.Address)
	assert.Equal(t, uint32(0x800018), split.BranchAddress)
	assert.Equal(t, uint32(0x80001C), split.LastAddress)
}

func TestSplitAtMovesReferences(t *testing.T) {
	bbmanager := NewBasicBlockManager(nil)

	bb := bbmanager.Create(0x800000)
	bb.LastAddress = 0x80001C
	bb.BranchAddress = 0x800018
	bbmanager.CreateReference(0x800000, 0x800040).IsLinked = true

	prev, split := bbmanager.SplitAt(0x800010)
	assert.Equal(t, 2, bbmanager.Len())

	_, tos := bbmanager.GetRefs(prev.Address)
	if assert.Len(t, tos, 1) {
		assert.True(t, tos[0].IsAdjacent)
		assert.Equal(t, split.Address, tos[0].To)
	}

	froms, tos := bbmanager.GetRefs(split.Address)
	assert.Len(t, froms, 1)
	if assert.Len(t, tos, 1) {
		assert.Equal(t, uint32(0x800040), tos[0].To)
		assert.True(t, tos[0].IsLinked)
		assert.Equal(t, "0x00800010 -> 0x00800040 (call)", tos[0].String())
	}

	// splitting at a block start is a no-op
	prev, split = bbmanager.SplitAt(0x800010)
	assert.Same(t, prev, split)
	assert.Equal(t, 2, bbmanager.Len())

	assert.Nil(t, bbmanager.Get(0x800020))
	prev, split = bbmanager.SplitAt(0x800020)
	assert.Nil(t, prev)
	assert.Nil(t, split)
}

func TestBlocksInOrder(t *testing.T) {
	bbmanager := NewBasicBlockManager(nil)
	for _, addr := range []uint32{0x800020, 0x800000, 0x800010} {
		bbmanager.Create(addr).LastAddress = addr + 0xC
	}

	var addrs []uint32
	for _, bb := range bbmanager.Blocks() {
		addrs = append(addrs, bb.Address)
		assert.Equal(t, uint32(0x10), bb.Size())
	}
	assert.Equal(t, []uint32{0x800000, 0x800010, 0x800020}, addrs)
}

package internal

import "github.com/firodj/n64sora/binarysearchtree"

type symbol struct {
	Name    string
	Address uint32
	Size    uint32
}

// SymbolMap names addresses: plain labels and sized functions.
type SymbolMap struct {
	labels    binarysearchtree.AVLTree[uint32, *symbol]
	functions binarysearchtree.AVLTree[uint32, *symbol]
}

func CreateSymbolMap() *SymbolMap {
	return &SymbolMap{}
}

func (symmap *SymbolMap) AddLabel(name string, address uint32) {
	symmap.labels.Insert(address, &symbol{Name: name, Address: address})
}

// AddFunction registers a function, which also labels its first address.
func (symmap *SymbolMap) AddFunction(name string, address uint32, size uint32) {
	symmap.functions.Insert(address, &symbol{Name: name, Address: address, Size: size})
	if symmap.labels.Search(address).End() {
		symmap.AddLabel(name, address)
	}
}

func (symmap *SymbolMap) GetFunctionSize(startAddress uint32) uint32 {
	it := symmap.functions.Search(startAddress)
	if it.End() {
		return 0
	}
	return it.Value().Size
}

func (symmap *SymbolMap) SetFunctionSize(startAddress uint32, size uint32) {
	if it := symmap.functions.Search(startAddress); !it.End() {
		it.Value().Size = size
	}
}

// GetFunctionStart returns the start of the function containing address, or
// zero.
func (symmap *SymbolMap) GetFunctionStart(address uint32) uint32 {
	f, _ := symmap.functions.FloorCeil(address)
	if f.End() {
		return 0
	}
	fun := f.Value()
	if address-fun.Address >= fun.Size {
		return 0
	}
	return fun.Address
}

func (symmap *SymbolMap) GetLabelName(address uint32) *string {
	it := symmap.labels.Search(address)
	if it.End() {
		return nil
	}
	name := it.Value().Name
	return &name
}

func (symmap *SymbolMap) Len() int {
	return symmap.labels.Size()
}

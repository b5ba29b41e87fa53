package internal

import (
	"fmt"

	"github.com/firodj/n64sora/binarysearchtree"
)

type SoraFunction struct {
	Name        string   `yaml:"name" json:"name"`
	Address     uint32   `yaml:"address" json:"address"`
	Size        uint32   `yaml:"size" json:"size"`
	Branches    int      `yaml:"branches" json:"branches"`
	Jumps       int      `yaml:"jumps" json:"jumps"`
	BBAddresses []uint32 `yaml:"bb_addresses,omitempty" json:"bb_addresses,omitempty"`
}

func (fun *SoraFunction) LastAddress() uint32 {
	return fun.Address + fun.Size - 4
}

func (fun *SoraFunction) SetLastAddress(last_addr uint32) {
	fun.Size = last_addr - fun.Address + 4
}

func (fun *SoraFunction) AddBB(bb_addr uint32) {
	for _, ex_bb := range fun.BBAddresses {
		if ex_bb == bb_addr {
			return
		}
	}

	fun.BBAddresses = append(fun.BBAddresses, bb_addr)
}

type FunctionManager struct {
	doc           *SoraDocument
	functions     binarysearchtree.AVLTree[uint32, *SoraFunction]
	mapNameToFunc map[string][]uint32
}

func NewFunctionManager(doc *SoraDocument) *FunctionManager {
	return &FunctionManager{
		doc:           doc,
		mapNameToFunc: make(map[string][]uint32),
	}
}

func (funmgr *FunctionManager) RegisterNameFunction(fun *SoraFunction) {
	for _, ex_addr := range funmgr.mapNameToFunc[fun.Name] {
		if ex_addr == fun.Address {
			return
		}
	}

	funmgr.mapNameToFunc[fun.Name] = append(funmgr.mapNameToFunc[fun.Name], fun.Address)
}

// CreateNewFunction registers a function body. Functions without a known
// label are named after their address.
func (funmgr *FunctionManager) CreateNewFunction(addr uint32, size uint32) *SoraFunction {
	fun := funmgr.Get(addr)
	if fun != nil {
		return nil
	}

	name := funmgr.doc.SymMap.GetLabelName(addr)
	if name == nil {
		name = new(string)
		*name = fmt.Sprintf("z_un_%08x", addr)
	}

	fun = &SoraFunction{
		Address: addr,
		Name:    *name,
		Size:    size,
	}
	funmgr.functions.Insert(addr, fun)
	funmgr.RegisterNameFunction(fun)
	funmgr.doc.SymMap.AddFunction(fun.Name, fun.Address, fun.Size)

	for _, bb := range funmgr.doc.BBManager.Blocks() {
		if bb.Address >= fun.Address && bb.Address <= fun.LastAddress() {
			fun.AddBB(bb.Address)
		}
	}

	return fun
}

func (funmgr *FunctionManager) Get(addr uint32) *SoraFunction {
	it := funmgr.functions.Search(addr)
	if it.End() {
		return nil
	}
	return it.Value()
}

func (funmgr *FunctionManager) GetByName(name string) []*SoraFunction {
	var funs []*SoraFunction
	for _, addr := range funmgr.mapNameToFunc[name] {
		if fun := funmgr.Get(addr); fun != nil {
			funs = append(funs, fun)
		}
	}
	return funs
}

// Functions returns every function in address order.
func (funmgr *FunctionManager) Functions() []*SoraFunction {
	var funs []*SoraFunction
	funmgr.functions.InOrderTraverse(func(_ uint32, fun *SoraFunction) bool {
		funs = append(funs, fun)
		return true
	})
	return funs
}

func (funmgr *FunctionManager) Len() int {
	return funmgr.functions.Size()
}

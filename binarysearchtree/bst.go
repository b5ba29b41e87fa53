package binarysearchtree

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/constraints"
)

// node a single node that composes the tree
type node[K constraints.Ordered, V any] struct {
	key    K
	value  V
	height int
	left   *node[K, V]
	right  *node[K, V]
}

// Iterator points at one entry of an AVLTree, or past the end.
type Iterator[K constraints.Ordered, V any] struct {
	n    *node[K, V]
	tree *AVLTree[K, V]
}

func (it Iterator[K, V]) Value() V {
	return it.n.value
}

func (it Iterator[K, V]) Key() K {
	return it.n.key
}

func (it Iterator[K, V]) End() bool {
	return it.n == nil
}

// Prev returns the entry with the next smaller key.
func (it Iterator[K, V]) Prev() Iterator[K, V] {
	if it.n == nil {
		return it
	}
	it.tree.lock.RLock()
	defer it.tree.lock.RUnlock()
	return Iterator[K, V]{n: below(it.tree.root, it.n.key), tree: it.tree}
}

// Next returns the entry with the next larger key.
func (it Iterator[K, V]) Next() Iterator[K, V] {
	if it.n == nil {
		return it
	}
	it.tree.lock.RLock()
	defer it.tree.lock.RUnlock()
	return Iterator[K, V]{n: above(it.tree.root, it.n.key), tree: it.tree}
}

// AVLTree is a self-balancing ordered map, safe for concurrent use.
type AVLTree[K constraints.Ordered, V any] struct {
	root *node[K, V]
	size int
	lock sync.RWMutex
}

func (t *AVLTree[K, V]) iter(n *node[K, V]) Iterator[K, V] {
	return Iterator[K, V]{n: n, tree: t}
}

// Insert stores value under key, replacing any previous value.
func (t *AVLTree[K, V]) Insert(key K, value V) {
	t.lock.Lock()
	defer t.lock.Unlock()
	var added bool
	t.root, added = insert(t.root, key, value)
	if added {
		t.size++
	}
}

func height[K constraints.Ordered, V any](n *node[K, V]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node[K, V]) update() {
	n.height = 1 + max(height(n.left), height(n.right))
}

func (n *node[K, V]) balance() int {
	return height(n.left) - height(n.right)
}

func rotateRight[K constraints.Ordered, V any](y *node[K, V]) *node[K, V] {
	x := y.left
	y.left = x.right
	x.right = y
	y.update()
	x.update()
	return x
}

func rotateLeft[K constraints.Ordered, V any](x *node[K, V]) *node[K, V] {
	y := x.right
	x.right = y.left
	y.left = x
	x.update()
	y.update()
	return y
}

func rebalance[K constraints.Ordered, V any](n *node[K, V]) *node[K, V] {
	n.update()
	switch b := n.balance(); {
	case b > 1:
		if n.left.balance() < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case b < -1:
		if n.right.balance() > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

// internal function to find the correct place for a node in a tree
func insert[K constraints.Ordered, V any](n *node[K, V], key K, value V) (*node[K, V], bool) {
	if n == nil {
		return &node[K, V]{key: key, value: value, height: 1}, true
	}
	var added bool
	switch {
	case key < n.key:
		n.left, added = insert(n.left, key, value)
	case key > n.key:
		n.right, added = insert(n.right, key, value)
	default:
		n.value = value
		return n, false
	}
	return rebalance(n), added
}

// Remove deletes key from the tree. It reports whether the key was present.
func (t *AVLTree[K, V]) Remove(key K) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	var removed bool
	t.root, removed = remove(t.root, key)
	if removed {
		t.size--
	}
	return removed
}

func remove[K constraints.Ordered, V any](n *node[K, V], key K) (*node[K, V], bool) {
	if n == nil {
		return nil, false
	}
	var removed bool
	switch {
	case key < n.key:
		n.left, removed = remove(n.left, key)
	case key > n.key:
		n.right, removed = remove(n.right, key)
	default:
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		leftmostrightside := n.right
		for leftmostrightside.left != nil {
			leftmostrightside = leftmostrightside.left
		}
		n.key, n.value = leftmostrightside.key, leftmostrightside.value
		n.right, _ = remove(n.right, leftmostrightside.key)
		removed = true
	}
	return rebalance(n), removed
}

// Size returns the number of entries.
func (t *AVLTree[K, V]) Size() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.size
}

// InOrderTraverse visits all nodes in key order until f returns false.
func (t *AVLTree[K, V]) InOrderTraverse(f func(K, V) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	inOrderTraverse(t.root, f)
}

func inOrderTraverse[K constraints.Ordered, V any](n *node[K, V], f func(K, V) bool) bool {
	if n == nil {
		return true
	}
	return inOrderTraverse(n.left, f) && f(n.key, n.value) && inOrderTraverse(n.right, f)
}

// PreOrderTraverse visits all nodes with pre-order traversing
func (t *AVLTree[K, V]) PreOrderTraverse(f func(K, V)) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	preOrderTraverse(t.root, f)
}

func preOrderTraverse[K constraints.Ordered, V any](n *node[K, V], f func(K, V)) {
	if n != nil {
		f(n.key, n.value)
		preOrderTraverse(n.left, f)
		preOrderTraverse(n.right, f)
	}
}

// Min returns the entry with the smallest key.
func (t *AVLTree[K, V]) Min() Iterator[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	n := t.root
	for n != nil && n.left != nil {
		n = n.left
	}
	return t.iter(n)
}

// Max returns the entry with the largest key.
func (t *AVLTree[K, V]) Max() Iterator[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	n := t.root
	for n != nil && n.right != nil {
		n = n.right
	}
	return t.iter(n)
}

// Search returns the entry stored under key, or an end iterator.
func (t *AVLTree[K, V]) Search(key K) Iterator[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	n := t.root
	for n != nil && n.key != key {
		if key < n.key {
			n = n.left
		} else {
			n = n.right
		}
	}
	return t.iter(n)
}

// LowerBound returns the first entry whose key is not less than key.
func (t *AVLTree[K, V]) LowerBound(key K) Iterator[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.iter(ceil(t.root, key))
}

// FloorCeil returns the last entry at or below key and the first entry at or
// above it. Both are the same entry when key is present.
func (t *AVLTree[K, V]) FloorCeil(key K) (Iterator[K, V], Iterator[K, V]) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.iter(floor(t.root, key)), t.iter(ceil(t.root, key))
}

func ceil[K constraints.Ordered, V any](n *node[K, V], key K) *node[K, V] {
	var best *node[K, V]
	for n != nil {
		if n.key == key {
			return n
		}
		if key < n.key {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}

func floor[K constraints.Ordered, V any](n *node[K, V], key K) *node[K, V] {
	var best *node[K, V]
	for n != nil {
		if n.key == key {
			return n
		}
		if key > n.key {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	return best
}

// above finds the first node strictly greater than key.
func above[K constraints.Ordered, V any](n *node[K, V], key K) *node[K, V] {
	var best *node[K, V]
	for n != nil {
		if key < n.key {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}

// below finds the last node strictly less than key.
func below[K constraints.Ordered, V any](n *node[K, V], key K) *node[K, V] {
	var best *node[K, V]
	for n != nil {
		if key > n.key {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	return best
}

// String returns a sideways drawing of the tree, smallest key on top.
func (t *AVLTree[K, V]) String() string {
	t.lock.RLock()
	defer t.lock.RUnlock()
	var sb strings.Builder
	sb.WriteString("------------------------------------------------\n")
	stringify(&sb, t.root, 0)
	sb.WriteString("------------------------------------------------\n")
	return sb.String()
}

// internal recursive function to print a tree
func stringify[K constraints.Ordered, V any](sb *strings.Builder, n *node[K, V], level int) {
	if n != nil {
		stringify(sb, n.left, level+1)
		fmt.Fprintf(sb, "%s---[ %v\n", strings.Repeat("       ", level), n.key)
		stringify(sb, n.right, level+1)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Package index provides an identifier-keyed lookup table used to resolve
// reply references without walking the whole thread forest.
package index

const none = -1

type entry[V any] struct {
	key         string
	val         V
	left, right int
}

// Tree is an unbalanced binary search tree keyed by message id. Entries are
// stored in an arena and linked by index; the first value inserted for a key
// is kept.
type Tree[V any] struct {
	entries []entry[V]
	root    int
}

// New returns an empty tree.
func New[V any]() *Tree[V] {
	return &Tree[V]{root: none}
}

// Len returns the number of distinct keys.
func (t *Tree[V]) Len() int {
	return len(t.entries)
}

// Insert adds key with val. If key is already present the call is ignored.
func (t *Tree[V]) Insert(key string, val V) {
	parent, left := none, false
	for i := t.root; i != none; {
		e := t.entries[i]
		switch {
		case key < e.key:
			parent, left, i = i, true, e.left
		case key > e.key:
			parent, left, i = i, false, e.right
		default:
			return
		}
	}
	t.entries = append(t.entries, entry[V]{key: key, val: val, left: none, right: none})
	at := len(t.entries) - 1
	switch {
	case parent == none:
		t.root = at
	case left:
		t.entries[parent].left = at
	default:
		t.entries[parent].right = at
	}
}

// Find returns the value stored for key.
func (t *Tree[V]) Find(key string) (V, bool) {
	i := t.root
	for i != none {
		e := t.entries[i]
		switch {
		case key < e.key:
			i = e.left
		case key > e.key:
			i = e.right
		default:
			return e.val, true
		}
	}
	var zero V
	return zero, false
}

// Walk calls fn for every key in ascending order. It stops early when fn
// returns false.
func (t *Tree[V]) Walk(fn func(key string, val V) bool) {
	var stack []int
	i := t.root
	for i != none || len(stack) > 0 {
		for i != none {
			stack = append(stack, i)
			i = t.entries[i].left
		}
		i = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		e := t.entries[i]
		if !fn(e.key, e.val) {
			return
		}
		i = e.right
	}
}

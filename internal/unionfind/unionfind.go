// Package unionfind implements a disjoint-set forest over dense integer keys with
// union by rank, path compression and nested snapshots backed by an undo log.
//
// It is not safe for concurrent use.
package unionfind

import (
	"fmt"

	"github.com/cottand/ilesolve/util"
)

// Key is a dense index handed out by Table.NewKey
type Key interface {
	~uint32
}

// MergeFunc combines the values of two sets being joined.
// It must be symmetric; an error aborts the union and leaves both sets untouched.
type MergeFunc[V any] func(a, b V) (V, error)

type node[K Key, V any] struct {
	parent K
	rank   uint32
	value  V
}

type undoKind uint8

const (
	undoNewElem undoKind = iota
	undoSetElem
)

type undoEntry[K Key, V any] struct {
	kind  undoKind
	index K
	old   node[K, V]
}

type Table[K Key, V any] struct {
	nodes []node[K, V]
	// log only records while at least one snapshot is open
	log   util.Stack[undoEntry[K, V]]
	open  int
	merge MergeFunc[V]
}

// Snapshot marks a point a Table can be rolled back to.
// Snapshots must be resolved (committed or rolled back) in LIFO order, exactly once.
type Snapshot[K Key, V any] struct {
	logLength int
	depth     int
}

func New[K Key, V any](merge MergeFunc[V]) *Table[K, V] {
	return &Table[K, V]{merge: merge}
}

func (t *Table[K, V]) Len() int {
	return len(t.nodes)
}

func (t *Table[K, V]) NewKey(value V) K {
	key := K(len(t.nodes))
	t.nodes = append(t.nodes, node[K, V]{parent: key, value: value})
	if t.open > 0 {
		t.log.Push(undoEntry[K, V]{kind: undoNewElem, index: key})
	}
	return key
}

func (t *Table[K, V]) checkKey(k K) {
	if int(k) >= len(t.nodes) {
		panic(fmt.Sprintf("unionfind: key %d out of range (%d keys)", k, len(t.nodes)))
	}
}

func (t *Table[K, V]) update(k K, f func(n *node[K, V])) {
	if t.open > 0 {
		t.log.Push(undoEntry[K, V]{kind: undoSetElem, index: k, old: t.nodes[k]})
	}
	f(&t.nodes[k])
}

// Find returns the representative of k's set
func (t *Table[K, V]) Find(k K) K {
	t.checkKey(k)
	parent := t.nodes[k].parent
	if parent == k {
		return k
	}
	root := t.Find(parent)
	if root != parent {
		t.update(k, func(n *node[K, V]) { n.parent = root })
	}
	return root
}

// ProbeValue returns the value of k's set
func (t *Table[K, V]) ProbeValue(k K) V {
	return t.nodes[t.Find(k)].value
}

// UnifyVarVar joins the sets of a and b, merging their values
func (t *Table[K, V]) UnifyVarVar(a, b K) error {
	rootA, rootB := t.Find(a), t.Find(b)
	if rootA == rootB {
		return nil
	}
	merged, err := t.merge(t.nodes[rootA].value, t.nodes[rootB].value)
	if err != nil {
		return err
	}
	nodeA, nodeB := t.nodes[rootA], t.nodes[rootB]
	root, child := rootA, rootB
	if nodeA.rank < nodeB.rank {
		root, child = rootB, rootA
	}
	t.update(child, func(n *node[K, V]) { n.parent = root })
	t.update(root, func(n *node[K, V]) {
		n.value = merged
		if nodeA.rank == nodeB.rank {
			n.rank++
		}
	})
	return nil
}

// UnifyVarValue merges value into the value of k's set
func (t *Table[K, V]) UnifyVarValue(k K, value V) error {
	root := t.Find(k)
	merged, err := t.merge(t.nodes[root].value, value)
	if err != nil {
		return err
	}
	t.update(root, func(n *node[K, V]) { n.value = merged })
	return nil
}

func (t *Table[K, V]) Snapshot() Snapshot[K, V] {
	t.open++
	return Snapshot[K, V]{logLength: t.log.Len(), depth: t.open}
}

func (t *Table[K, V]) InSnapshot() bool {
	return t.open > 0
}

func (t *Table[K, V]) checkSnapshot(s Snapshot[K, V]) {
	if s.depth != t.open || s.logLength > t.log.Len() {
		panic(fmt.Sprintf("unionfind: snapshot at depth %d resolved out of order (%d open)", s.depth, t.open))
	}
}

// RollbackTo undoes every key creation and union since s was taken
func (t *Table[K, V]) RollbackTo(s Snapshot[K, V]) {
	t.checkSnapshot(s)
	for t.log.Len() > s.logLength {
		entry, _ := t.log.Pop()
		switch entry.kind {
		case undoNewElem:
			if int(entry.index) != len(t.nodes)-1 {
				panic("unionfind: undo log out of sync with keys")
			}
			t.nodes = t.nodes[:entry.index]
		case undoSetElem:
			t.nodes[entry.index] = entry.old
		}
	}
	t.open--
}

// Commit keeps every change made since s, giving up the ability to roll back to it
func (t *Table[K, V]) Commit(s Snapshot[K, V]) {
	t.checkSnapshot(s)
	t.open--
	if t.open == 0 {
		t.log.Clear()
	}
}

// Clone returns an independent copy of t. It panics if a snapshot is open.
func (t *Table[K, V]) Clone() *Table[K, V] {
	if t.open > 0 {
		panic("unionfind: cannot clone a table with open snapshots")
	}
	nodes := make([]node[K, V], len(t.nodes))
	copy(nodes, t.nodes)
	return &Table[K, V]{nodes: nodes, merge: t.merge}
}

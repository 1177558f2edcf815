package bptree

import "fmt"

/*
arena owns every node of a tree. Nodes refer to each other through nodeIDs, so parent
entries and sibling links never own memory and teardown is a walk over handles.
Slot 0 is reserved for nilNode. Released slots are kept on a free list and reused.
*/
type arena[K, V any] struct {
	nodes []*node[K, V]
	free  []nodeID
}

func newArena[K, V any]() *arena[K, V] {
	return &arena[K, V]{nodes: []*node[K, V]{nil}}
}

func (a *arena[K, V]) alloc(leaf bool, max int) (nodeID, *node[K, V]) {
	n := newNode[K, V](leaf, max)
	if last := len(a.free) - 1; last >= 0 {
		id := a.free[last]
		a.free = a.free[:last]
		a.nodes[id] = n
		return id, n
	}
	a.nodes = append(a.nodes, n)
	return nodeID(len(a.nodes) - 1), n
}

func (a *arena[K, V]) get(id nodeID) *node[K, V] {
	if id <= nilNode || int(id) >= len(a.nodes) || a.nodes[id] == nil {
		panic(fmt.Sprintf("bptree: dangling node handle %d", id))
	}
	return a.nodes[id]
}

func (a *arena[K, V]) release(id nodeID) {
	if id <= nilNode || int(id) >= len(a.nodes) || a.nodes[id] == nil {
		panic(fmt.Sprintf("bptree: node %d released twice", id))
	}
	a.nodes[id] = nil
	a.free = append(a.free, id)
}

// live is the number of allocated, unreleased nodes.
func (a *arena[K, V]) live() int {
	return len(a.nodes) - 1 - len(a.free)
}

func (a *arena[K, V]) reset() {
	clear(a.nodes)
	a.nodes = a.nodes[:1]
	a.free = a.free[:0]
}

package bptree

import "go.uber.org/zap"

// ItemIterator is called by Ascend for every key in order. Returning false stops the walk.
type ItemIterator[K, V any] func(key K, payload *V) bool

// leftmost follows the first child of every level down from id and returns the leaf reached.
func (t *Tree[K, V]) leftmost(id nodeID) nodeID {
	for n := t.nodes.get(id); !n.leaf; n = t.nodes.get(id) {
		id = n.child(0)
	}
	return id
}

// Ascend walks the leaf level through its sibling chain, calling fn for every key in order.
func (t *Tree[K, V]) Ascend(fn ItemIterator[K, V]) {
	for id := t.leftmost(t.root); id != nilNode; {
		n := t.nodes.get(id)
		for _, item := range n.items {
			if !fn(item.key, item.payload) {
				return
			}
		}
		id = n.right
	}
}

/*
Clear tears the tree down and leaves it empty. It returns the number of nodes released.

Every node is reachable twice, from its parent's entries and from its left sibling, so the
walk never follows both: it remembers the first child of each level's leftmost node, releases
the whole level through the sibling chain, then moves down to the remembered node.
Payloads are not touched.
*/
func (t *Tree[K, V]) Clear() int {
	released := 0
	for first := t.root; first != nilNode; {
		below := nilNode
		if n := t.nodes.get(first); !n.leaf {
			below = n.child(0)
		}
		for id := first; id != nilNode; {
			next := t.nodes.get(id).right
			t.nodes.release(id)
			released++
			id = next
		}
		first = below
	}
	if live := t.nodes.live(); live != 0 {
		panic("bptree: teardown left unreachable nodes behind")
	}

	t.logger.Debug("tree cleared", zap.Int("nodes", released), zap.Int("keys", t.count))
	t.nodes.reset()
	t.root, _ = t.nodes.alloc(true, t.maxEntries)
	t.depth = 0
	t.count = 0
	return released
}

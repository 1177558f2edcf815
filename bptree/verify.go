package bptree

import "github.com/pkg/errors"

// bound is an optional key limit used while checking separators.
type bound[K any] struct {
	key K
	set bool
}

/*
Verify walks the whole tree and checks its structural invariants:
  - keys are strictly ascending inside every node and respect the separators above them
  - no node is over capacity and every non-root node holds at least the minimum
  - adjacent routing entries share their common child
  - all leaves sit at Depth()
  - the sibling chain of every level lists exactly that level's nodes in order and ends
  - Len() matches the number of keys in the leaves and no node is leaked
It returns an error describing the first violation found.
*/
func (t *Tree[K, V]) Verify() error {
	v := &verifier[K, V]{t: t, seen: make(map[nodeID]bool)}
	if err := v.walk(t.root, 0, bound[K]{}, bound[K]{}); err != nil {
		return err
	}
	if len(v.levels) != t.depth+1 {
		return errors.Errorf("tree has %d levels, depth is %d", len(v.levels), t.depth)
	}
	for level, ids := range v.levels {
		if err := v.chain(level, ids); err != nil {
			return err
		}
	}
	if v.keys != t.count {
		return errors.Errorf("leaves hold %d keys, Len is %d", v.keys, t.count)
	}
	if live := t.nodes.live(); live != len(v.seen) {
		return errors.Errorf("%d nodes allocated, %d reachable", live, len(v.seen))
	}
	return nil
}

type verifier[K, V any] struct {
	t      *Tree[K, V]
	seen   map[nodeID]bool
	levels [][]nodeID
	keys   int
}

func (v *verifier[K, V]) alive(id nodeID) bool {
	nodes := v.t.nodes.nodes
	return id > nilNode && int(id) < len(nodes) && nodes[id] != nil
}

func (v *verifier[K, V]) inBounds(key K, lo, hi bound[K]) bool {
	if lo.set && v.t.cmp(key, lo.key) < 0 {
		return false
	}
	if hi.set && v.t.cmp(key, hi.key) >= 0 {
		return false
	}
	return true
}

func (v *verifier[K, V]) walk(id nodeID, level int, lo, hi bound[K]) error {
	t := v.t
	if !v.alive(id) {
		return errors.Errorf("level %d: dangling node handle %d", level, id)
	}
	if v.seen[id] {
		return errors.Errorf("node %d reachable from two parents", id)
	}
	v.seen[id] = true
	if len(v.levels) <= level {
		v.levels = append(v.levels, nil)
	}
	v.levels[level] = append(v.levels[level], id)

	n := t.nodes.get(id)
	if n.leaf != (level == t.depth) {
		return errors.Errorf("node %d: leaf=%v at level %d of depth %d", id, n.leaf, level, t.depth)
	}
	if n.len() > t.maxEntries {
		return errors.Errorf("node %d holds %d entries, capacity %d", id, n.len(), t.maxEntries)
	}
	if id != t.root && n.len() < t.minEntries {
		return errors.Errorf("node %d holds %d entries, minimum %d", id, n.len(), t.minEntries)
	}
	if !n.leaf && n.len() == 0 {
		return errors.Errorf("internal node %d is empty", id)
	}

	if n.leaf {
		for i, item := range n.items {
			if i > 0 && t.cmp(n.items[i-1].key, item.key) >= 0 {
				return errors.Errorf("leaf %d: keys out of order at %d", id, i)
			}
			if !v.inBounds(item.key, lo, hi) {
				return errors.Errorf("leaf %d: key at %d outside its separators", id, i)
			}
		}
		v.keys += len(n.items)
		return nil
	}

	for i, e := range n.routes {
		if i > 0 {
			if t.cmp(n.routes[i-1].key, e.key) >= 0 {
				return errors.Errorf("internal node %d: keys out of order at %d", id, i)
			}
			if n.routes[i-1].right != e.left {
				return errors.Errorf("internal node %d: entries %d and %d do not share a child", id, i-1, i)
			}
		}
		if !v.inBounds(e.key, lo, hi) {
			return errors.Errorf("internal node %d: key at %d outside its separators", id, i)
		}
	}
	for i := 0; i <= len(n.routes); i++ {
		clo, chi := lo, hi
		if i > 0 {
			clo = bound[K]{key: n.routes[i-1].key, set: true}
		}
		if i < len(n.routes) {
			chi = bound[K]{key: n.routes[i].key, set: true}
		}
		if err := v.walk(n.child(i), level+1, clo, chi); err != nil {
			return err
		}
	}
	return nil
}

// chain follows the right links from the first node of a level and expects to meet ids in order.
func (v *verifier[K, V]) chain(level int, ids []nodeID) error {
	id := ids[0]
	for i, want := range ids {
		if id != want {
			return errors.Errorf("level %d: sibling %d is node %d, want %d", level, i, id, want)
		}
		id = v.t.nodes.get(id).right
	}
	if id != nilNode {
		return errors.Errorf("level %d: chain continues past its last node to %d", level, id)
	}
	return nil
}

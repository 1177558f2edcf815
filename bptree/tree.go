package bptree

import "go.uber.org/zap"

// Retrieve returns the payload stored under key. Searching the entire tree from the root.
func (t *Tree[K, V]) Retrieve(key K) (*V, bool) {
	n := t.nodes.get(t.root)
	for !n.leaf {
		next := n.next(key, t.cmp)
		if next == nilNode {
			return nil, false
		}
		n = t.nodes.get(next)
	}
	return n.retrieve(key, t.cmp)
}

/*
Insert stores payload under key and reports whether the key was new.
If the key already exists its payload is replaced and Insert returns false.
Insert never fails: a full node is split and, when the split reaches the root,
a new root is created above it.
*/
func (t *Tree[K, V]) Insert(key K, payload *V) bool {
	up, split, added := t.insert(t.root, leafEntry[K, V]{key: key, payload: payload})
	if split {
		t.promoteRoot(up)
	}
	if added {
		t.count++
	}
	return added
}

/*
Create a new internal root holding only the promoted entry.
The old root becomes its left child and the node split off the old root its right child.
*/
func (t *Tree[K, V]) promoteRoot(up routingEntry[K]) {
	id, root := t.nodes.alloc(false, t.maxEntries)
	root.insertRoute(up, t.cmp)
	t.root = id
	t.depth++
	t.logger.Debug("root promoted", zap.Int("depth", t.depth), zap.Int("root", int(id)))
}

/*
insert descends from node id to the leaf responsible for item.key.
If a split happened at this level the returned entry is the promoted separator the
caller has to place, and split is true. added is false when an existing key was overwritten.
Nodes are split before they overflow, so no node is ever observed over capacity.
*/
func (t *Tree[K, V]) insert(id nodeID, item leafEntry[K, V]) (up routingEntry[K], split bool, added bool) {
	n := t.nodes.get(id)

	// We reached the leaf: overwrite, insert, or split and insert.
	if n.leaf {
		pos, found := n.search(item.key, t.cmp)
		if found {
			n.items[pos].payload = item.payload
			return up, false, false
		}
		if n.isFull() {
			return t.splitLeaf(id, item), true, true
		}
		n.insertItemAt(pos, item)
		return up, false, true
	}

	up, split, added = t.insert(n.next(item.key, t.cmp), item)
	if !split {
		return up, false, added
	}

	// The child split. Place its separator here, splitting this node too if it has no room.
	if n.isFull() {
		return t.splitInternal(id, up), true, added
	}
	n.insertRoute(up, t.cmp)
	return routingEntry[K]{}, false, added
}

// sibling allocates the node that takes the upper half of id and splices it in right after id.
func (t *Tree[K, V]) sibling(id nodeID) (nodeID, *node[K, V]) {
	n := t.nodes.get(id)
	rid, r := t.nodes.alloc(n.leaf, t.maxEntries)
	r.right = n.right
	n.right = rid
	return rid, r
}

/*
splitLeaf moves items [half, max) of the full leaf id to a new right sibling and then inserts
item into whichever half it belongs to. The middle key is promoted but stays in the right leaf.
*/
func (t *Tree[K, V]) splitLeaf(id nodeID, item leafEntry[K, V]) routingEntry[K] {
	n := t.nodes.get(id)
	half := t.maxEntries / 2
	mid := n.items[half].key

	rid, r := t.sibling(id)
	r.items = append(r.items, n.items[half:]...)
	clear(n.items[half:])
	n.items = n.items[:half]

	if t.cmp(item.key, mid) > 0 {
		r.insertItem(item, t.cmp)
	} else {
		n.insertItem(item, t.cmp)
	}
	return routingEntry[K]{left: id, key: mid, right: rid}
}

/*
splitInternal moves entries (half, max) of the full internal node id to a new right sibling.
The middle entry moves up and is kept by neither half. pending, the separator coming from
the split below, is then inserted into the half its key belongs to.
*/
func (t *Tree[K, V]) splitInternal(id nodeID, pending routingEntry[K]) routingEntry[K] {
	n := t.nodes.get(id)
	half := t.maxEntries / 2
	mid := n.routes[half].key

	rid, r := t.sibling(id)
	r.routes = append(r.routes, n.routes[half+1:]...)
	clear(n.routes[half:])
	n.routes = n.routes[:half]

	if t.cmp(pending.key, mid) > 0 {
		r.insertRoute(pending, t.cmp)
	} else {
		n.insertRoute(pending, t.cmp)
	}
	return routingEntry[K]{left: id, key: mid, right: rid}
}

package bptree

import "go.uber.org/zap"

/*
Delete removes key and returns the payload that was stored under it.

Rebalancing is done on the way down: before descending into a child that holds only
minEntries entries, the parent tops it up by borrowing from a sibling or merging it with one.
The leaf the key is removed from therefore always stays at or above minEntries, and nothing
has to be propagated back up. A separator equal to a deleted key may stay in an internal
node; it still splits its subtrees correctly.
*/
func (t *Tree[K, V]) Delete(key K) (*V, bool) {
	id := t.root
	for {
		n := t.nodes.get(id)
		if n.leaf {
			pos, found := n.search(key, t.cmp)
			if !found {
				return nil, false
			}
			item := n.removeItemAt(pos)
			t.count--
			return item.payload, true
		}

		i := n.childIndex(key, t.cmp)
		child := n.child(i)
		if t.nodes.get(child).len() > t.minEntries {
			id = child
			continue
		}
		// the child was topped up, route from the returned node again
		id = t.fill(id, i)
	}
}

/*
fill brings child i of internal node pid above minEntries.
It returns the node routing has to resume from, which is pid unless the merge emptied
the root and the tree shrank by one level.
*/
func (t *Tree[K, V]) fill(pid nodeID, i int) nodeID {
	p := t.nodes.get(pid)

	if i > 0 && t.nodes.get(p.child(i-1)).len() > t.minEntries {
		t.borrowFromLeft(p, i)
		return pid
	}
	if i < len(p.routes) && t.nodes.get(p.child(i+1)).len() > t.minEntries {
		t.borrowFromRight(p, i)
		return pid
	}
	if i > 0 {
		return t.merge(pid, i-1)
	}
	return t.merge(pid, i)
}

// borrowFromLeft moves the last entry of child i-1 to the front of child i.
func (t *Tree[K, V]) borrowFromLeft(p *node[K, V], i int) {
	sep := &p.routes[i-1]
	left, child := t.nodes.get(sep.left), t.nodes.get(sep.right)

	if child.leaf {
		moved := left.removeItemAt(len(left.items) - 1)
		child.insertItemAt(0, moved)
		sep.key = moved.key
		return
	}

	// rotate through the separator: it comes down in front of child, left's last key goes up.
	last := left.routes[len(left.routes)-1]
	left.routes = left.routes[:len(left.routes)-1]
	child.routes = append(child.routes, routingEntry[K]{})
	copy(child.routes[1:], child.routes)
	child.routes[0] = routingEntry[K]{left: last.right, key: sep.key, right: child.routes[1].left}
	sep.key = last.key
}

// borrowFromRight moves the first entry of child i+1 to the end of child i.
func (t *Tree[K, V]) borrowFromRight(p *node[K, V], i int) {
	sep := &p.routes[i]
	child, right := t.nodes.get(sep.left), t.nodes.get(sep.right)

	if child.leaf {
		moved := right.removeItemAt(0)
		child.insertItemAt(len(child.items), moved)
		sep.key = right.items[0].key
		return
	}

	first := right.routes[0]
	tail := child.routes[len(child.routes)-1].right
	child.routes = append(child.routes, routingEntry[K]{left: tail, key: sep.key, right: first.left})
	copy(right.routes, right.routes[1:])
	right.routes = right.routes[:len(right.routes)-1]
	sep.key = first.key
}

/*
merge folds the right child of separator s into its left child and drops the separator.
For internal children the separator comes down between the two halves.
*/
func (t *Tree[K, V]) merge(pid nodeID, s int) nodeID {
	p := t.nodes.get(pid)
	sep := p.routes[s]
	left, right := t.nodes.get(sep.left), t.nodes.get(sep.right)

	if left.leaf {
		left.items = append(left.items, right.items...)
	} else {
		tail := left.routes[len(left.routes)-1].right
		left.routes = append(left.routes, routingEntry[K]{left: tail, key: sep.key, right: right.routes[0].left})
		left.routes = append(left.routes, right.routes...)
	}
	left.right = right.right
	t.nodes.release(sep.right)

	if pid == t.root && len(p.routes) == 1 {
		t.nodes.release(pid)
		t.root = sep.left
		t.depth--
		t.logger.Debug("root collapsed", zap.Int("depth", t.depth), zap.Int("root", int(t.root)))
		return t.root
	}
	p.removeRouteAt(s, sep.left)
	return pid
}

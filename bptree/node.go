package bptree

// slices are preallocated with capacity max so insertion never has to grow them.
type node[K, V any] struct {
	leaf   bool
	routes []routingEntry[K] // internal nodes
	items  []leafEntry[K, V] // leaf nodes
	right  nodeID            // right sibling on the same level
	max    int
}

func newNode[K, V any](leaf bool, max int) *node[K, V] {
	n := &node[K, V]{leaf: leaf, max: max}
	if leaf {
		n.items = make([]leafEntry[K, V], 0, max)
	} else {
		n.routes = make([]routingEntry[K], 0, max)
	}
	return n
}

func (n *node[K, V]) len() int {
	if n.leaf {
		return len(n.items)
	}
	return len(n.routes)
}

func (n *node[K, V]) isFull() bool {
	return n.len() >= n.max
}

/*
If an item with key k is found in leaf n, return its index i.
Else, return the index j where the key would have resided if it was present in the node.
*/
func (n *node[K, V]) search(key K, cmp func(a, b K) int) (int, bool) {
	low, high := 0, len(n.items)
	var mid int
	for low < high {
		mid = (low + high) / 2
		c := cmp(key, n.items[mid].key)
		switch {
		case c > 0:
			low = mid + 1
		case c < 0:
			high = mid
		default:
			return mid, true
		}
	}
	return low, false
}

// retrieve is only meaningful on leaves.
func (n *node[K, V]) retrieve(key K, cmp func(a, b K) int) (*V, bool) {
	pos, found := n.search(key, cmp)
	if !found {
		return nil, false
	}
	return n.items[pos].payload, true
}

/*
childIndex returns the position of the child a search for key continues in:
the number of routing keys less than or equal to key. An equal key routes right.
*/
func (n *node[K, V]) childIndex(key K, cmp func(a, b K) int) int {
	low, high := 0, len(n.routes)
	for low < high {
		mid := (low + high) / 2
		if cmp(key, n.routes[mid].key) >= 0 {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return low
}

// child returns the i-th child of an internal node, 0 <= i <= len(routes).
func (n *node[K, V]) child(i int) nodeID {
	if i == 0 {
		return n.routes[0].left
	}
	return n.routes[i-1].right
}

// next returns the child to descend into for key, or nilNode for an empty node.
func (n *node[K, V]) next(key K, cmp func(a, b K) int) nodeID {
	if n.leaf {
		panic("bptree: next called on a leaf")
	}
	if len(n.routes) == 0 {
		return nilNode
	}
	return n.child(n.childIndex(key, cmp))
}

// insertItemAt places item at pos, shifting the following items right.
func (n *node[K, V]) insertItemAt(pos int, item leafEntry[K, V]) {
	if n.isFull() {
		panic("bptree: insert into a full leaf")
	}
	n.items = append(n.items, leafEntry[K, V]{})
	copy(n.items[pos+1:], n.items[pos:])
	n.items[pos] = item
}

func (n *node[K, V]) insertItem(item leafEntry[K, V], cmp func(a, b K) int) {
	pos, _ := n.search(item.key, cmp)
	n.insertItemAt(pos, item)
}

func (n *node[K, V]) removeItemAt(pos int) leafEntry[K, V] {
	item := n.items[pos]
	copy(n.items[pos:], n.items[pos+1:])
	n.items[len(n.items)-1] = leafEntry[K, V]{}
	n.items = n.items[:len(n.items)-1]
	return item
}

/*
insertRoute places e before the first entry whose key is >= e.key and then repairs the
links on both sides of it, so the neighbours keep sharing children with e.
*/
func (n *node[K, V]) insertRoute(e routingEntry[K], cmp func(a, b K) int) {
	if n.isFull() {
		panic("bptree: insert into a full internal node")
	}
	pos := 0
	for pos < len(n.routes) && cmp(e.key, n.routes[pos].key) > 0 {
		pos++
	}
	n.routes = append(n.routes, routingEntry[K]{})
	copy(n.routes[pos+1:], n.routes[pos:])
	n.routes[pos] = e

	if pos > 0 {
		n.routes[pos-1].right = e.left
	}
	if pos < len(n.routes)-1 {
		n.routes[pos+1].left = e.right
	}
}

// removeRouteAt drops the entry at pos; keep becomes the child shared by its former neighbours.
func (n *node[K, V]) removeRouteAt(pos int, keep nodeID) {
	copy(n.routes[pos:], n.routes[pos+1:])
	n.routes = n.routes[:len(n.routes)-1]

	if pos < len(n.routes) {
		n.routes[pos].left = keep
	}
	if pos > 0 {
		n.routes[pos-1].right = keep
	}
}

package bptree

import "unsafe"

// nodeID is a handle into the tree's node arena. The zero value means "no node".
type nodeID int

const nilNode nodeID = 0

/*
routingEntry lives in internal nodes only.
Every key reachable through left is strictly less than key, every key reachable
through right is greater or equal. Adjacent entries share a child: routes[i].right
and routes[i+1].left always name the same node.
*/
type routingEntry[K any] struct {
	left  nodeID
	key   K
	right nodeID
}

// leafEntry lives in leaf nodes only. payload is owned by the caller.
type leafEntry[K, V any] struct {
	key     K
	payload *V
}

// slot has the footprint of one (left, key, payload, right) entry and is only used to size nodes.
type slot[K, V any] struct {
	left    nodeID
	key     K
	payload *V
	right   nodeID
}

func entrySize[K, V any]() int {
	return int(unsafe.Sizeof(slot[K, V]{}))
}

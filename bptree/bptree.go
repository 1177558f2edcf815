/*
Package bptree is an in-memory B+ tree mapping ordered keys to caller-owned payload pointers.

	Tree
	 ├── Internal node (routing entries: left child | key | right child)
	 │      └── ... more internal levels
	 │             └── Leaf nodes (key | payload), linked left to right

All payloads live in leaves. Every level is chained through right-sibling links, so the
leaf level can be walked in key order without going back through the parents.
A Tree is not safe for concurrent use.
*/
package bptree

import (
	"cmp"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultNodeSize is the byte budget of a node when none is configured.
	DefaultNodeSize = 4096

	// MinEntries is the smallest capacity a node can have and still split into two
	// non-empty halves plus a promoted key.
	MinEntries = 3
)

// ErrCapacityTooSmall is returned by the constructors when a node cannot hold MinEntries entries.
var ErrCapacityTooSmall = errors.New("bptree: node capacity too small")

// Config controls the shape of a Tree.
type Config struct {
	// NodeSize is the byte budget of a node. The node capacity is NodeSize divided by
	// the size of one entry.
	NodeSize int
	// MaxEntries overrides the capacity derived from NodeSize when non-zero.
	MaxEntries int
	// Logger receives structural events at debug level. Defaults to a no-op logger.
	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{NodeSize: DefaultNodeSize}
}

// capacity returns the max number of entries per node for the given entry size.
func (c Config) capacity(entrySize int) (int, error) {
	if c.MaxEntries < 0 {
		return 0, errors.Errorf("bptree: negative max entries %d", c.MaxEntries)
	}
	if c.MaxEntries > 0 {
		if c.MaxEntries < MinEntries {
			return 0, errors.Wrapf(ErrCapacityTooSmall, "max entries %d, need at least %d", c.MaxEntries, MinEntries)
		}
		return c.MaxEntries, nil
	}
	size := c.NodeSize
	if size == 0 {
		size = DefaultNodeSize
	}
	if size < 0 {
		return 0, errors.Errorf("bptree: negative node size %d", size)
	}
	max := size / entrySize
	if max < MinEntries {
		return 0, errors.Wrapf(ErrCapacityTooSmall,
			"node size %d holds %d entries of %d bytes, need at least %d", size, max, entrySize, MinEntries)
	}
	return max, nil
}

/*
Tree owns the root node and every node below it through its arena.
The tree never copies or frees payloads, it only stores the pointers it is given.
*/
type Tree[K, V any] struct {
	root       nodeID
	nodes      *arena[K, V]
	cmp        func(a, b K) int
	maxEntries int
	minEntries int // lower bound for every non-root node
	depth      int
	count      int
	logger     *zap.Logger
}

// New creates an empty tree for keys with a natural order.
func New[K cmp.Ordered, V any](cfg Config) (*Tree[K, V], error) {
	return NewWithCompare[K, V](cfg, cmp.Compare[K])
}

// NewWithCompare creates an empty tree ordered by compare, which must return a negative
// number, zero or a positive number when a < b, a == b or a > b.
func NewWithCompare[K, V any](cfg Config, compare func(a, b K) int) (*Tree[K, V], error) {
	if compare == nil {
		return nil, errors.New("bptree: nil compare function")
	}
	max, err := cfg.capacity(entrySize[K, V]())
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tree[K, V]{
		nodes:      newArena[K, V](),
		cmp:        compare,
		maxEntries: max,
		minEntries: (max - 1) / 2,
		logger:     logger,
	}
	t.root, _ = t.nodes.alloc(true, max)
	return t, nil
}

// Depth is the number of root promotions minus root collapses, 0 for a single leaf.
func (t *Tree[K, V]) Depth() int {
	return t.depth
}

// Len returns the number of keys in the tree.
func (t *Tree[K, V]) Len() int {
	return t.count
}

// MaxEntries returns the capacity of every node.
func (t *Tree[K, V]) MaxEntries() int {
	return t.maxEntries
}

func (t *Tree[K, V]) String() string {
	return fmt.Sprintf("bptree(len=%d depth=%d maxEntries=%d nodes=%d)", t.count, t.depth, t.maxEntries, t.nodes.live())
}

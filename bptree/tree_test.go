package bptree

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestTree(t *testing.T, maxEntries int) *Tree[int, string] {
	t.Helper()
	tree, err := New[int, string](Config{MaxEntries: maxEntries, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return tree
}

func payload(s string) *string {
	return &s
}

func ascendKeys[K, V any](tree *Tree[K, V]) []K {
	var keys []K
	tree.Ascend(func(key K, _ *V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func TestInsertKeepsOrder(t *testing.T) {
	tc := []struct {
		maxEntries int
		depth      int
	}{
		{maxEntries: 4, depth: 0},
		{maxEntries: 3, depth: 1},
	}
	for _, test := range tc {
		tree := newTestTree(t, test.maxEntries)
		for _, k := range []int{5, 3, 8, 1} {
			require.True(t, tree.Insert(k, payload("x")))
		}
		require.Equal(t, []int{1, 3, 5, 8}, ascendKeys(tree))
		require.Equal(t, test.depth, tree.Depth())
		require.Equal(t, 4, tree.Len())
		require.NoError(t, tree.Verify())
	}
}

func TestDescendingInsertGrowsDepth(t *testing.T) {
	const n, c = 1000, 4
	tree := newTestTree(t, c)

	depth := tree.Depth()
	for k := n; k >= 1; k-- {
		tree.Insert(k, payload("x"))
		require.GreaterOrEqual(t, tree.Depth(), depth)
		depth = tree.Depth()
	}
	require.NoError(t, tree.Verify())
	require.GreaterOrEqual(t, depth, 2)

	// a tree of depth d holds at most c*(c+1)^d keys, and split never leaves a leaf
	// with fewer than c/2 keys while internal nodes keep at least two children.
	lower := int(math.Ceil(math.Log(float64(n)/c) / math.Log(c+1)))
	upper := int(math.Floor(math.Log2(float64(n) / (c / 2))))
	require.GreaterOrEqual(t, depth, lower)
	require.LessOrEqual(t, depth, upper)

	// descending keys always land in the leftmost node, so every split leaves a right
	// leaf with c/2 keys and a right internal node with two children.
	require.Equal(t, 7, depth)

	for k := 1; k <= n; k++ {
		_, ok := tree.Retrieve(k)
		require.True(t, ok, "key %d", k)
	}
}

func TestDuplicateKeyOverwrites(t *testing.T) {
	tree := newTestTree(t, 4)
	p, q := payload("P"), payload("Q")

	require.True(t, tree.Insert(42, p))
	require.False(t, tree.Insert(42, q))

	got, ok := tree.Retrieve(42)
	require.True(t, ok)
	require.Same(t, q, got)
	require.Equal(t, 1, tree.Len())
	require.NoError(t, tree.Verify())
}

func TestRetrieveFromEmptyTree(t *testing.T) {
	tree := newTestTree(t, 4)
	got, ok := tree.Retrieve(7)
	require.False(t, ok)
	require.Nil(t, got)
	require.Empty(t, ascendKeys(tree))
	require.NoError(t, tree.Verify())
}

func TestRandomOrderSiblingChain(t *testing.T) {
	const n = 2000
	tree := newTestTree(t, 5)
	for _, k := range rand.New(rand.NewSource(1)).Perm(n) {
		tree.Insert(k, payload("x"))
	}
	require.NoError(t, tree.Verify())

	// walk the leaf chain by hand; more hops than live nodes means a cycle.
	seen := map[int]bool{}
	hops := 0
	for id := tree.leftmost(tree.root); id != nilNode; id = tree.nodes.get(id).right {
		hops++
		require.LessOrEqual(t, hops, tree.nodes.live())
		for _, item := range tree.nodes.get(id).items {
			require.False(t, seen[item.key], "key %d listed twice", item.key)
			seen[item.key] = true
		}
	}
	require.Len(t, seen, n)

	keys := ascendKeys(tree)
	require.Len(t, keys, n)
	require.True(t, sort.IntsAreSorted(keys))
	require.Equal(t, 0, keys[0])
	require.Equal(t, n-1, keys[n-1])
}

func TestRetrieveReturnsInsertedPayloads(t *testing.T) {
	tree := newTestTree(t, 6)
	payloads := map[int]*string{}
	for _, k := range rand.New(rand.NewSource(2)).Perm(500) {
		key := k * 2
		payloads[key] = payload("v")
		tree.Insert(key, payloads[key])
	}

	for key, want := range payloads {
		got, ok := tree.Retrieve(key)
		require.True(t, ok)
		require.Same(t, want, got)

		again, ok := tree.Retrieve(key)
		require.True(t, ok)
		require.Same(t, got, again)
	}
	for key := -1; key < 1001; key += 2 {
		_, ok := tree.Retrieve(key)
		require.False(t, ok, "key %d was never inserted", key)
	}
}

func TestAscendStopsEarly(t *testing.T) {
	tree := newTestTree(t, 3)
	for k := 0; k < 50; k++ {
		tree.Insert(k, payload("x"))
	}
	var got []int
	tree.Ascend(func(key int, _ *string) bool {
		got = append(got, key)
		return len(got) < 10
	})
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestCapacityFromNodeSize(t *testing.T) {
	tree, err := New[int64, string](DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, DefaultNodeSize/entrySize[int64, string](), tree.MaxEntries())

	tree, err = New[int64, string](Config{NodeSize: 1024})
	require.NoError(t, err)
	require.Equal(t, 1024/entrySize[int64, string](), tree.MaxEntries())

	tree, err = New[int64, string](Config{NodeSize: 1024, MaxEntries: 16})
	require.NoError(t, err)
	require.Equal(t, 16, tree.MaxEntries())
}

func TestDegenerateCapacityRejected(t *testing.T) {
	_, err := New[int, string](Config{MaxEntries: 2})
	require.Error(t, err)
	require.Equal(t, ErrCapacityTooSmall, errors.Cause(err))

	_, err = New[int, string](Config{NodeSize: 2 * entrySize[int, string]()})
	require.Error(t, err)
	require.Equal(t, ErrCapacityTooSmall, errors.Cause(err))

	_, err = New[int, string](Config{NodeSize: -1})
	require.Error(t, err)

	_, err = New[int, string](Config{MaxEntries: -4})
	require.Error(t, err)

	_, err = NewWithCompare[int, string](DefaultConfig(), nil)
	require.Error(t, err)

	_, err = New[int, string](Config{MaxEntries: MinEntries})
	require.NoError(t, err)
}

func TestNewWithCompare(t *testing.T) {
	reverse := func(a, b int) int { return b - a }
	tree, err := NewWithCompare[int, string](Config{MaxEntries: 3}, reverse)
	require.NoError(t, err)
	for k := 0; k < 20; k++ {
		tree.Insert(k, payload("x"))
	}
	require.NoError(t, tree.Verify())
	keys := ascendKeys(tree)
	require.Equal(t, 19, keys[0])
	require.Equal(t, 0, keys[19])
}

func TestSplitLeafPromotesMiddle(t *testing.T) {
	tree := newTestTree(t, 4)
	for _, k := range []int{10, 20, 30, 40} {
		tree.Insert(k, payload("x"))
	}
	root := tree.root
	leaf := tree.nodes.get(root)
	require.True(t, leaf.isFull())

	up := tree.splitLeaf(root, leafEntry[int, string]{key: 25, payload: payload("y")})
	require.Equal(t, 30, up.key)
	require.Equal(t, root, up.left)
	require.Equal(t, up.right, leaf.right)

	right := tree.nodes.get(up.right)
	require.True(t, right.leaf)
	require.Equal(t, nilNode, right.right)
	require.Equal(t, []int{10, 20, 25}, keysOf(leaf))
	require.Equal(t, []int{30, 40}, keysOf(right))

	tree.promoteRoot(up)
	tree.count++
	require.NoError(t, tree.Verify())
	require.Equal(t, []int{10, 20, 25, 30, 40}, ascendKeys(tree))
}

func TestSplitInternalMovesMiddleUp(t *testing.T) {
	tc := []struct {
		pending routingEntry[int]
		left    []routingEntry[int]
		right   []routingEntry[int]
	}{
		{
			// child 3 ([20, 30)) split around 25 into 3 and 6
			pending: routingEntry[int]{left: 3, key: 25, right: 6},
			left:    []routingEntry[int]{{1, 10, 2}, {2, 20, 3}, {3, 25, 6}},
			right:   []routingEntry[int]{{4, 40, 5}},
		},
		{
			// child 4 ([30, 40)) split around 35 into 4 and 6
			pending: routingEntry[int]{left: 4, key: 35, right: 6},
			left:    []routingEntry[int]{{1, 10, 2}, {2, 20, 3}},
			right:   []routingEntry[int]{{4, 35, 6}, {6, 40, 5}},
		},
	}
	for _, test := range tc {
		tree := newTestTree(t, 4)
		// slot 1 is the root leaf, 2..6 are placeholders so the node to split gets its own id
		for i := 0; i < 5; i++ {
			tree.nodes.alloc(true, 4)
		}
		id, n := tree.nodes.alloc(false, 4)
		n.routes = append(n.routes,
			routingEntry[int]{1, 10, 2}, routingEntry[int]{2, 20, 3},
			routingEntry[int]{3, 30, 4}, routingEntry[int]{4, 40, 5})

		up := tree.splitInternal(id, test.pending)
		require.Equal(t, 30, up.key)
		require.Equal(t, id, up.left)
		require.Equal(t, up.right, n.right)
		require.Equal(t, test.left, n.routes)
		require.Equal(t, test.right, tree.nodes.get(up.right).routes)
	}
}

func keysOf(n *node[int, string]) []int {
	var keys []int
	for _, item := range n.items {
		keys = append(keys, item.key)
	}
	return keys
}

func TestClearReleasesEveryNodeOnce(t *testing.T) {
	tree := newTestTree(t, 4)
	for _, k := range rand.New(rand.NewSource(3)).Perm(500) {
		tree.Insert(k, payload("x"))
	}
	require.Greater(t, tree.Depth(), 1)

	live := tree.nodes.live()
	require.Equal(t, live, tree.Clear())
	require.Equal(t, 0, tree.Len())
	require.Equal(t, 0, tree.Depth())
	_, ok := tree.Retrieve(42)
	require.False(t, ok)
	require.NoError(t, tree.Verify())

	for k := 0; k < 100; k++ {
		tree.Insert(k, payload("x"))
	}
	require.NoError(t, tree.Verify())
	require.Equal(t, 100, tree.Len())
}

func TestClearKeepsPayloads(t *testing.T) {
	tree := newTestTree(t, 3)
	p := payload("kept")
	tree.Insert(1, p)
	tree.Clear()
	require.Equal(t, "kept", *p)
}

func TestStringKeys(t *testing.T) {
	tree, err := New[string, string](Config{MaxEntries: 8})
	require.NoError(t, err)

	want := map[string]*string{}
	for i := 0; i < 300; i++ {
		key := faker.Word() + faker.Word()
		want[key] = payload(faker.Word())
		tree.Insert(key, want[key])
	}
	require.NoError(t, tree.Verify())
	require.Equal(t, len(want), tree.Len())
	for key, p := range want {
		got, ok := tree.Retrieve(key)
		require.True(t, ok)
		require.Same(t, p, got)
	}
	require.True(t, sort.StringsAreSorted(ascendKeys(tree)))
}

func TestString(t *testing.T) {
	tree := newTestTree(t, 3)
	for k := 0; k < 4; k++ {
		tree.Insert(k, payload("x"))
	}
	require.Equal(t, "bptree(len=4 depth=1 maxEntries=3 nodes=3)", tree.String())
}

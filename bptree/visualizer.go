package bptree

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	internalColor = color.New(color.FgCyan).SprintFunc()
	leafColor     = color.New(color.FgGreen).SprintFunc()
	levelColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

/*
Visualizer renders a tree level by level. Each level is printed by walking its sibling
chain from the leftmost node, so the picture also shows whether the chains are intact.
Colors follow color.NoColor and are dropped when stdout is not a terminal.
*/
type Visualizer[K, V any] struct {
	Tree *Tree[K, V]
}

func (v *Visualizer[K, V]) Visualize() string {
	t := v.Tree
	var sb strings.Builder
	for level, first := 0, t.root; first != nilNode; level++ {
		below := nilNode
		if n := t.nodes.get(first); !n.leaf {
			below = n.child(0)
		}
		fmt.Fprintf(&sb, "%s ", levelColor(fmt.Sprintf("L%d", level)))
		for id := first; id != nilNode; {
			n := t.nodes.get(id)
			if id != first {
				sb.WriteString(" -> ")
			}
			sb.WriteString(v.node(n))
			id = n.right
		}
		sb.WriteByte('\n')
		first = below
	}
	return sb.String()
}

func (v *Visualizer[K, V]) node(n *node[K, V]) string {
	keys := make([]string, 0, n.len())
	if n.leaf {
		for _, item := range n.items {
			keys = append(keys, fmt.Sprint(item.key))
		}
		return leafColor("[" + strings.Join(keys, " ") + "]")
	}
	for _, e := range n.routes {
		keys = append(keys, fmt.Sprint(e.key))
	}
	return internalColor("(" + strings.Join(keys, " ") + ")")
}

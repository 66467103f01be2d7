package config

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeKind identifies the shape of a raw configuration value.
type NodeKind int

const (
	NullNode NodeKind = iota
	ScalarNode
	MapNode
	ListNode
)

// String returns a human-readable kind name.
func (k NodeKind) String() string {
	switch k {
	case NullNode:
		return "null"
	case ScalarNode:
		return "scalar"
	case MapNode:
		return "map"
	case ListNode:
		return "list"
	default:
		return "unknown"
	}
}

// Node is a raw parsed configuration value. Maps keep document order, which
// decides field order in generated code. Line is 1-based and 0 when the
// decoder does not report positions.
type Node struct {
	Kind    NodeKind
	Value   string
	Line    int
	Entries []Entry
	Items   []*Node
}

// Entry is one key/value pair of a map node.
type Entry struct {
	Key   string
	Value *Node
}

// Scalar builds a scalar node.
func Scalar(v string) *Node {
	return &Node{Kind: ScalarNode, Value: v}
}

// Map builds a map node from entries in order.
func Map(entries ...Entry) *Node {
	return &Node{Kind: MapNode, Entries: entries}
}

// List builds a list node.
func List(items ...*Node) *Node {
	return &Node{Kind: ListNode, Items: items}
}

// IsMap reports whether the node is a map.
func (n *Node) IsMap() bool { return n != nil && n.Kind == MapNode }

// IsList reports whether the node is a list.
func (n *Node) IsList() bool { return n != nil && n.Kind == ListNode }

// IsScalar reports whether the node is a scalar.
func (n *Node) IsScalar() bool { return n != nil && n.Kind == ScalarNode }

// Get returns the value stored under key, or nil when n is not a map or has no
// such key.
func (n *Node) Get(key string) *Node {
	if !n.IsMap() {
		return nil
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Lookup walks a dotted key path such as "auth.enabled".
func (n *Node) Lookup(path string) *Node {
	cur := n
	for _, part := range strings.Split(path, ".") {
		cur = cur.Get(part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Text returns the scalar value, or "" for anything else.
func (n *Node) Text() string {
	if !n.IsScalar() {
		return ""
	}
	return n.Value
}

// Bool interprets a scalar as a boolean. A missing node is false.
func (n *Node) Bool() (bool, error) {
	if n == nil || n.Kind == NullNode {
		return false, nil
	}
	if !n.IsScalar() {
		return false, fmt.Errorf("expected a boolean, got %s", n.Kind)
	}
	return strconv.ParseBool(n.Value)
}

// Int interprets a scalar as an integer. A missing node is 0.
func (n *Node) Int() (int, error) {
	if n == nil || n.Kind == NullNode {
		return 0, nil
	}
	if !n.IsScalar() {
		return 0, fmt.Errorf("expected an integer, got %s", n.Kind)
	}
	return strconv.Atoi(n.Value)
}

// Strings returns the scalar items of a list node. A scalar is treated as a
// single-element list.
func (n *Node) Strings() []string {
	switch {
	case n.IsScalar():
		return []string{n.Value}
	case n.IsList():
		var out []string
		for _, it := range n.Items {
			if it.IsScalar() {
				out = append(out, it.Value)
			}
		}
		return out
	default:
		return nil
	}
}

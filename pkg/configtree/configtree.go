// Package configtree provides a generic parsed-tree abstraction over the
// on-disk plugin declaration and manifest files. A tree is a tagged
// variant of map, list, and scalar nodes; accessors fail explicitly when
// the node shape does not match what the caller expects.
package configtree

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnexpectedShape indicates a node whose kind does not match the
// shape the caller asked for.
var ErrUnexpectedShape = errors.New("unexpected configuration shape")

// Kind identifies the shape of a tree node.
type Kind int

const (
	// KindScalar is a leaf value (string, number, bool).
	KindScalar Kind = iota

	// KindList is an ordered sequence of nodes.
	KindList

	// KindMap is an ordered mapping from string keys to nodes.
	KindMap
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Node is one node of a parsed configuration tree. Map nodes preserve
// the key order of the source document; declaration order is significant
// to version-range selection.
type Node struct {
	kind   Kind
	scalar string
	items  []*Node
	keys   []string
	fields map[string]*Node
}

// Load reads and parses a configuration file into a tree.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	node, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return node, nil
}

// Parse parses raw configuration text into a tree.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	// An empty document has no content nodes; surface it as an empty map
	// so callers can treat "no file" and "empty file" alike.
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewMap(), nil
	}

	return fromYAML(doc.Content[0])
}

// fromYAML converts a decoded yaml node into a tree node.
func fromYAML(n *yaml.Node) (*Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return NewScalar(n.Value), nil

	case yaml.SequenceNode:
		items := make([]*Node, 0, len(n.Content))
		for _, child := range n.Content {
			converted, err := fromYAML(child)
			if err != nil {
				return nil, err
			}
			items = append(items, converted)
		}
		return NewList(items...), nil

	case yaml.MappingNode:
		node := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: mapping key at line %d is not a scalar", ErrUnexpectedShape, key.Line)
			}
			value, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			node.Set(key.Value, value)
		}
		return node, nil

	case yaml.AliasNode:
		return fromYAML(n.Alias)

	default:
		return nil, fmt.Errorf("%w: unsupported node kind at line %d", ErrUnexpectedShape, n.Line)
	}
}

// NewScalar builds a scalar leaf node.
func NewScalar(value string) *Node {
	return &Node{kind: KindScalar, scalar: value}
}

// NewList builds a list node from the given items.
func NewList(items ...*Node) *Node {
	return &Node{kind: KindList, items: items}
}

// NewMap builds an empty map node.
func NewMap() *Node {
	return &Node{kind: KindMap, fields: make(map[string]*Node)}
}

// Kind returns the shape of the node.
func (n *Node) Kind() Kind {
	return n.kind
}

// Scalar returns the leaf value, failing if the node is not a scalar.
func (n *Node) Scalar() (string, error) {
	if n.kind != KindScalar {
		return "", fmt.Errorf("%w: expected scalar, found %s", ErrUnexpectedShape, n.kind)
	}
	return n.scalar, nil
}

// List returns the sequence items, failing if the node is not a list.
func (n *Node) List() ([]*Node, error) {
	if n.kind != KindList {
		return nil, fmt.Errorf("%w: expected list, found %s", ErrUnexpectedShape, n.kind)
	}
	return n.items, nil
}

// Keys returns the map keys in document order, failing if the node is
// not a map.
func (n *Node) Keys() ([]string, error) {
	if n.kind != KindMap {
		return nil, fmt.Errorf("%w: expected map, found %s", ErrUnexpectedShape, n.kind)
	}
	return n.keys, nil
}

// Field returns the value for a map key. The second result reports
// whether the key is present.
func (n *Node) Field(key string) (*Node, bool) {
	if n.kind != KindMap {
		return nil, false
	}
	value, ok := n.fields[key]
	return value, ok
}

// Set adds or replaces a map entry, preserving first-insertion order.
func (n *Node) Set(key string, value *Node) {
	if n.kind != KindMap {
		return
	}
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
}

// Len returns the number of children: list items for lists, entries for
// maps, zero for scalars.
func (n *Node) Len() int {
	switch n.kind {
	case KindList:
		return len(n.items)
	case KindMap:
		return len(n.keys)
	default:
		return 0
	}
}

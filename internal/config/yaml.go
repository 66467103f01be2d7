package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// decodeYAML parses a YAML (or JSON) document into an ordered Node tree. An
// empty document decodes to an empty map.
func decodeYAML(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &Node{Kind: MapNode}, nil
	}
	c := &yamlConverter{budget: maxYAMLNodes}
	return c.fromYAML(doc.Content[0], 0)
}

const (
	maxAliasDepth = 64
	// maxYAMLNodes caps the converted tree, aliases expanded.
	maxYAMLNodes = 100000
)

type yamlConverter struct {
	budget int
}

func (c *yamlConverter) fromYAML(n *yaml.Node, depth int) (*Node, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("line %d: document nesting too deep", n.Line)
	}
	c.budget--
	if c.budget < 0 {
		return nil, fmt.Errorf("line %d: document expands to more than %d nodes", n.Line, maxYAMLNodes)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return &Node{Kind: NullNode, Line: n.Line}, nil
		}
		return c.fromYAML(n.Content[0], depth+1)

	case yaml.AliasNode:
		return c.fromYAML(n.Alias, depth+1)

	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return &Node{Kind: NullNode, Line: n.Line}, nil
		}
		return &Node{Kind: ScalarNode, Value: n.Value, Line: n.Line}, nil

	case yaml.SequenceNode:
		out := &Node{Kind: ListNode, Line: n.Line, Items: make([]*Node, 0, len(n.Content))}
		for _, child := range n.Content {
			item, err := c.fromYAML(child, depth+1)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil

	case yaml.MappingNode:
		out := &Node{Kind: MapNode, Line: n.Line}
		seen := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			if first, dup := seen[k.Value]; dup {
				return nil, fmt.Errorf("line %d: key %q already defined at line %d", k.Line, k.Value, first)
			}
			seen[k.Value] = k.Line
			val, err := c.fromYAML(v, depth+1)
			if err != nil {
				return nil, err
			}
			if val.Line == 0 {
				val.Line = k.Line
			}
			out.Entries = append(out.Entries, Entry{Key: k.Value, Value: val})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

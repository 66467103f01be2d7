package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// decodeTOML parses a TOML document into an ordered Node tree. TOML tables
// decode into Go maps, so key order is recovered from the metadata's key
// definition order.
func decodeTOML(data []byte) (*Node, error) {
	raw := map[string]any{}
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}

	order := make(map[string]int)
	for i, k := range md.Keys() {
		if _, ok := order[k.String()]; !ok {
			order[k.String()] = i
		}
	}
	return fromTOML(raw, nil, order)
}

func fromTOML(v any, path toml.Key, order map[string]int) (*Node, error) {
	switch t := v.(type) {
	case nil:
		return &Node{Kind: NullNode}, nil
	case map[string]any:
		return tomlTable(t, path, order)
	case []map[string]any:
		out := &Node{Kind: ListNode, Items: make([]*Node, 0, len(t))}
		for _, m := range t {
			item, err := tomlTable(m, path, order)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil
	case []any:
		out := &Node{Kind: ListNode, Items: make([]*Node, 0, len(t))}
		for _, e := range t {
			item, err := fromTOML(e, path, order)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil
	case string:
		return Scalar(t), nil
	case bool:
		return Scalar(strconv.FormatBool(t)), nil
	case int64:
		return Scalar(strconv.FormatInt(t, 10)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("key %q: non-finite number", path.String())
		}
		return Scalar(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case time.Time:
		return Scalar(t.Format(time.RFC3339Nano)), nil
	case fmt.Stringer:
		return Scalar(t.String()), nil
	default:
		return nil, fmt.Errorf("key %q: unsupported value of type %T", path.String(), v)
	}
}

func tomlTable(m map[string]any, path toml.Key, order map[string]int) (*Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	pos := func(k string) int {
		if i, ok := order[append(path[:len(path):len(path)], k).String()]; ok {
			return i
		}
		return math.MaxInt
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := pos(keys[i]), pos(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	out := &Node{Kind: MapNode, Entries: make([]Entry, 0, len(keys))}
	for _, k := range keys {
		child, err := fromTOML(m[k], append(path[:len(path):len(path)], k), order)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, Entry{Key: k, Value: child})
	}
	return out, nil
}

package config

import (
	"fmt"
	"slices"
	"strings"
)

// Config keys are dot-separated paths into the JSON form of the file, such as
// "server.port". Sections are JSON objects; every other value is a leaf.
const keySep = "."

// Flatten maps every leaf of a decoded JSON object to its dotted key. Empty
// sections have no leaves and produce no keys.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(path []string, section map[string]any)
	walk = func(path []string, section map[string]any) {
		for name, v := range section {
			key := append(slices.Clip(path), name)
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			out[strings.Join(key, keySep)] = v
		}
	}
	walk(nil, m)
	return out
}

// Unflatten rebuilds nested sections from dotted keys. A key that would have
// to be both a leaf and a section, or that has an empty path segment, is an
// error.
func Unflatten(flat map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	// Sorted, a leaf is seen before any key that tries to nest under it.
	for _, key := range SortedKeys(flat) {
		path := strings.Split(key, keySep)
		if slices.Contains(path, "") {
			return nil, fmt.Errorf("config key %q has an empty segment", key)
		}

		section := out
		for i, name := range path[:len(path)-1] {
			switch next := section[name].(type) {
			case nil:
				child := make(map[string]any)
				section[name] = child
				section = child
			case map[string]any:
				section = next
			default:
				return nil, fmt.Errorf("config key %q: %q is a value, not a section",
					key, strings.Join(path[:i+1], keySep))
			}
		}

		leaf := path[len(path)-1]
		if _, ok := section[leaf].(map[string]any); ok {
			return nil, fmt.Errorf("config key %q is a section, not a value", key)
		}
		section[leaf] = flat[key]
	}
	return out, nil
}

// SortedKeys returns the keys of a flattened config in lexical order.
func SortedKeys(flat map[string]any) []string {
	var keys []string
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

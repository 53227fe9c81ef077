// Package jsondoc provides path-based updates on decoded JSON documents.
//
// Updates are copy-on-write along the mutated path only: containers on the
// path are shallow-copied, everything off the path is shared with the
// input. The input document is never modified, so callers can keep the
// pre-edit tree for dirty comparison without deep-copying large documents.
package jsondoc

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Parse decodes raw JSON into the map/slice/scalar tree the update
// functions operate on.
func Parse(raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return doc, nil
}

// Encode renders a document tree back to indented JSON.
func Encode(doc any) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return out, nil
}

// Get returns the value at path. Path segments index objects by key and
// arrays by decimal index.
func Get(doc any, path ...string) (any, bool) {
	cur := doc
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set returns a new document with value stored at path. Missing object
// keys along the path are created; array indices must already exist.
func Set(doc any, value any, path ...string) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	return update(doc, path, func(any) (any, bool, error) {
		return value, true, nil
	})
}

// Remove returns a new document with the value at path removed. Removing
// from an array shifts the remaining elements down.
func Remove(doc any, path ...string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("remove: empty path")
	}
	return update(doc, path, func(any) (any, bool, error) {
		return nil, false, nil
	})
}

// update walks path, shallow-copying each container it descends into, and
// applies fn at the final segment. fn returns the new leaf value and
// whether the key should be kept.
func update(doc any, path []string, fn func(old any) (any, bool, error)) (any, error) {
	seg := path[0]

	switch node := doc.(type) {
	case map[string]any:
		copied := make(map[string]any, len(node))
		for k, v := range node {
			copied[k] = v
		}

		if len(path) == 1 {
			newVal, keep, err := fn(copied[seg])
			if err != nil {
				return nil, err
			}
			if keep {
				copied[seg] = newVal
			} else {
				delete(copied, seg)
			}
			return copied, nil
		}

		child, ok := copied[seg]
		if !ok {
			child = map[string]any{}
		}
		newChild, err := update(child, path[1:], fn)
		if err != nil {
			return nil, err
		}
		copied[seg] = newChild
		return copied, nil

	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("segment %q indexes an array but is not a number", seg)
		}
		if i < 0 || i >= len(node) {
			return nil, fmt.Errorf("array index %d out of range (len %d)", i, len(node))
		}

		copied := make([]any, len(node))
		copy(copied, node)

		if len(path) == 1 {
			newVal, keep, err := fn(copied[i])
			if err != nil {
				return nil, err
			}
			if keep {
				copied[i] = newVal
				return copied, nil
			}
			return append(copied[:i], copied[i+1:]...), nil
		}

		newChild, err := update(copied[i], path[1:], fn)
		if err != nil {
			return nil, err
		}
		copied[i] = newChild
		return copied, nil

	default:
		return nil, fmt.Errorf("segment %q descends into a non-container value", seg)
	}
}

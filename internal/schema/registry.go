// Package schema maps detected JSON page shapes to named editors.
//
// Dispatch is a registry of tagged variants rather than a conditional
// chain over known keys: new page shapes are added by registering an
// Editor, not by editing a growing if/else ladder.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"pagesync/internal/cms"
)

// Validator checks a decoded JSON document against an editor's shape.
type Validator func(doc map[string]any) error

// Editor pairs a shape detector with the validator that guards saves of
// pages in that shape.
type Editor struct {
	Name     string
	Match    func(doc map[string]any) bool
	Validate Validator
}

// Registry holds the registered editors in registration order. The first
// matching editor wins, so register specific shapes before generic ones.
type Registry struct {
	mu      sync.RWMutex
	editors []Editor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an editor to the registry.
func (r *Registry) Register(e Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.editors = append(r.editors, e)
}

// Detect parses content and returns the first registered editor whose
// shape matches. Unparsable JSON fails with ErrInvalidContent; a document
// no editor matches returns nil without error.
func (r *Registry) Detect(content []byte) (*Editor, error) {
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", cms.ErrInvalidContent, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.editors {
		if r.editors[i].Match(doc) {
			return &r.editors[i], nil
		}
	}
	return nil, nil
}

// Validate detects the editor for content and runs its validator.
// Content with no matching editor passes: only registered shapes are
// constrained.
func (r *Registry) Validate(content []byte) error {
	editor, err := r.Detect(content)
	if err != nil {
		return err
	}
	if editor == nil || editor.Validate == nil {
		return nil
	}

	// Detect succeeded, so this cannot fail.
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("%w: %v", cms.ErrInvalidContent, err)
	}

	if err := editor.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", cms.ErrInvalidContent, editor.Name, err)
	}
	return nil
}

// DefaultRegistry returns a registry with the built-in page shapes.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Editor{
		Name:  "article",
		Match: func(doc map[string]any) bool { return has(doc, "title") && has(doc, "body") },
		Validate: func(doc map[string]any) error {
			if s, ok := doc["title"].(string); !ok || s == "" {
				return fmt.Errorf("title must be a non-empty string")
			}
			if _, ok := doc["body"].(string); !ok {
				return fmt.Errorf("body must be a string")
			}
			return nil
		},
	})

	r.Register(Editor{
		Name:  "gallery",
		Match: func(doc map[string]any) bool { return has(doc, "images") },
		Validate: func(doc map[string]any) error {
			images, ok := doc["images"].([]any)
			if !ok {
				return fmt.Errorf("images must be an array")
			}
			for i, img := range images {
				if _, ok := img.(string); !ok {
					return fmt.Errorf("images[%d] must be a string path", i)
				}
			}
			return nil
		},
	})

	r.Register(Editor{
		Name:  "settings",
		Match: func(doc map[string]any) bool { return has(doc, "siteTitle") },
		Validate: func(doc map[string]any) error {
			if s, ok := doc["siteTitle"].(string); !ok || s == "" {
				return fmt.Errorf("siteTitle must be a non-empty string")
			}
			return nil
		},
	})

	return r
}

func has(doc map[string]any, key string) bool {
	_, ok := doc[key]
	return ok
}

package schema_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pagesync/internal/cms"
	"pagesync/internal/schema"
)

func TestRegistry_Detect(t *testing.T) {
	t.Run("first matching editor wins", func(t *testing.T) {
		t.Parallel()
		r := schema.NewRegistry()
		r.Register(schema.Editor{
			Name:  "specific",
			Match: func(doc map[string]any) bool { _, ok := doc["kind"]; return ok },
		})
		r.Register(schema.Editor{
			Name:  "generic",
			Match: func(map[string]any) bool { return true },
		})

		editor, err := r.Detect([]byte(`{"kind":"x"}`))
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if editor == nil || editor.Name != "specific" {
			t.Fatalf("Detect() = %v, want the specific editor", editor)
		}
	})

	t.Run("no match returns nil without error", func(t *testing.T) {
		t.Parallel()
		r := schema.NewRegistry()
		editor, err := r.Detect([]byte(`{"anything":1}`))
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if editor != nil {
			t.Fatalf("Detect() = %v, want nil", editor)
		}
	})

	t.Run("unparsable JSON fails with invalid content", func(t *testing.T) {
		t.Parallel()
		r := schema.DefaultRegistry()
		_, err := r.Detect([]byte(`{"title":`))
		if !errors.Is(err, cms.ErrInvalidContent) {
			t.Fatalf("Detect() error = %v, want ErrInvalidContent", err)
		}
	})
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid article", `{"title":"Home","body":"<p>hi</p>"}`, false},
		{"article with empty title", `{"title":"","body":"x"}`, true},
		{"article with numeric body", `{"title":"Home","body":7}`, true},
		{"valid gallery", `{"images":["a.png","b.png"]}`, false},
		{"gallery with non-string entry", `{"images":["a.png",7]}`, true},
		{"gallery with scalar images", `{"images":"a.png"}`, true},
		{"valid settings", `{"siteTitle":"Acme"}`, false},
		{"settings with empty title", `{"siteTitle":""}`, true},
		{"unregistered shape passes", `{"whatever":true}`, false},
	}

	r := schema.DefaultRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := r.Validate([]byte(tt.content))
			if tt.wantErr {
				if !errors.Is(err, cms.ErrInvalidContent) {
					t.Fatalf("Validate() error = %v, want ErrInvalidContent", err)
				}
			} else if err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestRegistry_ValidateNamesTheEditor(t *testing.T) {
	t.Parallel()

	r := schema.NewRegistry()
	r.Register(schema.Editor{
		Name:     "strict",
		Match:    func(map[string]any) bool { return true },
		Validate: func(map[string]any) error { return fmt.Errorf("always wrong") },
	})

	err := r.Validate([]byte(`{}`))
	if err == nil {
		t.Fatal("Validate() succeeded, want error")
	}
	got := err.Error()
	if !errors.Is(err, cms.ErrInvalidContent) || !strings.Contains(got, "strict") || !strings.Contains(got, "always wrong") {
		t.Fatalf("Validate() error = %q, want editor name and cause", got)
	}
}

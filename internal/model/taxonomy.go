package model

import (
	"fmt"
	"time"
)

// CustomTaxonomy is an optional user-defined category structure that replaces
// the default taxonomy when present.
type CustomTaxonomy struct {
	UpdatedAt  time.Time
	Categories map[string][]string
}

// IsEmpty reports whether the taxonomy carries no categories. The resolver
// skips the custom-category tier entirely for empty taxonomies.
func (t CustomTaxonomy) IsEmpty() bool {
	return len(t.Categories) == 0
}

// Validate checks structural soundness before a custom taxonomy is installed.
func (t CustomTaxonomy) Validate() error {
	if t.IsEmpty() {
		return fmt.Errorf("custom taxonomy has no categories")
	}
	for category, subs := range t.Categories {
		if category == "" {
			return fmt.Errorf("custom taxonomy contains an empty category name")
		}
		if len(subs) == 0 {
			return fmt.Errorf("category %q has no subcategories", category)
		}
	}
	return nil
}

// HasCategory reports whether category (and, when subcategory is non-empty,
// that subcategory) exists in the taxonomy.
func (t CustomTaxonomy) HasCategory(category, subcategory string) bool {
	subs, ok := t.Categories[category]
	if !ok {
		return false
	}
	if subcategory == "" {
		return true
	}
	for _, s := range subs {
		if s == subcategory {
			return true
		}
	}
	return false
}

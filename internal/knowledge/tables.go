// Package knowledge holds the static, read-only lookup tables used during
// classification: the MCC code table, the known-vendor table, the default
// taxonomy, the fuzzy vendor patterns, and per-category amount ranges. Tables
// are versioned with the binary and loaded once at startup; runtime mutation
// is not supported.
package knowledge

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/mcc_codes.yaml
var mccCodesYAML []byte

//go:embed data/vendors.yaml
var vendorsYAML []byte

//go:embed data/taxonomy.yaml
var taxonomyYAML []byte

//go:embed data/vendor_patterns.yaml
var vendorPatternsYAML []byte

//go:embed data/amount_ranges.yaml
var amountRangesYAML []byte

// MCCInfo describes one merchant category code.
type MCCInfo struct {
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Subcategory string `yaml:"subcategory"`
}

// PatternInfo is one entry in the curated fuzzy vendor-pattern list.
type PatternInfo struct {
	Category    string `yaml:"category"`
	Subcategory string `yaml:"subcategory"`
}

// AmountRange is the expected amount window for a category.
type AmountRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Tables bundles all static knowledge sources behind their lookup functions.
type Tables struct {
	mccCodes       map[string]MCCInfo
	vendorMCC      map[string]string
	taxonomy       map[string][]string
	vendorPatterns map[string]PatternInfo
	amountRanges   map[string]AmountRange
	categories     []string
	mccOrder       []string
}

// Load parses the embedded tables. It is called once at process start; a
// parse failure means the binary shipped with broken data and is fatal.
func Load() (*Tables, error) {
	t := &Tables{}

	if err := yaml.Unmarshal(mccCodesYAML, &t.mccCodes); err != nil {
		return nil, fmt.Errorf("failed to parse MCC code table: %w", err)
	}
	if err := yaml.Unmarshal(vendorsYAML, &t.vendorMCC); err != nil {
		return nil, fmt.Errorf("failed to parse vendor table: %w", err)
	}
	if err := yaml.Unmarshal(taxonomyYAML, &t.taxonomy); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if err := yaml.Unmarshal(vendorPatternsYAML, &t.vendorPatterns); err != nil {
		return nil, fmt.Errorf("failed to parse vendor patterns: %w", err)
	}
	if err := yaml.Unmarshal(amountRangesYAML, &t.amountRanges); err != nil {
		return nil, fmt.Errorf("failed to parse amount ranges: %w", err)
	}

	// Stable iteration orders so reverse lookups are deterministic.
	for code := range t.mccCodes {
		t.mccOrder = append(t.mccOrder, code)
	}
	sort.Strings(t.mccOrder)

	for category := range t.taxonomy {
		t.categories = append(t.categories, category)
	}
	sort.Strings(t.categories)

	return t, nil
}

// MustLoad is Load for main functions and tests.
func MustLoad() *Tables {
	t, err := Load()
	if err != nil {
		panic(err)
	}
	return t
}

// Categories returns all default taxonomy category names, sorted.
func (t *Tables) Categories() []string {
	out := make([]string, len(t.categories))
	copy(out, t.categories)
	return out
}

// Subcategories returns the subcategories for a default taxonomy category.
func (t *Tables) Subcategories(category string) []string {
	subs := t.taxonomy[category]
	out := make([]string, len(subs))
	copy(out, subs)
	return out
}

// DefaultTaxonomy returns a copy of the full category structure.
func (t *Tables) DefaultTaxonomy() map[string][]string {
	out := make(map[string][]string, len(t.taxonomy))
	for category, subs := range t.taxonomy {
		s := make([]string, len(subs))
		copy(s, subs)
		out[category] = s
	}
	return out
}

// HasCategory reports whether category (and optionally subcategory) exists in
// the default taxonomy.
func (t *Tables) HasCategory(category, subcategory string) bool {
	subs, ok := t.taxonomy[category]
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

// ExpectedAmountRange returns the expected amount window for a category. The
// second return is false for categories without a configured range.
func (t *Tables) ExpectedAmountRange(category string) (AmountRange, bool) {
	r, ok := t.amountRanges[category]
	return r, ok
}

package knowledge

import (
	"sort"
	"strings"
)

// DefaultMCC is assigned when a category has no specific MCC mapping.
const DefaultMCC = "5999"

// MCCMatch is the result of an MCC assignment or lookup.
type MCCMatch struct {
	Code        string
	Description string
	Category    string
	Subcategory string
	Quality     MatchQuality
}

// MatchQuality grades how an MCC was resolved.
type MatchQuality string

// Match qualities, strongest first.
const (
	QualityExact    MatchQuality = "exact"
	QualityCategory MatchQuality = "category_match"
	QualityDefault  MatchQuality = "default"
)

// LookupMCC resolves a 4-digit MCC code to its category mapping. Exact key
// match only.
func (t *Tables) LookupMCC(code string) (MCCMatch, bool) {
	info, ok := t.mccCodes[code]
	if !ok {
		return MCCMatch{}, false
	}
	return MCCMatch{
		Code:        code,
		Description: info.Description,
		Category:    info.Category,
		Subcategory: info.Subcategory,
		Quality:     QualityExact,
	}, true
}

// LookupVendorMCC resolves a canonical merchant name through the known-vendor
// table. Exact match is tried first, then substring containment in either
// direction.
func (t *Tables) LookupVendorMCC(merchant string) (MCCMatch, bool) {
	name := strings.ToUpper(strings.TrimSpace(merchant))
	if name == "" {
		return MCCMatch{}, false
	}

	if code, ok := t.vendorMCC[name]; ok {
		m, _ := t.LookupMCC(code)
		return m, true
	}

	for _, vendor := range t.sortedVendors() {
		if strings.Contains(name, vendor) || strings.Contains(vendor, name) {
			m, _ := t.LookupMCC(t.vendorMCC[vendor])
			m.Quality = QualityCategory
			return m, true
		}
	}

	return MCCMatch{}, false
}

// AssignMCC reverse-looks-up an MCC for a classified category. An exact
// subcategory match is preferred; failing that, any code for the category;
// failing that, the default miscellaneous code.
func (t *Tables) AssignMCC(category, subcategory string) MCCMatch {
	if subcategory != "" {
		for _, code := range t.mccOrder {
			info := t.mccCodes[code]
			if info.Category == category && info.Subcategory == subcategory {
				return MCCMatch{
					Code:        code,
					Description: info.Description,
					Category:    category,
					Subcategory: subcategory,
					Quality:     QualityExact,
				}
			}
		}
	}

	for _, code := range t.mccOrder {
		info := t.mccCodes[code]
		if info.Category == category {
			return MCCMatch{
				Code:        code,
				Description: info.Description,
				Category:    category,
				Subcategory: info.Subcategory,
				Quality:     QualityCategory,
			}
		}
	}

	fallback := t.mccCodes[DefaultMCC]
	return MCCMatch{
		Code:        DefaultMCC,
		Description: fallback.Description,
		Category:    category,
		Subcategory: subcategory,
		Quality:     QualityDefault,
	}
}

// PatternMatch is a fuzzy vendor-pattern hit.
type PatternMatch struct {
	Pattern     string
	Category    string
	Subcategory string
}

// MatchVendorPattern matches a merchant name against the curated pattern
// list: substring containment either direction first, then edit distance of
// at most 2 against individual tokens.
func (t *Tables) MatchVendorPattern(merchant string) (PatternMatch, bool) {
	name := strings.ToUpper(strings.TrimSpace(merchant))
	if name == "" {
		return PatternMatch{}, false
	}

	for _, pattern := range t.sortedPatterns() {
		if strings.Contains(name, pattern) || strings.Contains(pattern, name) {
			info := t.vendorPatterns[pattern]
			return PatternMatch{Pattern: pattern, Category: info.Category, Subcategory: info.Subcategory}, true
		}
	}

	for _, pattern := range t.sortedPatterns() {
		for _, token := range strings.Fields(name) {
			if len(token) < 4 {
				continue
			}
			if editDistance(token, pattern) <= 2 {
				info := t.vendorPatterns[pattern]
				return PatternMatch{Pattern: pattern, Category: info.Category, Subcategory: info.Subcategory}, true
			}
		}
	}

	return PatternMatch{}, false
}

func (t *Tables) sortedVendors() []string {
	vendors := make([]string, 0, len(t.vendorMCC))
	for v := range t.vendorMCC {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	return vendors
}

func (t *Tables) sortedPatterns() []string {
	patterns := make([]string, 0, len(t.vendorPatterns))
	for p := range t.vendorPatterns {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return patterns
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

package llm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

var fieldPattern = regexp.MustCompile(`(?im)^\s*\*{0,2}([A-Z_]+)\*{0,2}\s*:\s*(.+?)\s*$`)

// parseFields extracts KEY: value lines from a delegate response. Keys are
// upper-cased; repeated keys keep the first occurrence.
func parseFields(content string) map[string]string {
	fields := make(map[string]string)
	for _, m := range fieldPattern.FindAllStringSubmatch(content, -1) {
		key := strings.ToUpper(m[1])
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(m[2])
		}
	}
	return fields
}

// ParseDelegateResponse parses the structured classification format:
//
//	MATCH: YES|NO        (custom-category prompts only)
//	CATEGORY: ...
//	SUBCATEGORY: ...
//	REASONING: ...
//
// A response missing the category (or, for match prompts, the MATCH field) is
// malformed and reported as common.ErrDelegateMalformed; callers treat that
// as no-match rather than crashing.
func ParseDelegateResponse(content string, requireMatchField bool) (service.DelegateResponse, error) {
	fields := parseFields(content)

	resp := service.DelegateResponse{
		Category:    fields["CATEGORY"],
		Subcategory: fields["SUBCATEGORY"],
		Reasoning:   fields["REASONING"],
		Matched:     true,
	}

	if requireMatchField {
		match, ok := fields["MATCH"]
		if !ok {
			return service.DelegateResponse{}, fmt.Errorf("%w: missing MATCH field", common.ErrDelegateMalformed)
		}
		switch strings.ToUpper(match) {
		case "YES", "TRUE":
			resp.Matched = true
		case "NO", "FALSE":
			// A clean no-match needs no category.
			return service.DelegateResponse{Matched: false, Reasoning: resp.Reasoning}, nil
		default:
			return service.DelegateResponse{}, fmt.Errorf("%w: unrecognized MATCH value %q", common.ErrDelegateMalformed, match)
		}
	}

	if resp.Category == "" {
		return service.DelegateResponse{}, fmt.Errorf("%w: missing CATEGORY field", common.ErrDelegateMalformed)
	}
	if resp.Subcategory == "" {
		resp.Subcategory = "General"
	}
	if resp.Reasoning == "" {
		resp.Reasoning = content
	}

	return resp, nil
}

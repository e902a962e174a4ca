// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// PreferenceStore is the contract for the user-correction learning store.
// Reads may proceed concurrently; writes to a given record id are atomic and
// mutually exclusive.
type PreferenceStore interface {
	// FindSimilar returns the best preference match at or above the
	// similarity threshold, incrementing its usage count, or nil when
	// nothing matches.
	FindSimilar(ctx context.Context, merchant, description string) (*model.PreferenceMatch, error)
	// AddOrUpdate upserts a correction keyed by its deterministic id.
	AddOrUpdate(ctx context.Context, merchant, description, category, subcategory, originalCategory, originalSubcategory string) (*model.PreferenceRecord, error)
	ListPreferences(ctx context.Context) ([]model.PreferenceRecord, error)
	ClearPreferences(ctx context.Context) error
}

// CustomCategoryStore persists the optional user-defined taxonomy as a single
// document.
type CustomCategoryStore interface {
	GetCustomTaxonomy(ctx context.Context) (*model.CustomTaxonomy, error)
	SaveCustomTaxonomy(ctx context.Context, taxonomy model.CustomTaxonomy) error
	DeleteCustomTaxonomy(ctx context.Context) error
}

// Storage is the full persistence contract backing the pipeline.
type Storage interface {
	PreferenceStore
	CustomCategoryStore
	Migrate(ctx context.Context) error
	Close() error
}

// DelegateResponse is the structured output required from the reasoning
// delegate. Malformed delegate output is surfaced as an error by the llm
// package, never as a partially filled response.
type DelegateResponse struct {
	Category    string
	Subcategory string
	Reasoning   string
	Matched     bool
}

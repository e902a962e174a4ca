package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func TestGetCustomTaxonomy_NoneInstalled(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	taxonomy, err := store.GetCustomTaxonomy(context.Background())
	if err != nil {
		t.Fatalf("GetCustomTaxonomy failed: %v", err)
	}
	if taxonomy != nil {
		t.Errorf("Expected nil when no taxonomy is installed, got %+v", taxonomy)
	}
}

func TestSaveCustomTaxonomy_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	in := model.CustomTaxonomy{
		UpdatedAt: time.Now().UTC(),
		Categories: map[string][]string{
			"Coffee Habit": {"Espresso", "Beans"},
			"Home Lab":     {"Hardware"},
		},
	}
	if err := store.SaveCustomTaxonomy(ctx, in); err != nil {
		t.Fatalf("SaveCustomTaxonomy failed: %v", err)
	}

	out, err := store.GetCustomTaxonomy(ctx)
	if err != nil {
		t.Fatalf("GetCustomTaxonomy failed: %v", err)
	}
	if out == nil {
		t.Fatal("Expected the saved taxonomy back")
	}
	if len(out.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %d", len(out.Categories))
	}
	if !out.HasCategory("Coffee Habit", "Espresso") {
		t.Error("Saved subcategory missing after round trip")
	}
	if out.UpdatedAt.IsZero() {
		t.Error("UpdatedAt must be set on load")
	}
}

func TestSaveCustomTaxonomy_ReplacesPrevious(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := model.CustomTaxonomy{Categories: map[string][]string{"First": {"A"}}}
	second := model.CustomTaxonomy{Categories: map[string][]string{"Second": {"B"}}}

	if err := store.SaveCustomTaxonomy(ctx, first); err != nil {
		t.Fatalf("SaveCustomTaxonomy failed: %v", err)
	}
	if err := store.SaveCustomTaxonomy(ctx, second); err != nil {
		t.Fatalf("SaveCustomTaxonomy failed: %v", err)
	}

	out, err := store.GetCustomTaxonomy(ctx)
	if err != nil {
		t.Fatalf("GetCustomTaxonomy failed: %v", err)
	}
	if out.HasCategory("First", "") {
		t.Error("Previous taxonomy must be fully replaced")
	}
	if !out.HasCategory("Second", "B") {
		t.Error("New taxonomy missing after replace")
	}
}

func TestSaveCustomTaxonomy_RejectsInvalid(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveCustomTaxonomy(ctx, model.CustomTaxonomy{}); err == nil {
		t.Error("Empty taxonomy must be rejected")
	}
	noSubs := model.CustomTaxonomy{Categories: map[string][]string{"Lonely": {}}}
	if err := store.SaveCustomTaxonomy(ctx, noSubs); err == nil {
		t.Error("Category without subcategories must be rejected")
	}
}

func TestDeleteCustomTaxonomy(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	in := model.CustomTaxonomy{Categories: map[string][]string{"Coffee Habit": {"Espresso"}}}
	if err := store.SaveCustomTaxonomy(ctx, in); err != nil {
		t.Fatalf("SaveCustomTaxonomy failed: %v", err)
	}

	if err := store.DeleteCustomTaxonomy(ctx); err != nil {
		t.Fatalf("DeleteCustomTaxonomy failed: %v", err)
	}

	out, err := store.GetCustomTaxonomy(ctx)
	if err != nil {
		t.Fatalf("GetCustomTaxonomy failed: %v", err)
	}
	if out != nil {
		t.Errorf("Expected nil after delete, got %+v", out)
	}

	// Deleting again is a no-op, not an error.
	if err := store.DeleteCustomTaxonomy(ctx); err != nil {
		t.Errorf("Second delete should be a no-op: %v", err)
	}
}

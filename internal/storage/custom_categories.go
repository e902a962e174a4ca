package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// customTaxonomyDoc is the stored JSON shape of the single custom-taxonomy
// document.
type customTaxonomyDoc struct {
	Categories map[string][]string `json:"categories"`
}

// GetCustomTaxonomy loads the user-defined taxonomy. Returns nil when none
// has been installed.
func (s *SQLiteStorage) GetCustomTaxonomy(ctx context.Context) (*model.CustomTaxonomy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var document string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT document, updated_at FROM custom_categories WHERE id = 1
	`).Scan(&document, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("load custom taxonomy", err)
	}

	var doc customTaxonomyDoc
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return nil, fmt.Errorf("custom taxonomy document is corrupted: %w", err)
	}

	return &model.CustomTaxonomy{Categories: doc.Categories, UpdatedAt: updatedAt}, nil
}

// SaveCustomTaxonomy validates and installs the user-defined taxonomy,
// replacing any previous document.
func (s *SQLiteStorage) SaveCustomTaxonomy(ctx context.Context, taxonomy model.CustomTaxonomy) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := taxonomy.Validate(); err != nil {
		return fmt.Errorf("invalid custom taxonomy: %w", err)
	}

	document, err := json.Marshal(customTaxonomyDoc{Categories: taxonomy.Categories})
	if err != nil {
		return fmt.Errorf("failed to encode custom taxonomy: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_categories (id, document, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, string(document), time.Now().UTC())
	if err != nil {
		return storeErr("save custom taxonomy", err)
	}

	return nil
}

// DeleteCustomTaxonomy removes the user-defined taxonomy, restoring the
// default taxonomy for subsequent classifications.
func (s *SQLiteStorage) DeleteCustomTaxonomy(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM custom_categories WHERE id = 1`); err != nil {
		return storeErr("delete custom taxonomy", err)
	}
	return nil
}

package storage

import (
	"context"
	"crypto/md5" //nolint:gosec // Non-cryptographic record key, matches the historical key scheme
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// PreferenceID derives the deterministic record id for a (merchant,
// description) pair. The description contributes only its first 50
// characters, upper-cased, so statement-suffix noise does not fragment
// records.
func PreferenceID(merchant, description string) string {
	m := strings.ToUpper(strings.TrimSpace(merchant))
	d := strings.ToUpper(strings.TrimSpace(description))
	if len(d) > 50 {
		d = d[:50]
	}
	sum := md5.Sum([]byte(m + ":" + d)) //nolint:gosec // see above
	return fmt.Sprintf("%x", sum)[:16]
}

// AddOrUpdate upserts a user correction. An existing record with the same id
// is overwritten in place (category, subcategory and updated_at refreshed);
// usage_count counts matches, not writes, so it is untouched here.
func (s *SQLiteStorage) AddOrUpdate(ctx context.Context, merchant, description, category, subcategory, originalCategory, originalSubcategory string) (*model.PreferenceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}
	if err := validateString(subcategory, "subcategory"); err != nil {
		return nil, err
	}

	id := PreferenceID(merchant, description)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO preferences (
			id, merchant_name, description, user_category, user_subcategory,
			original_category, original_subcategory,
			created_at, updated_at, last_used_at, usage_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			user_category = excluded.user_category,
			user_subcategory = excluded.user_subcategory,
			original_category = excluded.original_category,
			original_subcategory = excluded.original_subcategory,
			updated_at = excluded.updated_at
	`, id, strings.ToUpper(strings.TrimSpace(merchant)), description,
		category, subcategory, nullable(originalCategory), nullable(originalSubcategory),
		now, now, now)
	if err != nil {
		return nil, storeErr("upsert preference", err)
	}

	record, err := getPreferenceTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit preference", err)
	}

	return record, nil
}

// FindSimilar returns the best stored preference whose combined similarity
// score meets the threshold, or nil when nothing qualifies. The winning
// record's usage_count and last_used_at are refreshed atomically with the
// read. Ties on score go to the most recently used record.
func (s *SQLiteStorage) FindSimilar(ctx context.Context, merchant, description string) (*model.PreferenceMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, merchant_name, description, user_category, user_subcategory,
		       original_category, original_subcategory,
		       created_at, updated_at, last_used_at, usage_count
		FROM preferences
	`)
	if err != nil {
		return nil, storeErr("query preferences", err)
	}
	defer func() { _ = rows.Close() }()

	var best *model.PreferenceMatch
	for rows.Next() {
		record, scanErr := scanPreference(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		score := Similarity(merchant, description, record.MerchantName, record.Description)
		if score < SimilarityThreshold {
			continue
		}
		if best == nil || score > best.Score ||
			(score == best.Score && record.LastUsedAt.After(best.Record.LastUsedAt)) {
			best = &model.PreferenceMatch{Record: *record, Score: score}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate preferences", err)
	}

	if best == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE preferences
		SET usage_count = usage_count + 1, last_used_at = ?, updated_at = ?
		WHERE id = ?
	`, now, now, best.Record.ID); err != nil {
		return nil, storeErr("update preference usage", err)
	}
	best.Record.UsageCount++
	best.Record.LastUsedAt = now
	best.Record.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit preference usage", err)
	}

	return best, nil
}

// GetPreference fetches one record by id.
func (s *SQLiteStorage) GetPreference(ctx context.Context, id string) (*model.PreferenceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getPreferenceTx(ctx, s.db, id)
}

// ListPreferences returns all stored corrections, most recently used first.
func (s *SQLiteStorage) ListPreferences(ctx context.Context) ([]model.PreferenceRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merchant_name, description, user_category, user_subcategory,
		       original_category, original_subcategory,
		       created_at, updated_at, last_used_at, usage_count
		FROM preferences
		ORDER BY last_used_at DESC
	`)
	if err != nil {
		return nil, storeErr("list preferences", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.PreferenceRecord
	for rows.Next() {
		record, scanErr := scanPreference(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate preferences", err)
	}

	return records, nil
}

// ClearPreferences removes every stored correction.
func (s *SQLiteStorage) ClearPreferences(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences`); err != nil {
		return storeErr("clear preferences", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreference(row rowScanner) (*model.PreferenceRecord, error) {
	var record model.PreferenceRecord
	var originalCategory, originalSubcategory sql.NullString

	err := row.Scan(
		&record.ID,
		&record.MerchantName,
		&record.Description,
		&record.UserCategory,
		&record.UserSubcategory,
		&originalCategory,
		&originalSubcategory,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.LastUsedAt,
		&record.UsageCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storeErr("scan preference", err)
	}

	record.OriginalCategory = originalCategory.String
	record.OriginalSubcategory = originalSubcategory.String
	return &record, nil
}

type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPreferenceTx(ctx context.Context, q queryable, id string) (*model.PreferenceRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, merchant_name, description, user_category, user_subcategory,
		       original_category, original_subcategory,
		       created_at, updated_at, last_used_at, usage_count
		FROM preferences
		WHERE id = ?
	`, id)

	record, err := scanPreference(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preference %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return record, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

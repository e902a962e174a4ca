package model

import "time"

// PreferenceRecord is one learned user correction. Records are created on the
// first correction for a (merchant, description) pair and updated in place on
// every subsequent correction or match reuse; they are never deleted
// automatically.
type PreferenceRecord struct {
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastUsedAt          time.Time
	ID                  string // Deterministic hash of merchant+description
	MerchantName        string
	Description         string
	UserCategory        string
	UserSubcategory     string
	OriginalCategory    string
	OriginalSubcategory string
	UsageCount          int
}

// PreferenceMatch is a similarity-search hit from the preference store.
type PreferenceMatch struct {
	Record PreferenceRecord
	Score  float64
}

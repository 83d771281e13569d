// Package domain contains core business entities and types for biomarker
// classification and health scoring.
//
// Scoring convention: health scores are 0-100 where higher = healthier;
// the internal risk score is the inverse (100 - health) on the same scale.
package domain

import (
	"errors"
	"strings"
)

// Status represents the classification of a biomarker value against its
// gender-specific normal range.
type Status string

const (
	StatusLow     Status = "low"
	StatusNormal  Status = "normal"
	StatusHigh    Status = "high"
	StatusUnknown Status = "unknown"
)

// Gender selects which normal range applies to a biomarker.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Category groups biomarkers into clinical risk clusters.
type Category string

const (
	CategoryMetabolic    Category = "metabolic"
	CategoryLipids       Category = "lipids"
	CategoryDeficiencies Category = "deficiencies"
	CategoryInflammation Category = "inflammation"
	CategoryHormonal     Category = "hormonal"
	CategoryBloodHealth  Category = "blood_health"
	CategoryLiver        Category = "liver"
)

// AllCategories returns the fixed risk categories in their canonical
// reporting order. Scoring iterates this order so aggregation stays
// deterministic.
func AllCategories() []Category {
	return []Category{
		CategoryMetabolic,
		CategoryLipids,
		CategoryDeficiencies,
		CategoryInflammation,
		CategoryHormonal,
		CategoryBloodHealth,
		CategoryLiver,
	}
}

// RiskLevel is the overall banding of a health score.
type RiskLevel string

const (
	LevelExcellent      RiskLevel = "excellent"
	LevelGood           RiskLevel = "good"
	LevelModerate       RiskLevel = "moderate"
	LevelNeedsAttention RiskLevel = "needs_attention"
	LevelHighRisk       RiskLevel = "high_risk"
	LevelUnknown        RiskLevel = "unknown"
)

// Validation errors for catalog and scoring data integrity.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidStatus   = errors.New("invalid biomarker status")
	ErrInvalidCategory = errors.New("invalid risk category")
	ErrInvalidOperator = errors.New("invalid rule operator")
	ErrEmptyCatalog    = errors.New("catalog is empty")
)

// IsValid reports whether the status is one of the recognized values.
func (s Status) IsValid() bool {
	switch s {
	case StatusLow, StatusNormal, StatusHigh, StatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a status word case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusLow:
		return StatusLow, true
	case StatusNormal:
		return StatusNormal, true
	case StatusHigh:
		return StatusHigh, true
	case StatusUnknown:
		return StatusUnknown, true
	default:
		return "", false
	}
}

// IsValid reports whether the category is one of the fixed risk clusters.
func (c Category) IsValid() bool {
	switch c {
	case CategoryMetabolic, CategoryLipids, CategoryDeficiencies,
		CategoryInflammation, CategoryHormonal, CategoryBloodHealth, CategoryLiver:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// ResolveGender maps a free-form gender string to a range selector.
// Matching is case-insensitive and accepts single-letter and full-word
// forms. Anything that is not recognizably male resolves to female; this
// default mirrors the upstream product behavior and is relied on by tests.
func ResolveGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	default:
		return GenderFemale
	}
}

// String returns the string representation of the risk level.
func (l RiskLevel) String() string {
	return string(l)
}

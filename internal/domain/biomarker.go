package domain

import (
	"errors"
	"fmt"
)

// Range is a closed interval [Low, High] of acceptable biomarker values.
type Range struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Contains reports whether v lies inside the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Low && v <= r.High
}

// String renders the range the way it appears in reports, e.g. "12 - 15.5".
func (r Range) String() string {
	return fmt.Sprintf("%g - %g", r.Low, r.High)
}

// BiomarkerDefinition is one entry of the reference catalog. Definitions are
// loaded once at startup and never mutated afterwards.
type BiomarkerDefinition struct {
	Key         string   `json:"key" yaml:"key"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Unit        string   `json:"unit" yaml:"unit"`
	Category    Category `json:"category" yaml:"category"`
	MaleRange   Range    `json:"male_range" yaml:"male_range"`
	FemaleRange Range    `json:"female_range" yaml:"female_range"`
}

// RangeFor returns the normal range for the resolved gender.
func (d *BiomarkerDefinition) RangeFor(g Gender) Range {
	if g == GenderMale {
		return d.MaleRange
	}
	return d.FemaleRange
}

// Validate ensures the definition is structurally complete. Catalog
// correctness is checked once at load time, not on every request.
func (d *BiomarkerDefinition) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("biomarker definition validation: %w", errors.New("key is required"))
	}
	if d.DisplayName == "" {
		return fmt.Errorf("biomarker definition %q validation: %w", d.Key, errors.New("display name is required"))
	}
	if d.Unit == "" {
		return fmt.Errorf("biomarker definition %q validation: %w", d.Key, errors.New("unit is required"))
	}
	if !d.Category.IsValid() {
		return fmt.Errorf("biomarker definition %q validation: %w: %q", d.Key, ErrInvalidCategory, d.Category)
	}
	if d.MaleRange.Low > d.MaleRange.High {
		return fmt.Errorf("biomarker definition %q validation: male range low %g exceeds high %g", d.Key, d.MaleRange.Low, d.MaleRange.High)
	}
	if d.FemaleRange.Low > d.FemaleRange.High {
		return fmt.Errorf("biomarker definition %q validation: female range low %g exceeds high %g", d.Key, d.FemaleRange.Low, d.FemaleRange.High)
	}
	return nil
}

// CategoryInfo carries the display label, icon hint, and risk weight of a
// risk category. Weights are multiplicative risk amplifiers reflecting
// clinical importance; they ship as catalog data, not code.
type CategoryInfo struct {
	Label  string  `json:"label" yaml:"label"`
	Weight float64 `json:"weight" yaml:"weight"`
	Icon   string  `json:"icon" yaml:"icon"`
}

// Validate ensures the category metadata is usable for scoring.
func (ci *CategoryInfo) Validate() error {
	if ci.Label == "" {
		return fmt.Errorf("category info validation: %w", errors.New("label is required"))
	}
	if ci.Weight <= 0 {
		return fmt.Errorf("category info %q validation: weight must be positive, got %g", ci.Label, ci.Weight)
	}
	return nil
}

// Classification is the status-tagged record produced for a single
// biomarker reading. Instances are created fresh per analysis and never
// mutated after creation.
type Classification struct {
	Biomarker        string   `json:"biomarker"`
	Key              string   `json:"key"`
	Value            float64  `json:"value"`
	Unit             string   `json:"unit,omitempty"`
	Status           Status   `json:"status"`
	NormalRange      string   `json:"normal_range,omitempty"`
	DeviationPercent float64  `json:"deviation_percent"`
	Category         Category `json:"category,omitempty"`
}

// IsAbnormal reports whether the marker carries a known abnormal status.
// Unknown markers are excluded from all aggregation.
func (c *Classification) IsAbnormal() bool {
	return c.Status == StatusLow || c.Status == StatusHigh
}

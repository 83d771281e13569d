package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
)

// ClassifierService converts raw biomarker readings into status-tagged
// classification records against the active reference catalog.
type ClassifierService struct {
	logger *logrus.Logger
}

// NewClassifierService creates a new classifier service.
func NewClassifierService(logger *logrus.Logger) *ClassifierService {
	return &ClassifierService{logger: logger}
}

// BiomarkerInput is one raw reading in insertion order. Value may be a
// number, a numeric string, or empty/nil; non-numeric entries are skipped
// during batch classification.
type BiomarkerInput struct {
	Key   string
	Value any
}

// Classify classifies a single biomarker value as low, normal, or high.
// An unknown key yields a status of unknown with no category; such records
// are excluded from all downstream aggregation.
func (s *ClassifierService) Classify(snap *catalog.Snapshot, key string, value float64, gender domain.Gender) domain.Classification {
	def, ok := snap.Definition(key)
	if !ok {
		s.logger.WithField("biomarker_key", key).Debug("No reference range for biomarker")
		return domain.Classification{
			Biomarker: key,
			Key:       key,
			Value:     value,
			Status:    domain.StatusUnknown,
		}
	}

	rng := def.RangeFor(gender)

	status := domain.StatusNormal
	deviation := 0.0
	switch {
	case value < rng.Low:
		status = domain.StatusLow
		deviation = roundOne((rng.Low - value) / rng.Low * 100)
	case value > rng.High:
		status = domain.StatusHigh
		deviation = roundOne((value - rng.High) / rng.High * 100)
	}

	return domain.Classification{
		Biomarker:        def.DisplayName,
		Key:              def.Key,
		Value:            value,
		Unit:             def.Unit,
		Status:           status,
		NormalRange:      rng.String(),
		DeviationPercent: deviation,
		Category:         def.Category,
	}
}

// ClassifyAll classifies all provided readings, preserving their insertion
// order. Entries whose value is missing, empty, or non-numeric are skipped
// silently; a skipped entry is logged, never an error.
func (s *ClassifierService) ClassifyAll(snap *catalog.Snapshot, inputs []BiomarkerInput, gender domain.Gender) []domain.Classification {
	results := make([]domain.Classification, 0, len(inputs))
	for _, in := range inputs {
		value, ok := parseNumeric(in.Value)
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"biomarker_key": in.Key,
				"raw_value":     in.Value,
			}).Debug("Skipping non-numeric biomarker value")
			continue
		}
		results = append(results, s.Classify(snap, in.Key, value, gender))
	}
	return results
}

// parseNumeric coerces the supported raw value shapes to float64.
func parseNumeric(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// roundOne rounds to one decimal place, matching report formatting.
func roundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

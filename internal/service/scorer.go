package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
)

// Deviations above this percentage mark a marker as severely abnormal for
// the overall severity penalty.
const highDeviationThreshold = 30.0

// ScoringService aggregates classifications, interaction penalties, and
// category weights into per-category and overall health scores. It is a
// pure function of its inputs and the immutable catalog snapshot.
type ScoringService struct {
	logger   *logrus.Logger
	detector *InteractionDetector
}

// NewScoringService creates a new scoring service.
func NewScoringService(logger *logrus.Logger) *ScoringService {
	return &ScoringService{
		logger:   logger,
		detector: NewInteractionDetector(logger),
	}
}

// ComposeScore computes the complete risk score result for a classification
// set. Unknown-status classifications are excluded from all aggregation;
// when nothing remains the result is score 0 with level unknown.
func (s *ScoringService) ComposeScore(snap *catalog.Snapshot, classifications []domain.Classification) *domain.RiskScoreResult {
	known := make([]domain.Classification, 0, len(classifications))
	for _, c := range classifications {
		if c.Status != domain.StatusUnknown {
			known = append(known, c)
		}
	}

	if len(known) == 0 {
		return &domain.RiskScoreResult{
			HealthScore:           0,
			RiskScore:             0,
			Level:                 domain.LevelUnknown,
			CategoryScores:        map[domain.Category]domain.CategoryScore{},
			TriggeredInteractions: []domain.TriggeredInteraction{},
		}
	}

	abnormal := 0
	highDeviation := 0
	for _, c := range known {
		if c.IsAbnormal() {
			abnormal++
			if c.DeviationPercent > highDeviationThreshold {
				highDeviation++
			}
		}
	}

	triggered := s.detector.Detect(snap, known)
	penalties := PenaltiesByCluster(triggered)

	categoryScores := make(map[domain.Category]domain.CategoryScore)
	totalWeightedRisk := 0.0
	totalWeight := 0.0

	for _, cat := range domain.AllCategories() {
		info, ok := snap.CategoryInfo(cat)
		if !ok {
			continue
		}

		var markers []domain.Classification
		for _, c := range known {
			if c.Category == cat {
				markers = append(markers, c)
			}
		}
		if len(markers) == 0 {
			continue
		}

		catAbnormal := 0
		deviationSum := 0.0
		summaries := make([]domain.MarkerSummary, 0, len(markers))
		for _, c := range markers {
			if c.IsAbnormal() {
				catAbnormal++
				deviationSum += c.DeviationPercent
			}
			summaries = append(summaries, domain.MarkerSummary{
				Name:      c.Biomarker,
				Status:    c.Status,
				Deviation: c.DeviationPercent,
			})
		}

		ratio := float64(catAbnormal) / float64(len(markers))
		avgDeviation := 0.0
		if catAbnormal > 0 {
			avgDeviation = deviationSum / float64(catAbnormal)
		}
		severityFactor := math.Min(avgDeviation/50, 1.0)

		riskRaw := (ratio*60 + severityFactor*40) * info.Weight
		riskScore := int(math.Min(100, math.Round(riskRaw)))

		// Interaction penalties raise this cluster's risk before inversion.
		if penalty := penalties[cat]; penalty > 0 {
			riskScore = minInt(100, riskScore+penalty)
		}

		healthScore := maxInt(0, 100-riskScore)

		contribution := info.Weight * float64(len(markers))
		totalWeightedRisk += float64(riskScore) * contribution
		totalWeight += contribution

		notes := make([]domain.InteractionNote, 0)
		for _, rule := range triggered {
			if rule.AffectedCluster == cat {
				notes = append(notes, domain.InteractionNote{
					Name:     rule.Name,
					Modifier: rule.ScoreModifier,
				})
			}
		}

		categoryScores[cat] = domain.CategoryScore{
			Label:                info.Label,
			Icon:                 info.Icon,
			HealthScore:          healthScore,
			StatusLabel:          categoryStatusLabel(healthScore),
			TotalMarkers:         len(markers),
			AbnormalMarkers:      catAbnormal,
			Markers:              summaries,
			InteractionModifiers: notes,
		}
	}

	overallRisk := 0.0
	if totalWeight > 0 {
		overallRisk = totalWeightedRisk / totalWeight
		overallRisk = math.Min(100, overallRisk+float64(highDeviation)*2)
	}
	// Round the risk once and derive health from it so the pair always
	// sums to 100.
	overallRiskScore := int(math.Round(overallRisk))
	healthScore := maxInt(0, 100-overallRiskScore)

	result := &domain.RiskScoreResult{
		HealthScore:           healthScore,
		RiskScore:             overallRiskScore,
		Level:                 overallLevel(healthScore),
		TotalMarkers:          len(known),
		AbnormalMarkers:       abnormal,
		HighDeviationMarkers:  highDeviation,
		CategoryScores:        categoryScores,
		TriggeredInteractions: toTriggeredInteractions(triggered),
	}

	s.logger.WithFields(logrus.Fields{
		"health_score":     result.HealthScore,
		"level":            result.Level,
		"total_markers":    result.TotalMarkers,
		"abnormal_markers": result.AbnormalMarkers,
		"interactions":     len(result.TriggeredInteractions),
	}).Info("Composed risk score")

	return result
}

// categoryStatusLabel bands a category health score for display.
func categoryStatusLabel(healthScore int) string {
	switch {
	case healthScore >= 90:
		return "Healthy"
	case healthScore >= 70:
		return "Mild Concern"
	case healthScore >= 40:
		return "Needs Attention"
	default:
		return "High Risk"
	}
}

// overallLevel bands the overall health score.
func overallLevel(healthScore int) domain.RiskLevel {
	switch {
	case healthScore >= 85:
		return domain.LevelExcellent
	case healthScore >= 70:
		return domain.LevelGood
	case healthScore >= 50:
		return domain.LevelModerate
	case healthScore >= 30:
		return domain.LevelNeedsAttention
	default:
		return domain.LevelHighRisk
	}
}

func toTriggeredInteractions(rules []domain.InteractionRule) []domain.TriggeredInteraction {
	out := make([]domain.TriggeredInteraction, len(rules))
	for i, rule := range rules {
		out[i] = domain.TriggeredInteraction{
			ID:                   rule.ID,
			Name:                 rule.Name,
			Description:          rule.Description,
			ScoreModifier:        rule.ScoreModifier,
			AffectedCluster:      rule.AffectedCluster,
			Priority:             rule.Priority,
			ClinicalSignificance: rule.ClinicalSignificance,
			Recommendations:      rule.Recommendations,
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

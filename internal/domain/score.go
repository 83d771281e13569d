package domain

// MarkerSummary is the per-marker line item inside a category breakdown.
type MarkerSummary struct {
	Name      string  `json:"name"`
	Status    Status  `json:"status"`
	Deviation float64 `json:"deviation"`
}

// InteractionNote records an interaction modifier that affected a category.
type InteractionNote struct {
	Name     string `json:"name"`
	Modifier int    `json:"modifier"`
}

// CategoryScore is the per-category health breakdown. HealthScore follows
// the 100 = all normal, 0 = all severely abnormal convention.
type CategoryScore struct {
	Label                string            `json:"label"`
	Icon                 string            `json:"icon"`
	HealthScore          int               `json:"health_score"`
	StatusLabel          string            `json:"status_label"`
	TotalMarkers         int               `json:"total_markers"`
	AbnormalMarkers      int               `json:"abnormal_markers"`
	Markers              []MarkerSummary   `json:"markers"`
	InteractionModifiers []InteractionNote `json:"interaction_modifiers"`
}

// TriggeredInteraction is an interaction rule that fired for an analysis,
// as surfaced in the scoring result.
type TriggeredInteraction struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	ScoreModifier        int                 `json:"score_modifier"`
	AffectedCluster      Category            `json:"affected_cluster"`
	Priority             int                 `json:"priority"`
	ClinicalSignificance string              `json:"clinical_significance"`
	Recommendations      map[string][]string `json:"triggered_recommendations,omitempty"`
}

// RiskScoreResult is the complete scoring output for one analysis and the
// sole interface consumed by downstream narrative generation and reporting.
// Invariant: HealthScore = 100 - RiskScore, both clamped to [0, 100].
type RiskScoreResult struct {
	HealthScore           int                        `json:"score"`
	RiskScore             int                        `json:"risk_score"`
	Level                 RiskLevel                  `json:"level"`
	TotalMarkers          int                        `json:"total_markers"`
	AbnormalMarkers       int                        `json:"abnormal_markers"`
	HighDeviationMarkers  int                        `json:"high_deviation_markers"`
	CategoryScores        map[Category]CategoryScore `json:"category_scores"`
	TriggeredInteractions []TriggeredInteraction     `json:"triggered_interactions"`
}

package domain

import (
	"errors"
	"fmt"
)

// RuleOperator combines the conditions of an interaction rule.
type RuleOperator string

const (
	OperatorAnd RuleOperator = "AND"
	OperatorOr  RuleOperator = "OR"
)

// IsValid reports whether the operator is recognized.
func (o RuleOperator) IsValid() bool {
	return o == OperatorAnd || o == OperatorOr
}

// RuleCondition is one (biomarker, required status) predicate of an
// interaction rule. A biomarker absent from the classification set is
// treated as normal during evaluation.
type RuleCondition struct {
	BiomarkerKey   string `json:"biomarker_key" yaml:"biomarker_key"`
	RequiredStatus Status `json:"required_status" yaml:"required_status"`
}

// InteractionRule captures a clinically significant co-occurrence of marker
// statuses with an associated health-score penalty. Rules are catalog data:
// loaded once, validated at load time, immutable afterwards.
type InteractionRule struct {
	ID                   string              `json:"id" yaml:"id"`
	Name                 string              `json:"name" yaml:"name"`
	Description          string              `json:"description" yaml:"description"`
	Operator             RuleOperator        `json:"operator" yaml:"operator"`
	Conditions           []RuleCondition     `json:"conditions" yaml:"conditions"`
	ScoreModifier        int                 `json:"score_modifier" yaml:"score_modifier"`
	AffectedCluster      Category            `json:"affected_cluster" yaml:"affected_cluster"`
	Priority             int                 `json:"priority" yaml:"priority"`
	ClinicalSignificance string              `json:"clinical_significance" yaml:"clinical_significance"`
	Recommendations      map[string][]string `json:"triggered_recommendations" yaml:"triggered_recommendations"`
}

// Penalty is the positive health-score penalty applied when the rule fires.
func (r *InteractionRule) Penalty() int {
	if r.ScoreModifier < 0 {
		return -r.ScoreModifier
	}
	return r.ScoreModifier
}

// Validate fails fast on malformed rule entries so that scoring never has
// to handle structurally invalid catalog data.
func (r *InteractionRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("interaction rule validation: %w", errors.New("id is required"))
	}
	if r.Name == "" {
		return fmt.Errorf("interaction rule %q validation: %w", r.ID, errors.New("name is required"))
	}
	if !r.Operator.IsValid() {
		return fmt.Errorf("interaction rule %q validation: %w: %q", r.ID, ErrInvalidOperator, r.Operator)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("interaction rule %q validation: %w", r.ID, errors.New("at least one condition is required"))
	}
	for i, cond := range r.Conditions {
		if cond.BiomarkerKey == "" {
			return fmt.Errorf("interaction rule %q validation: condition %d is missing a biomarker key", r.ID, i)
		}
		if !cond.RequiredStatus.IsValid() {
			return fmt.Errorf("interaction rule %q validation: condition %d: %w: %q", r.ID, i, ErrInvalidStatus, cond.RequiredStatus)
		}
	}
	if r.ScoreModifier >= 0 {
		return fmt.Errorf("interaction rule %q validation: score modifier must be negative, got %d", r.ID, r.ScoreModifier)
	}
	if !r.AffectedCluster.IsValid() {
		return fmt.Errorf("interaction rule %q validation: %w: affected cluster %q", r.ID, ErrInvalidCategory, r.AffectedCluster)
	}
	return nil
}

// PatternClause is one parsed clause of a cluster trigger pattern, e.g.
// "Low Hb". Key is the canonical biomarker key the alias resolved to, or
// empty when the alias is not in the alias table; unresolved clauses are
// skipped at match time rather than failing the pattern.
type PatternClause struct {
	Status Status `json:"status"`
	Alias  string `json:"alias"`
	Key    string `json:"key,omitempty"`
}

// TriggerPattern is a named multi-marker pattern mapped to a diagnosis
// label. The textual pattern is parsed into Clauses once at catalog load,
// never re-parsed per request.
type TriggerPattern struct {
	Cluster      Category        `json:"cluster"`
	ClusterLabel string          `json:"cluster_label"`
	Pattern      string          `json:"pattern"`
	Diagnosis    string          `json:"diagnosis"`
	Priority     int             `json:"priority"`
	Clauses      []PatternClause `json:"-"`
}

// PatternMatch is a matched trigger pattern as returned to callers.
type PatternMatch struct {
	Cluster      Category `json:"cluster"`
	ClusterLabel string   `json:"cluster_label"`
	Pattern      string   `json:"pattern"`
	Diagnosis    string   `json:"diagnosis"`
	Priority     int      `json:"priority"`
}

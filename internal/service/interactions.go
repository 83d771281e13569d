package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
)

// InteractionDetector evaluates the rule catalog's interaction modifiers
// against a classification set.
type InteractionDetector struct {
	logger *logrus.Logger
}

// NewInteractionDetector creates a new interaction detector.
func NewInteractionDetector(logger *logrus.Logger) *InteractionDetector {
	return &InteractionDetector{logger: logger}
}

// statusLookup builds the key -> status map used by rule and pattern
// evaluation. A biomarker referenced by a rule but absent from the
// classification set reads as normal.
func statusLookup(classifications []domain.Classification) map[string]domain.Status {
	lookup := make(map[string]domain.Status, len(classifications))
	for _, c := range classifications {
		lookup[c.Key] = c.Status
	}
	return lookup
}

func lookupStatus(lookup map[string]domain.Status, key string) domain.Status {
	if status, ok := lookup[key]; ok {
		return status
	}
	return domain.StatusNormal
}

// Detect returns the rules triggered by the classification set, sorted
// ascending by priority. The sort is stable so that equal-priority rules
// keep their catalog order, which keeps results deterministic.
func (d *InteractionDetector) Detect(snap *catalog.Snapshot, classifications []domain.Classification) []domain.InteractionRule {
	lookup := statusLookup(classifications)

	triggered := make([]domain.InteractionRule, 0)
	for _, rule := range snap.Rules {
		if ruleMatches(&rule, lookup) {
			triggered = append(triggered, rule)
		}
	}

	sort.SliceStable(triggered, func(i, j int) bool {
		return triggered[i].Priority < triggered[j].Priority
	})

	if len(triggered) > 0 {
		d.logger.WithFields(logrus.Fields{
			"triggered_rules": len(triggered),
			"total_rules":     len(snap.Rules),
		}).Debug("Interaction modifiers detected")
	}

	return triggered
}

// ruleMatches evaluates one rule. AND requires every condition to hold;
// OR short-circuits on the first matching condition.
func ruleMatches(rule *domain.InteractionRule, lookup map[string]domain.Status) bool {
	if rule.Operator == domain.OperatorOr {
		for _, cond := range rule.Conditions {
			if lookupStatus(lookup, cond.BiomarkerKey) == cond.RequiredStatus {
				return true
			}
		}
		return false
	}
	for _, cond := range rule.Conditions {
		if lookupStatus(lookup, cond.BiomarkerKey) != cond.RequiredStatus {
			return false
		}
	}
	return true
}

// PenaltiesByCluster sums the absolute score modifiers of triggered rules
// per affected cluster. The totals additively raise the cluster's risk
// score before inversion to a health score.
func PenaltiesByCluster(triggered []domain.InteractionRule) map[domain.Category]int {
	penalties := make(map[domain.Category]int)
	for _, rule := range triggered {
		penalties[rule.AffectedCluster] += rule.Penalty()
	}
	return penalties
}

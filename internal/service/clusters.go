package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
)

// ClusterMatcher evaluates pre-parsed cluster trigger patterns against a
// classification set, producing named diagnostic pattern matches.
type ClusterMatcher struct {
	logger *logrus.Logger
}

// NewClusterMatcher creates a new cluster pattern matcher.
func NewClusterMatcher(logger *logrus.Logger) *ClusterMatcher {
	return &ClusterMatcher{logger: logger}
}

// Detect returns the patterns matched by the classification set, sorted
// ascending by priority with catalog order preserved on ties.
func (m *ClusterMatcher) Detect(snap *catalog.Snapshot, classifications []domain.Classification) []domain.PatternMatch {
	lookup := statusLookup(classifications)

	matches := make([]domain.PatternMatch, 0)
	for _, trigger := range snap.Triggers {
		if patternMatches(&trigger, lookup) {
			matches = append(matches, domain.PatternMatch{
				Cluster:      trigger.Cluster,
				ClusterLabel: trigger.ClusterLabel,
				Pattern:      trigger.Pattern,
				Diagnosis:    trigger.Diagnosis,
				Priority:     trigger.Priority,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority < matches[j].Priority
	})

	if len(matches) > 0 {
		m.logger.WithField("matched_patterns", len(matches)).Debug("Cluster trigger patterns matched")
	}

	return matches
}

// patternMatches requires every resolvable clause to hold. A clause whose
// alias never resolved to a known biomarker is skipped rather than failing
// the match; a biomarker missing from the classification set reads as
// normal.
func patternMatches(trigger *domain.TriggerPattern, lookup map[string]domain.Status) bool {
	for _, clause := range trigger.Clauses {
		if clause.Key == "" {
			continue
		}
		if lookupStatus(lookup, clause.Key) != clause.Status {
			return false
		}
	}
	return true
}

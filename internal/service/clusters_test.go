package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
)

func triggerSnapshot(triggers ...domain.TriggerPattern) *catalog.Snapshot {
	return &catalog.Snapshot{Triggers: triggers}
}

var anemiaTrigger = domain.TriggerPattern{
	Cluster:      domain.CategoryBloodHealth,
	ClusterLabel: "Blood Health / Anemia",
	Pattern:      "Low Hb + Low Ferritin",
	Diagnosis:    "Iron-deficiency anemia pattern",
	Priority:     1,
	Clauses: []domain.PatternClause{
		{Status: domain.StatusLow, Alias: "Hb", Key: "hemoglobin"},
		{Status: domain.StatusLow, Alias: "Ferritin", Key: "ferritin"},
	},
}

func TestClusterMatcherDetect(t *testing.T) {
	matcher := NewClusterMatcher(testLogger())
	snap := triggerSnapshot(anemiaTrigger)

	t.Run("matches when every clause holds", func(t *testing.T) {
		matches := matcher.Detect(snap, []domain.Classification{
			lowClassification("hemoglobin"),
			lowClassification("ferritin"),
		})
		require.Len(t, matches, 1)
		assert.Equal(t, "Iron-deficiency anemia pattern", matches[0].Diagnosis)
		assert.Equal(t, domain.CategoryBloodHealth, matches[0].Cluster)
		assert.Equal(t, "Low Hb + Low Ferritin", matches[0].Pattern)
	})

	t.Run("does not match on one failing clause", func(t *testing.T) {
		matches := matcher.Detect(snap, []domain.Classification{
			lowClassification("hemoglobin"),
			highClassification("ferritin"),
		})
		assert.Empty(t, matches)
	})

	t.Run("absent biomarker reads as normal", func(t *testing.T) {
		matches := matcher.Detect(snap, []domain.Classification{
			lowClassification("hemoglobin"),
		})
		assert.Empty(t, matches)
	})
}

func TestClusterMatcherNormalClause(t *testing.T) {
	matcher := NewClusterMatcher(testLogger())
	snap := triggerSnapshot(domain.TriggerPattern{
		Cluster:   domain.CategoryMetabolic,
		Pattern:   "High Glucose + Normal HbA1c",
		Diagnosis: "Isolated fasting hyperglycemia",
		Priority:  2,
		Clauses: []domain.PatternClause{
			{Status: domain.StatusHigh, Alias: "Glucose", Key: "fasting_glucose"},
			{Status: domain.StatusNormal, Alias: "HbA1c", Key: "hba1c"},
		},
	})

	// HbA1c absent from the report still satisfies the Normal clause.
	matches := matcher.Detect(snap, []domain.Classification{
		highClassification("fasting_glucose"),
	})
	require.Len(t, matches, 1)
	assert.Equal(t, "Isolated fasting hyperglycemia", matches[0].Diagnosis)
}

func TestClusterMatcherSkipsUnresolvedClause(t *testing.T) {
	matcher := NewClusterMatcher(testLogger())
	trigger := anemiaTrigger
	trigger.Clauses = []domain.PatternClause{
		{Status: domain.StatusLow, Alias: "Hb", Key: "hemoglobin"},
		{Status: domain.StatusLow, Alias: "Homocysteine"}, // never resolved
	}
	snap := triggerSnapshot(trigger)

	matches := matcher.Detect(snap, []domain.Classification{
		lowClassification("hemoglobin"),
	})
	require.Len(t, matches, 1)
}

func TestClusterMatcherPriorityOrdering(t *testing.T) {
	matcher := NewClusterMatcher(testLogger())

	triggerAt := func(diagnosis string, priority int) domain.TriggerPattern {
		return domain.TriggerPattern{
			Cluster:   domain.CategoryBloodHealth,
			Pattern:   "Low Hb",
			Diagnosis: diagnosis,
			Priority:  priority,
			Clauses: []domain.PatternClause{
				{Status: domain.StatusLow, Alias: "Hb", Key: "hemoglobin"},
			},
		}
	}

	snap := triggerSnapshot(triggerAt("second", 2), triggerAt("also second", 2), triggerAt("first", 1))

	matches := matcher.Detect(snap, []domain.Classification{lowClassification("hemoglobin")})

	require.Len(t, matches, 3)
	assert.Equal(t, "first", matches[0].Diagnosis)
	assert.Equal(t, "second", matches[1].Diagnosis)
	assert.Equal(t, "also second", matches[2].Diagnosis)
}

func TestClusterMatcherAgainstShippedCatalog(t *testing.T) {
	snap := loadSnapshot(t)
	matcher := NewClusterMatcher(testLogger())

	matches := matcher.Detect(snap, []domain.Classification{
		lowClassification("hemoglobin"),
		lowClassification("ferritin"),
	})

	require.NotEmpty(t, matches)
	assert.Equal(t, "Iron-deficiency anemia pattern", matches[0].Diagnosis)
	assert.Equal(t, 1, matches[0].Priority)
}

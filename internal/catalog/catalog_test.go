package catalog

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomarker-scoring-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func noWarn(string, ...any) {}

func TestBuildSnapshotEmbedded(t *testing.T) {
	snap, err := buildSnapshot("", 1, noWarn)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Version)
	assert.Len(t, snap.Biomarkers, 14)
	assert.Len(t, snap.MarkerOrder, 14)
	assert.Len(t, snap.Categories, 7)
	assert.Len(t, snap.Rules, 9)
	assert.Len(t, snap.Triggers, 13)
	assert.NotEmpty(t, snap.OrderingRules)

	def, ok := snap.Definition("hemoglobin")
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin", def.DisplayName)
	assert.Equal(t, domain.CategoryBloodHealth, def.Category)
	assert.Equal(t, domain.Range{Low: 12.0, High: 15.5}, def.FemaleRange)

	info, ok := snap.CategoryInfo(domain.CategoryMetabolic)
	require.True(t, ok)
	assert.Equal(t, 1.3, info.Weight)

	// Reference catalog order is preserved.
	assert.Equal(t, "hemoglobin", snap.MarkerOrder[0])
	assert.Equal(t, "sgpt_alt", snap.MarkerOrder[13])
}

func TestBuildSnapshotTriggerOrder(t *testing.T) {
	snap, err := buildSnapshot("", 1, noWarn)
	require.NoError(t, err)

	// Cluster keys are sorted, so blood_health triggers come first and are
	// already parsed into clauses.
	first := snap.Triggers[0]
	assert.Equal(t, domain.CategoryBloodHealth, first.Cluster)
	assert.Equal(t, "Low Hb + Low Ferritin", first.Pattern)
	require.Len(t, first.Clauses, 2)
	assert.Equal(t, "hemoglobin", first.Clauses[0].Key)
	assert.Equal(t, "ferritin", first.Clauses[1].Key)

	// Every shipped pattern alias resolves to a catalog biomarker.
	for _, trigger := range snap.Triggers {
		for _, clause := range trigger.Clauses {
			assert.NotEmpty(t, clause.Key, "pattern %q alias %q", trigger.Pattern, clause.Alias)
			_, ok := snap.Definition(clause.Key)
			assert.True(t, ok)
		}
	}
}

func writeCatalogDir(t *testing.T, reference, rules string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "biomarker_reference.json"), []byte(reference), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interaction_rules.json"), []byte(rules), 0644))
	return dir
}

const minimalRules = `{"interaction_modifiers": [], "cluster_triggers": {}}`

func TestBuildSnapshotValidation(t *testing.T) {
	validReference := `{
		"categories": {"blood_health": {"label": "Blood Health", "weight": 1.0, "icon": "droplet"}},
		"biomarkers": [
			{"key": "hemoglobin", "display_name": "Hemoglobin", "unit": "g/dL", "category": "blood_health",
			 "male_range": {"low": 13.5, "high": 17.5}, "female_range": {"low": 12.0, "high": 15.5}}
		]
	}`

	tests := []struct {
		name      string
		reference string
		rules     string
		wantErr   string
	}{
		{
			name:      "malformed reference json",
			reference: `{"categories": `,
			rules:     minimalRules,
			wantErr:   "failed to decode reference catalog",
		},
		{
			name: "unknown category key",
			reference: `{
				"categories": {"cardiac": {"label": "Cardiac", "weight": 1.0}},
				"biomarkers": []
			}`,
			rules:   minimalRules,
			wantErr: "invalid risk category",
		},
		{
			name: "duplicate biomarker key",
			reference: `{
				"categories": {"blood_health": {"label": "Blood Health", "weight": 1.0}},
				"biomarkers": [
					{"key": "hemoglobin", "display_name": "Hemoglobin", "unit": "g/dL", "category": "blood_health",
					 "male_range": {"low": 13.5, "high": 17.5}, "female_range": {"low": 12.0, "high": 15.5}},
					{"key": "hemoglobin", "display_name": "Hemoglobin", "unit": "g/dL", "category": "blood_health",
					 "male_range": {"low": 13.5, "high": 17.5}, "female_range": {"low": 12.0, "high": 15.5}}
				]
			}`,
			rules:   minimalRules,
			wantErr: "duplicate biomarker key",
		},
		{
			name: "no biomarkers",
			reference: `{
				"categories": {"blood_health": {"label": "Blood Health", "weight": 1.0}},
				"biomarkers": []
			}`,
			rules:   minimalRules,
			wantErr: "catalog is empty",
		},
		{
			name: "biomarker references undefined category",
			reference: `{
				"categories": {"blood_health": {"label": "Blood Health", "weight": 1.0}},
				"biomarkers": [
					{"key": "tsh", "display_name": "TSH", "unit": "mIU/L", "category": "hormonal",
					 "male_range": {"low": 0.4, "high": 4.0}, "female_range": {"low": 0.4, "high": 4.0}}
				]
			}`,
			rules:   minimalRules,
			wantErr: "no category definition",
		},
		{
			name:      "inverted range",
			reference: `{
				"categories": {"blood_health": {"label": "Blood Health", "weight": 1.0}},
				"biomarkers": [
					{"key": "hemoglobin", "display_name": "Hemoglobin", "unit": "g/dL", "category": "blood_health",
					 "male_range": {"low": 17.5, "high": 13.5}, "female_range": {"low": 12.0, "high": 15.5}}
				]
			}`,
			rules:   minimalRules,
			wantErr: "male range low",
		},
		{
			name:      "rule with positive modifier",
			reference: validReference,
			rules: `{
				"interaction_modifiers": [
					{"id": "r1", "name": "R1", "operator": "AND",
					 "conditions": [{"biomarker_key": "hemoglobin", "required_status": "low"}],
					 "score_modifier": 10, "affected_cluster": "blood_health", "priority": 1}
				],
				"cluster_triggers": {}
			}`,
			wantErr: "score modifier must be negative",
		},
		{
			name:      "rule condition references unknown biomarker",
			reference: validReference,
			rules: `{
				"interaction_modifiers": [
					{"id": "r1", "name": "R1", "operator": "AND",
					 "conditions": [{"biomarker_key": "homocysteine", "required_status": "high"}],
					 "score_modifier": -5, "affected_cluster": "blood_health", "priority": 1}
				],
				"cluster_triggers": {}
			}`,
			wantErr: "unknown biomarker",
		},
		{
			name:      "duplicate rule id",
			reference: validReference,
			rules: `{
				"interaction_modifiers": [
					{"id": "r1", "name": "R1", "operator": "AND",
					 "conditions": [{"biomarker_key": "hemoglobin", "required_status": "low"}],
					 "score_modifier": -5, "affected_cluster": "blood_health", "priority": 1},
					{"id": "r1", "name": "R1 again", "operator": "AND",
					 "conditions": [{"biomarker_key": "hemoglobin", "required_status": "low"}],
					 "score_modifier": -5, "affected_cluster": "blood_health", "priority": 1}
				],
				"cluster_triggers": {}
			}`,
			wantErr: "duplicate rule id",
		},
		{
			name:      "trigger with bad status word",
			reference: validReference,
			rules: `{
				"interaction_modifiers": [],
				"cluster_triggers": {
					"blood_health": {
						"trigger_patterns": [
							{"pattern": "Elevated Hb", "diagnosis": "bad", "priority": 1}
						]
					}
				}
			}`,
			wantErr: "unrecognized status word",
		},
		{
			name:      "trigger missing diagnosis",
			reference: validReference,
			rules: `{
				"interaction_modifiers": [],
				"cluster_triggers": {
					"blood_health": {
						"trigger_patterns": [
							{"pattern": "Low Hb", "priority": 1}
						]
					}
				}
			}`,
			wantErr: "diagnosis is required",
		},
		{
			name:      "trigger under invalid cluster",
			reference: validReference,
			rules: `{
				"interaction_modifiers": [],
				"cluster_triggers": {
					"cardiac": {
						"trigger_patterns": [
							{"pattern": "Low Hb", "diagnosis": "d", "priority": 1}
						]
					}
				}
			}`,
			wantErr: "invalid risk category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeCatalogDir(t, tt.reference, tt.rules)
			_, err := buildSnapshot(dir, 1, noWarn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildSnapshotUnresolvedAliasWarns(t *testing.T) {
	reference := `{
		"categories": {"blood_health": {"label": "Blood Health", "weight": 1.0, "icon": "droplet"}},
		"biomarkers": [
			{"key": "hemoglobin", "display_name": "Hemoglobin", "unit": "g/dL", "category": "blood_health",
			 "male_range": {"low": 13.5, "high": 17.5}, "female_range": {"low": 12.0, "high": 15.5}}
		]
	}`
	rules := `{
		"interaction_modifiers": [],
		"cluster_triggers": {
			"blood_health": {
				"trigger_patterns": [
					{"pattern": "Low Hb + Low Homocysteine", "diagnosis": "mixed", "priority": 1}
				]
			}
		}
	}`
	dir := writeCatalogDir(t, reference, rules)

	warnings := 0
	snap, err := buildSnapshot(dir, 1, func(string, ...any) { warnings++ })
	require.NoError(t, err)

	assert.Equal(t, 1, warnings)
	require.Len(t, snap.Triggers, 1)
	require.Len(t, snap.Triggers[0].Clauses, 2)
	assert.Equal(t, "hemoglobin", snap.Triggers[0].Clauses[0].Key)
	assert.Empty(t, snap.Triggers[0].Clauses[1].Key)
}

func TestStoreReload(t *testing.T) {
	store, err := NewStore(testLogger(), "")
	require.NoError(t, err)

	first := store.Snapshot()
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Version)

	second, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Same(t, second, store.Snapshot())
}

func TestStoreReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	refData, err := os.ReadFile(filepath.Join("data", "biomarker_reference.json"))
	require.NoError(t, err)
	ruleData, err := os.ReadFile(filepath.Join("data", "interaction_rules.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "biomarker_reference.json"), refData, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interaction_rules.json"), ruleData, 0644))

	store, err := NewStore(testLogger(), dir)
	require.NoError(t, err)
	active := store.Snapshot()

	// Corrupt the rule catalog; the reload must fail and the active
	// snapshot must stay untouched.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interaction_rules.json"), []byte(`{"interaction_modifiers": `), 0644))

	_, err = store.Reload()
	require.Error(t, err)
	assert.Same(t, active, store.Snapshot())

	// A fixed catalog reloads with a bumped version.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interaction_rules.json"), ruleData, 0644))
	snap, err := store.Reload()
	require.NoError(t, err)
	assert.Greater(t, snap.Version, active.Version)
}

func TestReadCatalogFileYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	yamlRef := `
categories:
  blood_health:
    label: Blood Health
    weight: 1.0
    icon: droplet
biomarkers:
  - key: hemoglobin
    display_name: Hemoglobin
    unit: g/dL
    category: blood_health
    male_range: {low: 13.5, high: 17.5}
    female_range: {low: 12.0, high: 15.5}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "biomarker_reference.yaml"), []byte(yamlRef), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interaction_rules.json"), []byte(minimalRules), 0644))

	snap, err := buildSnapshot(dir, 1, noWarn)
	require.NoError(t, err)
	assert.Len(t, snap.Biomarkers, 1)

	def, ok := snap.Definition("hemoglobin")
	require.True(t, ok)
	assert.Equal(t, domain.Range{Low: 12.0, High: 15.5}, def.FemaleRange)
}

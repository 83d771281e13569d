// Package catalog loads and serves the immutable biomarker reference
// catalog and rule catalog. Catalogs are validated once at load time and
// shared by all concurrent analyses; reload swaps a complete snapshot
// atomically instead of mutating in place.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/biomarker-scoring-server/internal/domain"
)

//go:embed data/*.json
var embeddedData embed.FS

const (
	referenceFileName = "biomarker_reference"
	rulesFileName     = "interaction_rules"
)

// Snapshot is one immutable version of the loaded catalogs. All fields are
// read-only after construction.
type Snapshot struct {
	Version  int
	LoadedAt time.Time

	Biomarkers    map[string]*domain.BiomarkerDefinition
	MarkerOrder   []string
	Categories    map[domain.Category]domain.CategoryInfo
	Rules         []domain.InteractionRule
	Triggers      []domain.TriggerPattern
	OrderingRules []string
}

// Definition resolves a biomarker definition by key.
func (s *Snapshot) Definition(key string) (*domain.BiomarkerDefinition, bool) {
	def, ok := s.Biomarkers[key]
	return def, ok
}

// CategoryInfo resolves display metadata and weight for a category.
func (s *Snapshot) CategoryInfo(c domain.Category) (domain.CategoryInfo, bool) {
	info, ok := s.Categories[c]
	return info, ok
}

// referenceFile is the on-disk shape of the reference catalog.
type referenceFile struct {
	Categories map[domain.Category]domain.CategoryInfo `json:"categories" yaml:"categories"`
	Biomarkers []domain.BiomarkerDefinition            `json:"biomarkers" yaml:"biomarkers"`
}

// rulesFile is the on-disk shape of the rule catalog.
type rulesFile struct {
	InteractionModifiers []domain.InteractionRule       `json:"interaction_modifiers" yaml:"interaction_modifiers"`
	ClusterTriggers      map[string]clusterTriggerGroup `json:"cluster_triggers" yaml:"cluster_triggers"`
	PriorityRules        struct {
		OrderingRules []string `json:"ordering_rules" yaml:"ordering_rules"`
	} `json:"priority_rules" yaml:"priority_rules"`
}

type clusterTriggerGroup struct {
	Description     string       `json:"description" yaml:"description"`
	TriggerPatterns []rawPattern `json:"trigger_patterns" yaml:"trigger_patterns"`
}

type rawPattern struct {
	Pattern   string `json:"pattern" yaml:"pattern"`
	Diagnosis string `json:"diagnosis" yaml:"diagnosis"`
	Priority  int    `json:"priority" yaml:"priority"`
}

// readCatalogFile reads a catalog file from dir when present, preferring
// JSON then YAML extensions, and falls back to the embedded copy.
func readCatalogFile(dir, name string) ([]byte, bool, error) {
	if dir != "" {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			data, err := os.ReadFile(path)
			if err == nil {
				return data, ext != ".json", nil
			}
			if !os.IsNotExist(err) {
				return nil, false, fmt.Errorf("failed to read catalog file %s: %w", path, err)
			}
		}
	}
	data, err := embeddedData.ReadFile("data/" + name + ".json")
	if err != nil {
		return nil, false, fmt.Errorf("failed to read embedded catalog %s: %w", name, err)
	}
	return data, false, nil
}

func decodeCatalog(data []byte, isYAML bool, out any) error {
	if isYAML {
		return yaml.Unmarshal(data, out)
	}
	return json.Unmarshal(data, out)
}

// buildSnapshot loads, decodes, and validates both catalogs into a new
// snapshot. Any malformed entry aborts the load with an error naming the
// offending entry; scoring never sees a structurally invalid catalog.
func buildSnapshot(dir string, version int, warn func(format string, args ...any)) (*Snapshot, error) {
	refData, refYAML, err := readCatalogFile(dir, referenceFileName)
	if err != nil {
		return nil, err
	}
	var ref referenceFile
	if err := decodeCatalog(refData, refYAML, &ref); err != nil {
		return nil, fmt.Errorf("failed to decode reference catalog: %w", err)
	}

	ruleData, ruleYAML, err := readCatalogFile(dir, rulesFileName)
	if err != nil {
		return nil, err
	}
	var rules rulesFile
	if err := decodeCatalog(ruleData, ruleYAML, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode rule catalog: %w", err)
	}

	snap := &Snapshot{
		Version:       version,
		LoadedAt:      time.Now().UTC(),
		Biomarkers:    make(map[string]*domain.BiomarkerDefinition, len(ref.Biomarkers)),
		MarkerOrder:   make([]string, 0, len(ref.Biomarkers)),
		Categories:    make(map[domain.Category]domain.CategoryInfo, len(ref.Categories)),
		OrderingRules: rules.PriorityRules.OrderingRules,
	}

	for cat, info := range ref.Categories {
		if !cat.IsValid() {
			return nil, fmt.Errorf("reference catalog: %w: %q", domain.ErrInvalidCategory, cat)
		}
		if err := info.Validate(); err != nil {
			return nil, fmt.Errorf("reference catalog category %q: %w", cat, err)
		}
		snap.Categories[cat] = info
	}

	for i := range ref.Biomarkers {
		def := ref.Biomarkers[i]
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("reference catalog entry %d: %w", i, err)
		}
		if _, exists := snap.Biomarkers[def.Key]; exists {
			return nil, fmt.Errorf("reference catalog entry %d: duplicate biomarker key %q", i, def.Key)
		}
		if _, ok := snap.Categories[def.Category]; !ok {
			return nil, fmt.Errorf("reference catalog entry %q: category %q has no category definition", def.Key, def.Category)
		}
		snap.Biomarkers[def.Key] = &def
		snap.MarkerOrder = append(snap.MarkerOrder, def.Key)
	}
	if len(snap.Biomarkers) == 0 {
		return nil, fmt.Errorf("reference catalog: %w", domain.ErrEmptyCatalog)
	}

	snap.Rules = make([]domain.InteractionRule, 0, len(rules.InteractionModifiers))
	seenRules := make(map[string]bool, len(rules.InteractionModifiers))
	for i, rule := range rules.InteractionModifiers {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule catalog entry %d: %w", i, err)
		}
		if seenRules[rule.ID] {
			return nil, fmt.Errorf("rule catalog entry %d: duplicate rule id %q", i, rule.ID)
		}
		seenRules[rule.ID] = true
		for _, cond := range rule.Conditions {
			if _, ok := snap.Biomarkers[cond.BiomarkerKey]; !ok {
				return nil, fmt.Errorf("rule catalog entry %q: condition references unknown biomarker %q", rule.ID, cond.BiomarkerKey)
			}
		}
		snap.Rules = append(snap.Rules, rule)
	}

	triggers, err := buildTriggers(rules.ClusterTriggers, snap, warn)
	if err != nil {
		return nil, err
	}
	snap.Triggers = triggers

	return snap, nil
}

// buildTriggers parses cluster trigger patterns into tagged clause lists.
// Cluster keys are sorted so the catalog order is deterministic; the stable
// priority sort at match time then preserves this order on ties.
func buildTriggers(groups map[string]clusterTriggerGroup, snap *Snapshot, warn func(format string, args ...any)) ([]domain.TriggerPattern, error) {
	clusterKeys := make([]string, 0, len(groups))
	for key := range groups {
		clusterKeys = append(clusterKeys, key)
	}
	sort.Strings(clusterKeys)

	var triggers []domain.TriggerPattern
	for _, key := range clusterKeys {
		cluster := domain.Category(key)
		if !cluster.IsValid() {
			return nil, fmt.Errorf("rule catalog cluster trigger: %w: %q", domain.ErrInvalidCategory, key)
		}
		label := key
		if info, ok := snap.Categories[cluster]; ok {
			label = info.Label
		}
		for i, raw := range groups[key].TriggerPatterns {
			if raw.Pattern == "" {
				return nil, fmt.Errorf("rule catalog cluster %q trigger %d: pattern is required", key, i)
			}
			if raw.Diagnosis == "" {
				return nil, fmt.Errorf("rule catalog cluster %q trigger %d: diagnosis is required", key, i)
			}
			clauses, err := ParsePattern(raw.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule catalog cluster %q trigger %d: %w", key, i, err)
			}
			for _, clause := range clauses {
				if clause.Key == "" {
					warn("cluster trigger pattern %q: alias %q does not resolve to a known biomarker; clause will be skipped at match time", raw.Pattern, clause.Alias)
				}
			}
			triggers = append(triggers, domain.TriggerPattern{
				Cluster:      cluster,
				ClusterLabel: label,
				Pattern:      raw.Pattern,
				Diagnosis:    raw.Diagnosis,
				Priority:     raw.Priority,
				Clauses:      clauses,
			})
		}
	}
	return triggers, nil
}

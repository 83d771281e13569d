package catalog

import (
	"fmt"
	"strings"

	"github.com/biomarker-scoring-server/internal/domain"
)

// markerAliases maps short clinical abbreviations used in trigger pattern
// strings to canonical biomarker keys. Lookup is case-insensitive.
var markerAliases = map[string]string{
	"hb":                "hemoglobin",
	"hemoglobin":        "hemoglobin",
	"rbc":               "rbc_count",
	"rbc count":         "rbc_count",
	"ferritin":          "ferritin",
	"b12":               "vitamin_b12",
	"vitamin b12":       "vitamin_b12",
	"vit d":             "vitamin_d",
	"vitamin d":         "vitamin_d",
	"glucose":           "fasting_glucose",
	"fasting glucose":   "fasting_glucose",
	"hba1c":             "hba1c",
	"cholesterol":       "total_cholesterol",
	"total cholesterol": "total_cholesterol",
	"ldl":               "ldl",
	"hdl":               "hdl",
	"triglycerides":     "triglycerides",
	"tg":                "triglycerides",
	"crp":               "hs_crp",
	"hs-crp":            "hs_crp",
	"tsh":               "tsh",
	"alt":               "sgpt_alt",
	"sgpt":              "sgpt_alt",
}

// ResolveAlias maps a pattern marker alias to its canonical biomarker key.
func ResolveAlias(alias string) (string, bool) {
	key, ok := markerAliases[strings.ToLower(strings.TrimSpace(alias))]
	return key, ok
}

// ParsePattern parses a trigger pattern expression such as
// "Low Hb + Low Ferritin" into tagged clauses. The grammar is a sequence of
// "+"-joined clauses, each "<StatusWord> <MarkerAlias>" with StatusWord one
// of Low/High/Normal (case-insensitive). A clause whose alias is not in the
// alias table is kept with an empty Key and skipped at match time.
func ParsePattern(pattern string) ([]domain.PatternClause, error) {
	parts := strings.Split(pattern, "+")
	clauses := make([]domain.PatternClause, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("pattern %q: empty clause", pattern)
		}
		fields := strings.Fields(part)
		if len(fields) < 2 {
			return nil, fmt.Errorf("pattern %q: clause %q must be '<status> <marker>'", pattern, part)
		}
		status, ok := domain.ParseStatus(fields[0])
		if !ok || status == domain.StatusUnknown {
			return nil, fmt.Errorf("pattern %q: clause %q has unrecognized status word %q", pattern, part, fields[0])
		}
		alias := strings.Join(fields[1:], " ")
		key, _ := ResolveAlias(alias)
		clauses = append(clauses, domain.PatternClause{
			Status: status,
			Alias:  alias,
			Key:    key,
		})
	}

	if len(clauses) == 0 {
		return nil, fmt.Errorf("pattern %q: no clauses", pattern)
	}
	return clauses, nil
}

package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/biomarker-scoring-server/internal/catalog"
	"github.com/biomarker-scoring-server/internal/domain"
)

// UserProfile is the patient context echoed back with each analysis.
type UserProfile struct {
	Age    int     `json:"age"`
	Gender string  `json:"gender"`
	Height float64 `json:"height,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

// AnalysisResult is the full structured output for one analysis call. It is
// the context handed to external narrative generation and reporting; this
// service produces no free text itself.
type AnalysisResult struct {
	UserProfile     UserProfile             `json:"user_profile"`
	Classifications []domain.Classification `json:"classifications"`
	RiskScore       *domain.RiskScoreResult `json:"risk_score"`
	PatternMatches  []domain.PatternMatch   `json:"pattern_matches"`
	CatalogVersion  int                     `json:"catalog_version"`
	ProcessingTime  time.Duration           `json:"processing_time"`
}

// AnalyzerService orchestrates classification, scoring, and cluster pattern
// matching over the active catalog snapshot. Scoring is deterministic, so
// identical inputs against the same snapshot may be served from a small
// in-memory cache.
type AnalyzerService struct {
	logger     *logrus.Logger
	catalog    *catalog.Store
	classifier *ClassifierService
	scorer     *ScoringService
	matcher    *ClusterMatcher
	cache      *lru.Cache[string, *AnalysisResult]
}

// NewAnalyzerService creates the analysis orchestrator. cacheSize <= 0
// disables result caching.
func NewAnalyzerService(logger *logrus.Logger, store *catalog.Store, cacheSize int) (*AnalyzerService, error) {
	s := &AnalyzerService{
		logger:     logger,
		catalog:    store,
		classifier: NewClassifierService(logger),
		scorer:     NewScoringService(logger),
		matcher:    NewClusterMatcher(logger),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, *AnalysisResult](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Analyze runs the full scoring pipeline for one request. Each invocation
// works on call-local data only; concurrent analyses share nothing but the
// immutable snapshot.
func (s *AnalyzerService) Analyze(profile UserProfile, inputs []BiomarkerInput) *AnalysisResult {
	start := time.Now()
	snap := s.catalog.Snapshot()
	gender := domain.ResolveGender(profile.Gender)

	cacheKey := ""
	if s.cache != nil {
		cacheKey = analysisDigest(snap.Version, gender, inputs)
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.logger.WithField("digest", cacheKey[:12]).Debug("Analysis served from cache")
			result := *cached
			result.UserProfile = profile
			return &result
		}
	}

	classifications := s.classifier.ClassifyAll(snap, inputs, gender)
	riskScore := s.scorer.ComposeScore(snap, classifications)
	patterns := s.matcher.Detect(snap, classifications)

	result := &AnalysisResult{
		UserProfile:     profile,
		Classifications: classifications,
		RiskScore:       riskScore,
		PatternMatches:  patterns,
		CatalogVersion:  snap.Version,
		ProcessingTime:  time.Since(start),
	}

	if s.cache != nil {
		s.cache.Add(cacheKey, result)
	}

	s.logger.WithFields(logrus.Fields{
		"gender":          gender,
		"markers":         len(classifications),
		"health_score":    riskScore.HealthScore,
		"level":           riskScore.Level,
		"patterns":        len(patterns),
		"catalog_version": snap.Version,
		"elapsed":         result.ProcessingTime,
	}).Info("Analysis completed")

	return result
}

// analysisDigest builds a deterministic cache key from the catalog version,
// resolved gender, and the ordered raw inputs.
func analysisDigest(version int, gender domain.Gender, inputs []BiomarkerInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d|%s", version, gender)
	for _, in := range inputs {
		fmt.Fprintf(&b, "|%s=%v", in.Key, in.Value)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

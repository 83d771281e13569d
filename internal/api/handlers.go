package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/biomarker-scoring-server/internal/domain"
	"github.com/biomarker-scoring-server/internal/history"
	"github.com/biomarker-scoring-server/internal/service"
)

var genderPattern = regexp.MustCompile(`^(?i)(male|female|m|f)$`)

// UserProfileRequest carries patient context for an analysis.
type UserProfileRequest struct {
	Age            int      `json:"age" binding:"required,gte=1,lte=120"`
	Gender         string   `json:"gender" binding:"required"`
	Height         *float64 `json:"height" binding:"omitempty,gte=50,lte=300"`
	Weight         *float64 `json:"weight" binding:"omitempty,gte=20,lte=500"`
	DietPreference string   `json:"diet_preference,omitempty"`
}

// BiomarkerRequest carries the raw lab values. Bounds are plausibility
// limits on the lab units, not normal ranges; out-of-bounds values are
// rejected before classification.
type BiomarkerRequest struct {
	Hemoglobin       *float64 `json:"hemoglobin" binding:"omitempty,gte=0,lte=25"`
	RBCCount         *float64 `json:"rbc_count" binding:"omitempty,gte=0,lte=10"`
	Ferritin         *float64 `json:"ferritin" binding:"omitempty,gte=0,lte=5000"`
	VitaminB12       *float64 `json:"vitamin_b12" binding:"omitempty,gte=0,lte=5000"`
	VitaminD         *float64 `json:"vitamin_d" binding:"omitempty,gte=0,lte=200"`
	FastingGlucose   *float64 `json:"fasting_glucose" binding:"omitempty,gte=0,lte=600"`
	HbA1c            *float64 `json:"hba1c" binding:"omitempty,gte=0,lte=20"`
	TotalCholesterol *float64 `json:"total_cholesterol" binding:"omitempty,gte=0,lte=600"`
	LDL              *float64 `json:"ldl" binding:"omitempty,gte=0,lte=500"`
	HDL              *float64 `json:"hdl" binding:"omitempty,gte=0,lte=200"`
	Triglycerides    *float64 `json:"triglycerides" binding:"omitempty,gte=0,lte=1000"`
	HsCRP            *float64 `json:"hs_crp" binding:"omitempty,gte=0,lte=50"`
	TSH              *float64 `json:"tsh" binding:"omitempty,gte=0,lte=100"`
	SgptALT          *float64 `json:"sgpt_alt" binding:"omitempty,gte=0,lte=2000"`
}

// inputs flattens the request into ordered engine inputs, preserving the
// declared field order. Absent values pass through as nil and are skipped
// by the classifier.
func (r *BiomarkerRequest) inputs() []service.BiomarkerInput {
	fields := []struct {
		key   string
		value *float64
	}{
		{"hemoglobin", r.Hemoglobin},
		{"rbc_count", r.RBCCount},
		{"ferritin", r.Ferritin},
		{"vitamin_b12", r.VitaminB12},
		{"vitamin_d", r.VitaminD},
		{"fasting_glucose", r.FastingGlucose},
		{"hba1c", r.HbA1c},
		{"total_cholesterol", r.TotalCholesterol},
		{"ldl", r.LDL},
		{"hdl", r.HDL},
		{"triglycerides", r.Triglycerides},
		{"hs_crp", r.HsCRP},
		{"tsh", r.TSH},
		{"sgpt_alt", r.SgptALT},
	}

	inputs := make([]service.BiomarkerInput, 0, len(fields))
	for _, f := range fields {
		var value any
		if f.value != nil {
			value = *f.value
		}
		inputs = append(inputs, service.BiomarkerInput{Key: f.key, Value: value})
	}
	return inputs
}

// AnalysisRequest is the body of POST /api/v1/analyze.
type AnalysisRequest struct {
	Profile    UserProfileRequest `json:"profile" binding:"required"`
	Biomarkers BiomarkerRequest   `json:"biomarkers" binding:"required"`
}

// AnalysisResponse wraps the engine result with its persisted identifier.
type AnalysisResponse struct {
	AnalysisID string `json:"analysis_id"`
	*service.AnalysisResult
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(c *gin.Context) {
	snap := s.catalog.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC(),
		"catalog_version": snap.Version,
		"biomarkers":      len(snap.Biomarkers),
	})
}

// handleAnalyze runs the scoring pipeline for one biomarker report.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !genderPattern.MatchString(req.Profile.Gender) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gender must be one of male, female, m, f (any case)"})
		return
	}

	profile := service.UserProfile{
		Age:    req.Profile.Age,
		Gender: req.Profile.Gender,
	}
	if req.Profile.Height != nil {
		profile.Height = *req.Profile.Height
	}
	if req.Profile.Weight != nil {
		profile.Weight = *req.Profile.Weight
	}

	result := s.analyzer.Analyze(profile, req.Biomarkers.inputs())

	resp := &AnalysisResponse{
		AnalysisID:     uuid.New().String(),
		AnalysisResult: result,
	}

	s.persistAnalysis(c, resp)

	c.JSON(http.StatusOK, resp)
}

// persistAnalysis stores a summary of the analysis when a history store is
// configured. Persistence failure degrades to a log entry; the analysis
// response is still returned.
func (s *Server) persistAnalysis(c *gin.Context, resp *AnalysisResponse) {
	if s.history == nil {
		return
	}

	payload, err := json.Marshal(resp.AnalysisResult)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode analysis for history")
		return
	}

	record := &history.Record{
		ID:              resp.AnalysisID,
		Gender:          resp.UserProfile.Gender,
		Age:             resp.UserProfile.Age,
		HealthScore:     resp.RiskScore.HealthScore,
		RiskLevel:       resp.RiskScore.Level.String(),
		TotalMarkers:    resp.RiskScore.TotalMarkers,
		AbnormalMarkers: resp.RiskScore.AbnormalMarkers,
		Result:          payload,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.history.Save(c.Request.Context(), record); err != nil {
		s.logger.WithError(err).WithField("analysis_id", resp.AnalysisID).Warn("Failed to persist analysis history")
	}
}

// handleListBiomarkers returns the active reference catalog.
func (s *Server) handleListBiomarkers(c *gin.Context) {
	snap := s.catalog.Snapshot()

	definitions := make([]*domain.BiomarkerDefinition, 0, len(snap.MarkerOrder))
	for _, key := range snap.MarkerOrder {
		if def, ok := snap.Definition(key); ok {
			definitions = append(definitions, def)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"catalog_version": snap.Version,
		"biomarkers":      definitions,
		"categories":      snap.Categories,
	})
}

// handleReloadCatalog atomically swaps in freshly loaded catalogs.
func (s *Server) handleReloadCatalog(c *gin.Context) {
	snap, err := s.catalog.Reload()
	if err != nil {
		s.logger.WithError(err).Error("Catalog reload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "reloaded",
		"catalog_version": snap.Version,
		"biomarkers":      len(snap.Biomarkers),
		"rules":           len(snap.Rules),
		"triggers":        len(snap.Triggers),
	})
}

// handleListHistory returns persisted analyses newest-first.
func (s *Server) handleListHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store is not configured"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := s.history.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := s.history.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"records": records,
	})
}

// handleGetHistory returns one persisted analysis by ID.
func (s *Server) handleGetHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store is not configured"})
		return
	}

	record, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleDeleteHistory removes one persisted analysis.
func (s *Server) handleDeleteHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history store is not configured"})
		return
	}

	err := s.history.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

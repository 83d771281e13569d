// Package history provides persistence for completed analysis summaries so
// reports can be listed and re-opened later. The scoring engine itself
// never touches this store; persistence belongs to the serving layer.
package history

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one persisted analysis summary.
type Record struct {
	ID              string          `json:"id"`
	Gender          string          `json:"gender"`
	Age             int             `json:"age"`
	HealthScore     int             `json:"health_score"`
	RiskLevel       string          `json:"risk_level"`
	TotalMarkers    int             `json:"total_markers"`
	AbnormalMarkers int             `json:"abnormal_markers"`
	Result          json.RawMessage `json:"result"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Store defines the interface for analysis history storage.
type Store interface {
	// Save persists an analysis record.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by its analysis ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest-first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases resources.
	Close() error
}

package models

import (
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // prescription.processed, risk.scored, recommendation.generated
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Risk scoring
type RiskScoreResponse struct {
	RiskScore float64 `json:"risk_score"`
}

// Recommendations
type Recommendation struct {
	Category string `json:"category"`
	Severity string `json:"severity"` // info, warning, urgent
	Finding  string `json:"finding"`
	Advice   string `json:"advice"`
}

type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Summary         string           `json:"summary"`
	GeneratedBy     string           `json:"generated_by"`
}

// DLP & PHI Detection
type PHIDetectionResult struct {
	Detected    bool          `json:"detected"`
	Confidence  float64       `json:"confidence"`
	PHITypes    []string      `json:"phi_types"` // SSN, DOB, Name, Address, etc.
	Positions   []PHIPosition `json:"positions"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

type PHIPosition struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

package recommend

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/healthtwin/platform/pkg/common/models"
)

func generateRules(t *testing.T, vitals, bodyParams map[string]interface{}) models.RecommendationResponse {
	t.Helper()
	out, err := NewRulesGenerator().Generate(context.Background(), vitals, bodyParams)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var resp models.RecommendationResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("output is not a recommendation response: %v", err)
	}
	return resp
}

func TestRulesGeneratorSample(t *testing.T) {
	vitals, bodyParams, err := ParseRequest([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	resp := generateRules(t, vitals, bodyParams)

	if resp.GeneratedBy != "rules" {
		t.Fatalf("unexpected generator %q", resp.GeneratedBy)
	}
	categories := map[string]string{}
	for _, r := range resp.Recommendations {
		if _, seen := categories[r.Category]; !seen {
			categories[r.Category] = r.Severity
		}
	}
	want := map[string]string{
		"cardiovascular": severityWarning,
		"blood_pressure": severityWarning,
		"respiratory":    severityWarning,
		"weight":         severityWarning,
		"screening":      severityInfo,
	}
	for category, severity := range want {
		if categories[category] != severity {
			t.Fatalf("expected %s %s, got %q (all: %v)", category, severity, categories[category], categories)
		}
	}
	if len(resp.Recommendations) != 6 {
		t.Fatalf("expected 6 recommendations, got %d", len(resp.Recommendations))
	}
	if resp.Summary != "5 finding(s) need follow-up with a clinician." {
		t.Fatalf("unexpected summary %q", resp.Summary)
	}
}

func TestRulesGeneratorNormalValues(t *testing.T) {
	resp := generateRules(t,
		map[string]interface{}{"heart_rate": 72.0, "blood_pressure": "118/76", "spo2": 98.0, "respiratory_rate": 14.0},
		map[string]interface{}{"age": 30.0, "weight": 70.0, "height": 1.75},
	)
	if len(resp.Recommendations) != 0 {
		t.Fatalf("expected no findings, got %+v", resp.Recommendations)
	}
	if resp.Summary != "All provided values are within typical ranges." {
		t.Fatalf("unexpected summary %q", resp.Summary)
	}
}

func TestRulesGeneratorUrgentFindings(t *testing.T) {
	resp := generateRules(t,
		map[string]interface{}{"spo2": "88", "bp": map[string]interface{}{"systolic": 185.0, "diastolic": 100.0}, "temperature": 102.2},
		map[string]interface{}{"gender": "F"},
	)
	var urgent int
	for _, r := range resp.Recommendations {
		if r.Severity == severityUrgent {
			urgent++
		}
	}
	if urgent != 2 {
		t.Fatalf("expected urgent oxygen and blood pressure findings, got %+v", resp.Recommendations)
	}
	if resp.Recommendations[len(resp.Recommendations)-1].Category != "temperature" {
		t.Fatalf("expected fahrenheit temperature to be flagged as fever")
	}
}

func TestComputeBMI(t *testing.T) {
	bmi, ok := computeBMI(map[string]interface{}{"weight": json.Number("95"), "height": json.Number("175")})
	if !ok || bmi != 31 {
		t.Fatalf("expected 31, got %v (%v)", bmi, ok)
	}
	if _, ok := computeBMI(map[string]interface{}{"weight": 80.0}); ok {
		t.Fatal("expected no bmi without height")
	}
}

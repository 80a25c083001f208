package dlp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectorDetectsPatterns(t *testing.T) {
	rules := DefaultRules()
	detector, err := NewDetector(rules)
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	data := map[string]interface{}{
		"raw_text": "Patient John Doe MRN 00123456 email john@example.com",
		"nested":   map[string]interface{}{"phone": "(555) 123-4567"},
	}

	result := detector.Detect(data)
	if !result.Detected {
		t.Fatal("expected PHI detection")
	}
	if len(result.PHITypes) < 2 {
		t.Fatalf("expected at least two PHI types, got %v", result.PHITypes)
	}

	sanitized := detector.Sanitize(data)
	note := sanitized["raw_text"].(string)
	if note == data["raw_text"].(string) {
		t.Fatal("expected sanitized text to differ from original")
	}
	if strings.Contains(note, "00123456") {
		t.Fatalf("expected MRN masked, got %q", note)
	}
}

func TestSanitizeTextLeavesCleanTextAlone(t *testing.T) {
	detector, err := NewDetector(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}
	text := "Tab Metformin 500 mg BD for 30 days"
	if got := detector.SanitizeText(text); got != text {
		t.Fatalf("expected unchanged text, got %q", got)
	}

	var nilDetector *Detector
	if got := nilDetector.SanitizeText("123-45-6789"); got != "123-45-6789" {
		t.Fatal("nil detector must be a no-op")
	}
}

func TestLoadRulesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - name: Aadhaar
    type: national_id
    pattern: '\b\d{4}\s\d{4}\s\d{4}\b'
    mask: '#### #### ####'
    enabled: true
    severity: high
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	cfg, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	detector, err := NewDetector(cfg)
	if err != nil {
		t.Fatalf("compile rules: %v", err)
	}
	if got := detector.SanitizeText("id 1234 5678 9012"); got != "id #### #### ####" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
}

func TestLoadRulesRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	os.WriteFile(path, []byte("rules: []\n"), 0o600)
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for empty rules")
	}
}

func TestDetectReportsSortedTypesAndPositions(t *testing.T) {
	detector, err := NewDetector(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}
	result := detector.Detect(map[string]interface{}{
		"contacts": []interface{}{"a@b.org", "123-45-6789"},
		"score":    0.4,
	})
	if len(result.PHITypes) != 2 || result.PHITypes[0] != "email" || result.PHITypes[1] != "ssn" {
		t.Fatalf("unexpected types %v", result.PHITypes)
	}
	if len(result.Positions) != 2 || result.Confidence != 0.85 {
		t.Fatalf("unexpected positions %v (confidence %f)", result.Positions, result.Confidence)
	}

	clean := detector.Detect(map[string]interface{}{"risk_score": 0.12})
	if clean.Detected || clean.Suggestions != nil {
		t.Fatalf("expected nothing detected, got %+v", clean)
	}
}

func TestNewDetectorReportsBadPattern(t *testing.T) {
	_, err := NewDetector(RulesConfig{Rules: []Rule{{Name: "broken", Pattern: "(", Enabled: true}}})
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected error naming the rule, got %v", err)
	}
}

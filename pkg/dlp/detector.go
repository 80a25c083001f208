package dlp

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/healthtwin/platform/pkg/common/models"
)

type matcher struct {
	kind string
	mask string
	re   *regexp.Regexp
}

// Detector finds and masks PHI in the string leaves of JSON-like values.
type Detector struct {
	matchers []matcher
}

func NewDetector(cfg RulesConfig) (*Detector, error) {
	d := &Detector{}
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("dlp rule %q: %w", rule.Name, err)
		}
		d.matchers = append(d.matchers, matcher{kind: rule.Type, mask: rule.Mask, re: re})
	}
	return d, nil
}

// Detect reports every match in data. Non-string scalars are checked in
// their printed form, so numeric identifiers are found too.
func (d *Detector) Detect(data map[string]interface{}) models.PHIDetectionResult {
	var result models.PHIDetectionResult
	if d == nil {
		return result
	}

	kinds := map[string]bool{}
	masks := map[string]bool{}
	walk(data, func(text string) string {
		for _, m := range d.matchers {
			for _, loc := range m.re.FindAllStringIndex(text, -1) {
				kinds[m.kind] = true
				masks[m.mask] = true
				result.Positions = append(result.Positions, models.PHIPosition{
					Start: loc[0],
					End:   loc[1],
					Type:  m.kind,
					Value: text[loc[0]:loc[1]],
				})
			}
		}
		return text
	}, true)

	result.Detected = len(result.Positions) > 0
	result.Confidence = confidence(len(result.Positions))
	result.PHITypes = sortedKeys(kinds)
	if len(masks) > 0 {
		result.Suggestions = sortedKeys(masks)
	}
	return result
}

// SanitizeText masks every enabled rule match in text.
func (d *Detector) SanitizeText(text string) string {
	if d == nil {
		return text
	}
	for _, m := range d.matchers {
		text = m.re.ReplaceAllString(text, m.mask)
	}
	return text
}

// Sanitize returns a deep copy of data with every string value masked.
func (d *Detector) Sanitize(data map[string]interface{}) map[string]interface{} {
	if d == nil {
		return data
	}
	return walk(data, d.SanitizeText, false).(map[string]interface{})
}

// walk rebuilds value, passing each string leaf through fn. With scalars
// set, numbers and booleans are passed in printed form but kept unchanged.
func walk(value interface{}, fn func(string) string, scalars bool) interface{} {
	switch v := value.(type) {
	case string:
		return fn(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, nested := range v {
			out[k] = walk(nested, fn, scalars)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = walk(nested, fn, scalars)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = walk(nested, fn, scalars)
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = fn(nested)
		}
		return out
	case nil:
		return nil
	default:
		if scalars {
			fn(fmt.Sprint(v))
		}
		return value
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func confidence(matches int) float64 {
	switch {
	case matches == 0:
		return 0
	case matches == 1:
		return 0.7
	case matches == 2:
		return 0.85
	default:
		return 0.95
	}
}

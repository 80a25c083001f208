package ocr

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	patientRe = regexp.MustCompile(`(?im)^[ \t]*(?:patient(?:'s)?[ \t]*name|patient|name|pt\.?)[ \t]*[:\-][ \t]*([A-Za-z][A-Za-z .']+)`)
	ageRe     = regexp.MustCompile(`(?i)\bage[ \t]*[:\-]?[ \t]*(\d{1,3})\b`)
	ageUnitRe = regexp.MustCompile(`(?i)\b(\d{1,3})[ \t]*(?:years?|yrs?|y)\b`)
	genderRe  = regexp.MustCompile(`(?i)\b(?:sex|gender)[ \t]*[:\-]?[ \t]*(male|female|other|m|f)\b`)
	doctorRe  = regexp.MustCompile(`\b(Dr\.?[ \t]+[A-Z][A-Za-z.]*(?:[ \t]+[A-Z][A-Za-z.]*)*)`)
	dateRe    = regexp.MustCompile(`\b(\d{1,2}[/.\-]\d{1,2}[/.\-](?:\d{4}|\d{2}))\b`)

	medicationRe = regexp.MustCompile(`(?i)^[ \t]*(?:\d+[.)][ \t]*)?(?:(?:tabs?|tablet|caps?|capsule|syp|syrup|inj|injection|oint|drops?)\.?[ \t]+)?([a-z][a-z0-9\-]*(?:[ \t]+[a-z][a-z0-9\-]*)*?)[ \t]+(\d+(?:\.\d+)?[ \t]*(?:mcg|mg|gm|g|ml|iu|units?|%))(.*)$`)
	frequencyRe  = regexp.MustCompile(`(?i)\b(once daily|twice daily|thrice daily|once a day|twice a day|od|bd|bid|tds|tid|qid|qds|hs|sos|stat|\d[ \t]*-[ \t]*\d[ \t]*-[ \t]*\d)\b`)
	durationRe   = regexp.MustCompile(`(?i)(?:\bfor|\bx|×)[ \t]*(\d+[ \t]*(?:days?|weeks?|months?))\b`)
)

var patientStopWords = []string{"age", "sex", "gender", "date", "dob"}

// RuleExtractor pulls common prescription fields out of OCR text with
// regular expressions. Fields it cannot find are reported as null.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

func (RuleExtractor) Extract(_ context.Context, text string) (map[string]interface{}, error) {
	fields := map[string]interface{}{
		"patient_name": nil,
		"age":          nil,
		"gender":       nil,
		"doctor_name":  nil,
		"date":         nil,
		"medications":  extractMedications(text),
		"raw_text":     text,
	}

	if m := patientRe.FindStringSubmatch(text); m != nil {
		if name := cutAtStopWord(m[1]); name != "" {
			fields["patient_name"] = name
		}
	}
	if age, ok := extractAge(text); ok {
		fields["age"] = age
	}
	if m := genderRe.FindStringSubmatch(text); m != nil {
		fields["gender"] = normalizeGender(m[1])
	}
	if m := doctorRe.FindStringSubmatch(text); m != nil {
		fields["doctor_name"] = trimCredentials(m[1])
	}
	if m := dateRe.FindStringSubmatch(text); m != nil {
		fields["date"] = m[1]
	}

	return fields, nil
}

func extractAge(text string) (int, bool) {
	for _, re := range []*regexp.Regexp{ageRe, ageUnitRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if age, err := strconv.Atoi(m[1]); err == nil && age > 0 && age < 150 {
				return age, true
			}
		}
	}
	return 0, false
}

func extractMedications(text string) []map[string]interface{} {
	meds := []map[string]interface{}{}
	for _, line := range strings.Split(text, "\n") {
		m := medicationRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		med := map[string]interface{}{
			"name":   strings.TrimSpace(m[1]),
			"dosage": strings.Join(strings.Fields(m[2]), " "),
		}
		if f := frequencyRe.FindStringSubmatch(m[3]); f != nil {
			med["frequency"] = strings.ToUpper(strings.Join(strings.Fields(f[1]), " "))
		}
		if d := durationRe.FindStringSubmatch(m[3]); d != nil {
			med["duration"] = strings.Join(strings.Fields(d[1]), " ")
		}
		meds = append(meds, med)
	}
	return meds
}

func cutAtStopWord(name string) string {
	lower := strings.ToLower(name)
	cut := len(name)
	for _, word := range patientStopWords {
		if idx := strings.Index(lower, " "+word); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(name[:cut])
}

// trimCredentials drops trailing degree abbreviations such as MBBS or MD.
func trimCredentials(name string) string {
	tokens := strings.Fields(name)
	for len(tokens) > 2 {
		last := strings.Trim(tokens[len(tokens)-1], ".,")
		if len(last) < 2 || strings.ToUpper(last) != last {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.TrimRight(strings.Join(tokens, " "), ".,")
}

func normalizeGender(v string) string {
	switch strings.ToLower(v) {
	case "m", "male":
		return "M"
	case "f", "female":
		return "F"
	default:
		return "O"
	}
}

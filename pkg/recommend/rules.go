package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/healthtwin/platform/pkg/common/models"
)

const (
	severityInfo    = "info"
	severityWarning = "warning"
	severityUrgent  = "urgent"
)

// RulesGenerator applies fixed adult reference ranges. It needs no external
// service and is the default generator.
type RulesGenerator struct{}

func NewRulesGenerator() *RulesGenerator {
	return &RulesGenerator{}
}

func (g *RulesGenerator) Generate(_ context.Context, vitals, bodyParams map[string]interface{}) (json.RawMessage, error) {
	var recs []models.Recommendation
	recs = append(recs, checkHeartRate(vitals)...)
	recs = append(recs, checkBloodPressure(vitals)...)
	recs = append(recs, checkOxygen(vitals)...)
	recs = append(recs, checkRespiration(vitals)...)
	recs = append(recs, checkTemperature(vitals)...)
	recs = append(recs, checkBMI(bodyParams)...)
	recs = append(recs, checkAge(bodyParams, len(recs) > 0)...)

	resp := models.RecommendationResponse{
		Recommendations: recs,
		Summary:         summarize(recs),
		GeneratedBy:     "rules",
	}
	if resp.Recommendations == nil {
		resp.Recommendations = []models.Recommendation{}
	}
	return json.Marshal(resp)
}

func checkHeartRate(vitals map[string]interface{}) []models.Recommendation {
	hr, ok := lookupNumber(vitals, "heart_rate", "hr", "pulse")
	if !ok {
		return nil
	}
	switch {
	case hr > 120:
		return []models.Recommendation{{Category: "cardiovascular", Severity: severityUrgent,
			Finding: fmt.Sprintf("Heart rate of %s bpm is markedly elevated", format(hr)),
			Advice:  "Seek prompt medical evaluation, especially with chest pain, dizziness or breathlessness."}}
	case hr > 100:
		return []models.Recommendation{{Category: "cardiovascular", Severity: severityWarning,
			Finding: fmt.Sprintf("Heart rate of %s bpm is above the resting range (60-100)", format(hr)),
			Advice:  "Rest, hydrate and limit caffeine; recheck after 15 minutes and consult a clinician if it stays high."}}
	case hr < 50:
		return []models.Recommendation{{Category: "cardiovascular", Severity: severityWarning,
			Finding: fmt.Sprintf("Heart rate of %s bpm is below the resting range", format(hr)),
			Advice:  "Consult a clinician if accompanied by fatigue, fainting or shortness of breath."}}
	}
	return nil
}

func checkBloodPressure(vitals map[string]interface{}) []models.Recommendation {
	sys, dia, ok := bloodPressure(vitals)
	if !ok {
		return nil
	}
	reading := fmt.Sprintf("%s/%s mmHg", format(sys), format(dia))
	switch {
	case sys >= 180 || dia >= 120:
		return []models.Recommendation{{Category: "blood_pressure", Severity: severityUrgent,
			Finding: "Blood pressure " + reading + " is in the hypertensive crisis range",
			Advice:  "Seek emergency care if there is headache, chest pain, vision change or weakness."}}
	case sys >= 140 || dia >= 90:
		return []models.Recommendation{{Category: "blood_pressure", Severity: severityWarning,
			Finding: "Blood pressure " + reading + " indicates stage 2 hypertension",
			Advice:  "Reduce salt intake, stay active and arrange a clinician review of blood pressure management."}}
	case sys >= 130 || dia >= 80:
		return []models.Recommendation{{Category: "blood_pressure", Severity: severityInfo,
			Finding: "Blood pressure " + reading + " is above the normal range",
			Advice:  "Monitor regularly and favour a low-sodium diet with regular exercise."}}
	case sys < 90 || dia < 60:
		return []models.Recommendation{{Category: "blood_pressure", Severity: severityWarning,
			Finding: "Blood pressure " + reading + " is low",
			Advice:  "Hydrate and rise slowly; consult a clinician if dizzy or faint."}}
	}
	return nil
}

func checkOxygen(vitals map[string]interface{}) []models.Recommendation {
	spo2, ok := lookupNumber(vitals, "spo2", "oxygen_saturation", "sp_o2")
	if !ok {
		return nil
	}
	switch {
	case spo2 < 90:
		return []models.Recommendation{{Category: "respiratory", Severity: severityUrgent,
			Finding: fmt.Sprintf("Oxygen saturation of %s%% is critically low", format(spo2)),
			Advice:  "Seek immediate medical attention."}}
	case spo2 < 95:
		return []models.Recommendation{{Category: "respiratory", Severity: severityWarning,
			Finding: fmt.Sprintf("Oxygen saturation of %s%% is below the normal range (95-100%%)", format(spo2)),
			Advice:  "Recheck at rest; consult a clinician if it stays below 95% or breathing is difficult."}}
	}
	return nil
}

func checkRespiration(vitals map[string]interface{}) []models.Recommendation {
	rr, ok := lookupNumber(vitals, "respiratory_rate", "rr", "breathing_rate")
	if !ok {
		return nil
	}
	switch {
	case rr > 20:
		return []models.Recommendation{{Category: "respiratory", Severity: severityWarning,
			Finding: fmt.Sprintf("Respiratory rate of %s breaths/min is elevated (12-20)", format(rr)),
			Advice:  "Rest and recheck; persistent fast breathing warrants clinical assessment."}}
	case rr < 12:
		return []models.Recommendation{{Category: "respiratory", Severity: severityWarning,
			Finding: fmt.Sprintf("Respiratory rate of %s breaths/min is below the normal range", format(rr)),
			Advice:  "Consult a clinician, particularly if drowsy or on sedating medication."}}
	}
	return nil
}

func checkTemperature(vitals map[string]interface{}) []models.Recommendation {
	temp, ok := lookupNumber(vitals, "temperature", "temp", "body_temperature")
	if !ok {
		return nil
	}
	if temp > 50 {
		temp = (temp - 32) * 5 / 9
	}
	switch {
	case temp >= 39.5:
		return []models.Recommendation{{Category: "temperature", Severity: severityUrgent,
			Finding: fmt.Sprintf("Body temperature of %s °C is a high fever", format(temp)),
			Advice:  "Seek medical care, keep hydrated and use antipyretics as directed."}}
	case temp >= 38:
		return []models.Recommendation{{Category: "temperature", Severity: severityWarning,
			Finding: fmt.Sprintf("Body temperature of %s °C indicates fever", format(temp)),
			Advice:  "Rest, hydrate and monitor; consult a clinician if it lasts more than 48 hours."}}
	case temp < 35:
		return []models.Recommendation{{Category: "temperature", Severity: severityUrgent,
			Finding: fmt.Sprintf("Body temperature of %s °C is below normal", format(temp)),
			Advice:  "Warm up gradually and seek medical attention."}}
	}
	return nil
}

func checkBMI(params map[string]interface{}) []models.Recommendation {
	bmi, ok := lookupNumber(params, "bmi")
	if !ok {
		bmi, ok = computeBMI(params)
	}
	if !ok {
		return nil
	}
	switch {
	case bmi >= 30:
		return []models.Recommendation{{Category: "weight", Severity: severityWarning,
			Finding: fmt.Sprintf("BMI of %s is in the obese range", format(bmi)),
			Advice:  "Aim for gradual weight loss through a calorie-controlled diet and 150 minutes of moderate activity per week."}}
	case bmi >= 25:
		return []models.Recommendation{{Category: "weight", Severity: severityInfo,
			Finding: fmt.Sprintf("BMI of %s is in the overweight range", format(bmi)),
			Advice:  "Increase physical activity and favour whole foods to reach a healthy weight."}}
	case bmi < 18.5:
		return []models.Recommendation{{Category: "weight", Severity: severityInfo,
			Finding: fmt.Sprintf("BMI of %s is underweight", format(bmi)),
			Advice:  "Consider a nutrition review to reach a healthy weight."}}
	}
	return nil
}

func checkAge(params map[string]interface{}, hasFindings bool) []models.Recommendation {
	age, ok := lookupNumber(params, "age")
	if !ok || age < 45 {
		return nil
	}
	advice := "Keep up annual check-ups including blood pressure, lipid and glucose screening."
	if hasFindings {
		advice = "Given the findings above, schedule a cardiovascular risk assessment including lipid and glucose screening."
	}
	return []models.Recommendation{{Category: "screening", Severity: severityInfo,
		Finding: fmt.Sprintf("Age %s is within the range for routine cardiometabolic screening", format(age)),
		Advice:  advice}}
}

func summarize(recs []models.Recommendation) string {
	var urgent, warning int
	for _, r := range recs {
		switch r.Severity {
		case severityUrgent:
			urgent++
		case severityWarning:
			warning++
		}
	}
	switch {
	case urgent > 0:
		return fmt.Sprintf("%d finding(s) need urgent attention and %d need follow-up.", urgent, warning)
	case warning > 0:
		return fmt.Sprintf("%d finding(s) need follow-up with a clinician.", warning)
	case len(recs) > 0:
		return "No urgent findings; see the general advice."
	default:
		return "All provided values are within typical ranges."
	}
}

func bloodPressure(vitals map[string]interface{}) (float64, float64, bool) {
	raw, ok := lookup(vitals, "blood_pressure", "bp")
	if !ok {
		sys, okS := lookupNumber(vitals, "systolic", "systolic_bp")
		dia, okD := lookupNumber(vitals, "diastolic", "diastolic_bp")
		return sys, dia, okS && okD
	}
	switch v := raw.(type) {
	case []interface{}:
		if len(v) != 2 {
			return 0, 0, false
		}
		sys, okS := toNumber(v[0])
		dia, okD := toNumber(v[1])
		return sys, dia, okS && okD
	case string:
		parts := strings.Split(v, "/")
		if len(parts) != 2 {
			return 0, 0, false
		}
		sys, okS := toNumber(strings.TrimSpace(parts[0]))
		dia, okD := toNumber(strings.TrimSpace(parts[1]))
		return sys, dia, okS && okD
	case map[string]interface{}:
		sys, okS := lookupNumber(v, "systolic", "sys")
		dia, okD := lookupNumber(v, "diastolic", "dia")
		return sys, dia, okS && okD
	}
	return 0, 0, false
}

// computeBMI uses weight in kg and height in cm, or metres when below 3.
func computeBMI(params map[string]interface{}) (float64, bool) {
	weight, okW := lookupNumber(params, "weight", "weight_kg")
	height, okH := lookupNumber(params, "height", "height_cm")
	if !okW || !okH || weight <= 0 || height <= 0 {
		return 0, false
	}
	if height >= 3 {
		height /= 100
	}
	return math.Round(weight/(height*height)*10) / 10, true
}

func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupNumber(m map[string]interface{}, keys ...string) (float64, bool) {
	v, ok := lookup(m, keys...)
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

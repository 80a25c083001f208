// Package risk validates fixed-shape vital-sign sequences and scores them
// with a pre-trained model.
package risk

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/healthtwin/platform/pkg/common/errs"
)

const (
	StepCount      = 5
	ParameterCount = 32

	MsgNoSequence = "No input_sequence provided"
	MsgOuterShape = "Input sequence must be a list of 5 time steps"
	MsgInnerShape = "Each time step must contain 32 parameters"
	MsgNonNumeric = "Each parameter must be a number"
)

// Sequence is StepCount observations of ParameterCount values each.
type Sequence [StepCount][ParameterCount]float64

// Rows returns the sequence as nested slices, the shape model servers expect.
func (s Sequence) Rows() [][]float64 {
	rows := make([][]float64, StepCount)
	for i := range s {
		rows[i] = append([]float64(nil), s[i][:]...)
	}
	return rows
}

func (s Sequence) Flatten() []float64 {
	out := make([]float64, 0, StepCount*ParameterCount)
	for i := range s {
		out = append(out, s[i][:]...)
	}
	return out
}

// Scorer is the pre-trained risk model.
type Scorer interface {
	Score(ctx context.Context, seq Sequence) (float64, error)
}

// ParseRequest decodes a {"input_sequence": [...]} body.
func ParseRequest(body []byte) (Sequence, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return Sequence{}, errs.Validation(MsgNoSequence)
	}
	raw, ok := envelope["input_sequence"]
	if !ok {
		return Sequence{}, errs.Validation(MsgNoSequence)
	}
	return ValidateSequence(raw)
}

// ValidateSequence checks raw is exactly StepCount lists of ParameterCount
// JSON numbers. The first violated constraint is reported.
func ValidateSequence(raw json.RawMessage) (Sequence, error) {
	var seq Sequence

	var steps []json.RawMessage
	if err := json.Unmarshal(raw, &steps); err != nil || len(steps) != StepCount {
		return Sequence{}, errs.Validation(MsgOuterShape)
	}

	for i, step := range steps {
		var params []json.RawMessage
		if err := json.Unmarshal(step, &params); err != nil || len(params) != ParameterCount {
			return Sequence{}, errs.Validation(MsgInnerShape)
		}
		for j, param := range params {
			value, ok := parseNumber(param)
			if !ok {
				return Sequence{}, errs.Validation(MsgNonNumeric)
			}
			seq[i][j] = value
		}
	}
	return seq, nil
}

// parseNumber accepts JSON number literals only; strings, booleans and null
// are rejected even when they would convert.
func parseNumber(raw json.RawMessage) (float64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, false
	}
	if c := trimmed[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, false
	}
	return v, true
}

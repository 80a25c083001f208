// Package recommend turns vitals and body parameters into health
// recommendations produced by a pluggable generator.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/healthtwin/platform/pkg/common/errs"
)

const MsgNoJSON = "Invalid input: No JSON data provided"

// Generator produces a ready-to-return JSON document for one input.
type Generator interface {
	Generate(ctx context.Context, vitals, bodyParams map[string]interface{}) (json.RawMessage, error)
}

// ParseRequest decodes a {"vitals": {...}, "body_params": {...}} body. Both
// members must be non-empty objects; numbers keep their literal form.
func ParseRequest(body []byte) (vitals, bodyParams map[string]interface{}, err error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope) == 0 {
		return nil, nil, errs.Validation(MsgNoJSON)
	}

	vitals = decodeObject(envelope["vitals"])
	bodyParams = decodeObject(envelope["body_params"])

	var missing []string
	if len(vitals) == 0 {
		missing = append(missing, "'vitals'")
	}
	if len(bodyParams) == 0 {
		missing = append(missing, "'body_params'")
	}
	if len(missing) > 0 {
		return nil, nil, errs.Validation("Invalid input: Missing " + strings.Join(missing, " and "))
	}
	return vitals, bodyParams, nil
}

// decodeObject returns nil for anything that is not a JSON object.
func decodeObject(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

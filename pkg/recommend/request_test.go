package recommend

import (
	"encoding/json"
	"testing"

	"github.com/healthtwin/platform/pkg/common/errs"
)

const sampleRequest = `{"vitals": {"heart_rate":110,"blood_pressure":[150,95],"spo2":93,"respiratory_rate":22}, "body_params":{"age":55,"gender":"M","bmi":31.2,"weight":95,"height":175}}`

func TestParseRequestSample(t *testing.T) {
	vitals, bodyParams, err := ParseRequest([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vitals["heart_rate"] != json.Number("110") {
		t.Fatalf("expected heart_rate kept as number literal, got %#v", vitals["heart_rate"])
	}
	if bodyParams["gender"] != "M" || bodyParams["bmi"] != json.Number("31.2") {
		t.Fatalf("body params not forwarded unmodified: %#v", bodyParams)
	}
}

func TestParseRequestRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, MsgNoJSON},
		{"not json", `vitals=1`, MsgNoJSON},
		{"null", `null`, MsgNoJSON},
		{"empty object", `{}`, MsgNoJSON},
		{"array", `[{"vitals":{}}]`, MsgNoJSON},
		{"missing vitals", `{"body_params":{"age":40}}`, "Invalid input: Missing 'vitals'"},
		{"empty vitals", `{"vitals":{},"body_params":{"age":40}}`, "Invalid input: Missing 'vitals'"},
		{"missing body params", `{"vitals":{"spo2":98}}`, "Invalid input: Missing 'body_params'"},
		{"null body params", `{"vitals":{"spo2":98},"body_params":null}`, "Invalid input: Missing 'body_params'"},
		{"both missing", `{"other":1}`, "Invalid input: Missing 'vitals' and 'body_params'"},
		{"vitals not an object", `{"vitals":"high","body_params":{"age":40}}`, "Invalid input: Missing 'vitals'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseRequest([]byte(tc.body))
			if err == nil {
				t.Fatalf("expected %q", tc.want)
			}
			if !errs.IsValidation(err) || err.Error() != tc.want {
				t.Fatalf("expected validation error %q, got %v", tc.want, err)
			}
		})
	}
}

// Package respond writes every handler outcome as JSON: payloads as-is and
// failures as {"error": "..."}.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/healthtwin/platform/pkg/common/errs"
	"github.com/healthtwin/platform/pkg/common/logger"
)

type errorBody struct {
	Error string `json:"error"`
}

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: err.Error()})
	}
	Raw(w, status, body)
}

// Raw writes an already encoded JSON document.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func ErrorMessage(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Error maps err to 400 for client input errors and 500 otherwise, keeping
// the error text as the message.
func Error(w http.ResponseWriter, err error) {
	if errs.IsValidation(err) {
		ErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	ErrorMessage(w, http.StatusInternalServerError, err.Error())
}

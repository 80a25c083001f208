package risk

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthtwin/platform/pkg/common/errs"
	"github.com/healthtwin/platform/pkg/common/models"
	"github.com/healthtwin/platform/pkg/common/respond"
	"github.com/healthtwin/platform/pkg/observability/metrics"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/calculate-risk", h.handleCalculate).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errs.Validation(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		}
		h.fail(w, err)
		return
	}

	seq, err := ParseRequest(body)
	if err != nil {
		h.fail(w, err)
		return
	}

	score, err := h.service.Score(r.Context(), seq)
	if err != nil {
		h.fail(w, err)
		return
	}

	metrics.Observe(metrics.OpRisk, metrics.Succeeded)
	respond.JSON(w, http.StatusOK, models.RiskScoreResponse{RiskScore: score})
}

func (h *HTTPHandler) fail(w http.ResponseWriter, err error) {
	if errs.IsValidation(err) {
		metrics.Observe(metrics.OpRisk, metrics.Rejected)
	} else {
		metrics.Observe(metrics.OpRisk, metrics.Failed)
	}
	respond.Error(w, err)
}

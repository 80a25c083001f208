package recommend

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthtwin/platform/pkg/common/errs"
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
	router.HandleFunc("/get-recommendations", h.handleRecommend).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = errs.Validation(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		}
		h.fail(w, err)
		return
	}

	vitals, bodyParams, err := ParseRequest(body)
	if err != nil {
		h.fail(w, err)
		return
	}

	out, err := h.service.Recommend(r.Context(), vitals, bodyParams)
	if err != nil {
		h.fail(w, err)
		return
	}

	metrics.Observe(metrics.OpRecommendation, metrics.Succeeded)
	respond.Raw(w, http.StatusOK, out)
}

func (h *HTTPHandler) fail(w http.ResponseWriter, err error) {
	if errs.IsValidation(err) {
		metrics.Observe(metrics.OpRecommendation, metrics.Rejected)
	} else {
		metrics.Observe(metrics.OpRecommendation, metrics.Failed)
	}
	respond.Error(w, err)
}

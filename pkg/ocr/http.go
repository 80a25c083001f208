package ocr

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/healthtwin/platform/pkg/common/errs"
	"github.com/healthtwin/platform/pkg/common/respond"
	"github.com/healthtwin/platform/pkg/observability/metrics"
	"github.com/healthtwin/platform/pkg/upload"
)

type HTTPHandler struct {
	service *Service
	guard   *upload.Guard
}

func NewHTTPHandler(service *Service, guard *upload.Guard) *HTTPHandler {
	return &HTTPHandler{service: service, guard: guard}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/process-prescription", h.handleProcess).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleProcess(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	header, err := h.guard.Accept(r)
	if err != nil {
		metrics.Observe(metrics.OpPrescription, metrics.Rejected)
		respond.Error(w, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		metrics.Observe(metrics.OpPrescription, metrics.Failed)
		respond.Error(w, err)
		return
	}
	defer file.Close()

	fields, err := h.service.Process(r.Context(), header.Filename, file)
	if err != nil {
		if errs.IsValidation(err) {
			metrics.Observe(metrics.OpPrescription, metrics.Rejected)
		} else {
			metrics.Observe(metrics.OpPrescription, metrics.Failed)
		}
		respond.Error(w, err)
		return
	}

	metrics.Observe(metrics.OpPrescription, metrics.Succeeded)
	respond.JSON(w, http.StatusOK, fields)
}

package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

const (
	OpPrescription   = "prescription"
	OpRisk           = "risk"
	OpRecommendation = "recommendation"
)

type Outcome int

const (
	Succeeded Outcome = iota
	Rejected
	Failed
)

var outcomeLabels = [...]string{"succeeded", "rejected", "failed"}

type counters [3]atomic.Int64

var (
	prescriptionCounters   counters
	riskCounters           counters
	recommendationCounters counters
	recommendationCacheHit atomic.Int64
	uploadsInFlight        atomic.Int64
)

func countersFor(op string) *counters {
	switch op {
	case OpPrescription:
		return &prescriptionCounters
	case OpRisk:
		return &riskCounters
	case OpRecommendation:
		return &recommendationCounters
	default:
		return nil
	}
}

// Observe counts one finished request of op.
func Observe(op string, outcome Outcome) {
	if c := countersFor(op); c != nil && int(outcome) < len(c) {
		c[outcome].Add(1)
	}
}

func Count(op string, outcome Outcome) int64 {
	if c := countersFor(op); c != nil && int(outcome) < len(c) {
		return c[outcome].Load()
	}
	return 0
}

func RecommendationCacheHit() {
	recommendationCacheHit.Add(1)
}

// UploadStored and UploadReleased track files currently on disk.
func UploadStored() {
	uploadsInFlight.Add(1)
}

func UploadReleased() {
	uploadsInFlight.Add(-1)
}

func UploadsInFlight() int64 {
	return uploadsInFlight.Load()
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP healthtwin_requests_total Finished requests per operation and outcome.\n")
	fmt.Fprintf(w, "# TYPE healthtwin_requests_total counter\n")
	for _, op := range []string{OpPrescription, OpRisk, OpRecommendation} {
		c := countersFor(op)
		for i, label := range outcomeLabels {
			fmt.Fprintf(w, "healthtwin_requests_total{operation=%q,outcome=%q} %d\n", op, label, c[i].Load())
		}
	}

	fmt.Fprintf(w, "# HELP healthtwin_recommendation_cache_hits_total Recommendations served from cache.\n")
	fmt.Fprintf(w, "# TYPE healthtwin_recommendation_cache_hits_total counter\n")
	fmt.Fprintf(w, "healthtwin_recommendation_cache_hits_total %d\n", recommendationCacheHit.Load())

	fmt.Fprintf(w, "# HELP healthtwin_uploads_in_flight Uploaded files currently held on disk.\n")
	fmt.Fprintf(w, "# TYPE healthtwin_uploads_in_flight gauge\n")
	fmt.Fprintf(w, "healthtwin_uploads_in_flight %d\n", uploadsInFlight.Load())
}

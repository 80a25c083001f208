package risk

import (
	"context"
	"errors"
	"math"

	"github.com/healthtwin/platform/pkg/audit"
	"github.com/healthtwin/platform/pkg/common/logger"
)

var errNonFinite = errors.New("risk model returned a non-finite score")

type Service struct {
	scorer Scorer
	events audit.Publisher
}

func NewService(scorer Scorer, events audit.Publisher) *Service {
	if events == nil {
		events = audit.Nop{}
	}
	return &Service{scorer: scorer, events: events}
}

// Score runs the model on an already validated sequence. The model output is
// returned unmodified.
func (s *Service) Score(ctx context.Context, seq Sequence) (float64, error) {
	score, err := s.scorer.Score(ctx, seq)
	if err != nil {
		logger.Log.WithError(err).Error("risk scoring failed")
		return 0, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, errNonFinite
	}

	s.events.Publish(ctx, audit.EventRiskScored, map[string]interface{}{
		"risk_score": score,
	})
	return score, nil
}

package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/healthtwin/platform/pkg/audit"
	"github.com/healthtwin/platform/pkg/common/logger"
)

var ErrInvalidOutput = errors.New("recommendation generator returned invalid JSON")

type Service struct {
	generator Generator
	events    audit.Publisher
}

func NewService(generator Generator, events audit.Publisher) *Service {
	if generator == nil {
		generator = NewRulesGenerator()
	}
	if events == nil {
		events = audit.Nop{}
	}
	return &Service{generator: generator, events: events}
}

// Recommend forwards both inputs unmodified and returns the generator output
// as produced.
func (s *Service) Recommend(ctx context.Context, vitals, bodyParams map[string]interface{}) (json.RawMessage, error) {
	out, err := s.generator.Generate(ctx, vitals, bodyParams)
	if err != nil {
		logger.Log.WithError(err).Error("recommendation generation failed")
		return nil, err
	}
	if !json.Valid(out) {
		return nil, ErrInvalidOutput
	}

	s.events.Publish(ctx, audit.EventRecommendationGenerated, map[string]interface{}{
		"vitals_fields":      fieldNames(vitals),
		"body_params_fields": fieldNames(bodyParams),
		"response_bytes":     len(out),
	})
	return out, nil
}

func fieldNames(m map[string]interface{}) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

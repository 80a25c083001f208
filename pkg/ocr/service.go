package ocr

import (
	"context"
	"io"

	"github.com/healthtwin/platform/pkg/audit"
	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/upload"
)

type Service struct {
	store      *upload.Store
	recognizer TextRecognizer
	extractor  DetailExtractor
	events     audit.Publisher
}

func NewService(store *upload.Store, recognizer TextRecognizer, extractor DetailExtractor, events audit.Publisher) *Service {
	if recognizer == nil {
		recognizer = unconfigured{}
	}
	if extractor == nil {
		extractor = NewRuleExtractor()
	}
	if events == nil {
		events = audit.Nop{}
	}
	return &Service{store: store, recognizer: recognizer, extractor: extractor, events: events}
}

// Process stores content for the duration of the call, runs OCR and field
// extraction on it and returns the fields. The stored file is gone when
// Process returns, whatever the outcome.
func (s *Service) Process(ctx context.Context, filename string, content io.Reader) (map[string]interface{}, error) {
	tmp, err := s.store.Save(filename, content)
	if err != nil {
		return nil, err
	}
	defer tmp.Release()

	log := logger.WithField("upload", tmp.Name)

	text, err := s.recognizer.Recognize(ctx, tmp.Path)
	if err != nil {
		log.WithError(err).Error("ocr failed")
		return nil, err
	}

	fields, err := s.extractor.Extract(ctx, text)
	if err != nil {
		log.WithError(err).Error("prescription extraction failed")
		return nil, err
	}

	s.events.Publish(ctx, audit.EventPrescriptionProcessed, eventSummary(fields, text))
	log.WithField("text_length", len(text)).Info("prescription processed")

	return fields, nil
}

// eventSummary describes an extraction without any of its values. Names,
// dates and the transcription never leave the process.
func eventSummary(fields map[string]interface{}, text string) map[string]interface{} {
	found := make(map[string]interface{}, len(fields))
	medications := 0
	for name, value := range fields {
		switch v := value.(type) {
		case []map[string]interface{}:
			medications = len(v)
			continue
		case []interface{}:
			medications = len(v)
			continue
		}
		if name == "raw_text" {
			continue
		}
		found[name] = value != nil
	}
	return map[string]interface{}{
		"fields_found":     found,
		"medication_count": medications,
		"text_length":      len(text),
	}
}

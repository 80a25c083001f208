package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/healthtwin/platform/pkg/common/llm"
	"google.golang.org/api/option"
)

const transcribeInstruction = `You are the OCR stage of a prescription digitisation pipeline.
Transcribe every piece of text visible on the prescription image, handwritten or printed,
line by line in reading order. Keep drug names, strengths, units, frequencies (OD, BD, TDS, 1-0-1)
and durations exactly as written. Do not explain, translate, correct or summarise.
Output plain text only.`

// GeminiRecognizer uses a Gemini vision model as the OCR engine.
type GeminiRecognizer struct {
	APIKey string
	Model  string
}

func NewGeminiRecognizer(apiKey, model string) *GeminiRecognizer {
	return &GeminiRecognizer{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (g *GeminiRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	if g.APIKey == "" {
		return "", ErrNotConfigured
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := http.DetectContentType(img)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("cannot read image: detected %s", mime)
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: llm.Float32(0),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(transcribeInstruction)},
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text("Transcribe this prescription."),
		&genai.Blob{MIMEType: mime, Data: img},
	)
	if err != nil {
		return "", fmt.Errorf("gemini ocr: %w", err)
	}
	text := strings.TrimSpace(llm.FirstText(resp))
	if text == "" {
		return "", errors.New("gemini ocr: empty response")
	}
	return text, nil
}

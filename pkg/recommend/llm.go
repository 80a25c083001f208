package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/healthtwin/platform/pkg/common/llm"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("recommendation model is not configured")

const recommendInstruction = `You are a preventive-health assistant for a digital health twin.
Given a patient's vitals and body parameters as JSON, return a JSON object with exactly these keys:
"recommendations": an array of objects with "category", "severity" (info, warning or urgent), "finding" and "advice";
"summary": one or two sentences;
"generated_by": the string you are given.
Base findings only on values present in the input. Do not diagnose. Output JSON only.`

func promptFor(vitals, bodyParams map[string]interface{}, generatedBy string) (string, error) {
	input, err := json.Marshal(map[string]interface{}{
		"vitals":      vitals,
		"body_params": bodyParams,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("generated_by: %s\ninput: %s", generatedBy, input), nil
}

// completionJSON unwraps a model reply and checks that it is a JSON document.
func completionJSON(text string) (json.RawMessage, error) {
	text = llm.StripCodeFences(text)
	if text == "" {
		return nil, llm.ErrEmptyCompletion
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: %.80s", ErrInvalidOutput, text)
	}
	return json.RawMessage(text), nil
}

// ChatGenerator asks an OpenAI compatible chat model for recommendations.
type ChatGenerator struct {
	client *llm.ChatClient
}

func NewChatGenerator(client *llm.ChatClient) *ChatGenerator {
	return &ChatGenerator{client: client}
}

func (g *ChatGenerator) Generate(ctx context.Context, vitals, bodyParams map[string]interface{}) (json.RawMessage, error) {
	if g.client == nil {
		return nil, ErrNotConfigured
	}
	prompt, err := promptFor(vitals, bodyParams, g.client.Model())
	if err != nil {
		return nil, err
	}
	text, err := g.client.Complete(ctx, recommendInstruction, prompt, true)
	if err != nil {
		return nil, err
	}
	return completionJSON(text)
}

// GeminiGenerator asks a Gemini model for recommendations in JSON mode.
type GeminiGenerator struct {
	APIKey string
	Model  string
}

func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	return &GeminiGenerator{APIKey: strings.TrimSpace(apiKey), Model: strings.TrimSpace(model)}
}

func (g *GeminiGenerator) Generate(ctx context.Context, vitals, bodyParams map[string]interface{}) (json.RawMessage, error) {
	if g.APIKey == "" {
		return nil, ErrNotConfigured
	}
	prompt, err := promptFor(vitals, bodyParams, g.Model)
	if err != nil {
		return nil, err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      llm.Float32(0.3),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(recommendInstruction)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini recommendations: %w", err)
	}
	return completionJSON(llm.FirstText(resp))
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var ErrEmptyCompletion = errors.New("no response from LLM")

// ChatClient talks to an OpenAI compatible /chat/completions endpoint.
type ChatClient struct {
	apiKey    string
	baseURL   string
	modelName string
	httpc     *http.Client
}

func NewChatClient(apiKey, baseURL, modelName string, httpc *http.Client) *ChatClient {
	return &ChatClient{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		modelName: modelName,
		httpc:     httpc,
	}
}

func (c *ChatClient) Model() string {
	return c.modelName
}

// Complete sends one system and one user message and returns the reply text.
// With jsonMode the model is asked for a JSON object.
func (c *ChatClient) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	payload := map[string]interface{}{
		"model": c.modelName,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.3,
	}
	if jsonMode {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payloadBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return result.Choices[0].Message.Content, nil
}

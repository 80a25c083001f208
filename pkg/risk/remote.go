package risk

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

// RemoteScorer calls a model server speaking the TensorFlow Serving REST
// predict protocol: {"instances": [seq]} -> {"predictions": [...]}.
type RemoteScorer struct {
	url   string
	httpc *http.Client
}

func NewRemoteScorer(url string, httpc *http.Client) *RemoteScorer {
	return &RemoteScorer{url: url, httpc: httpc}
}

func (s *RemoteScorer) Score(ctx context.Context, seq Sequence) (float64, error) {
	if s.url == "" {
		return 0, errors.New("risk serving url not configured")
	}
	payload, err := json.Marshal(map[string]interface{}{
		"instances": [][][]float64{seq.Rows()},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("risk model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Predictions []json.RawMessage `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding risk model response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return 0, errors.New("risk model returned no predictions")
	}
	return firstScalar(out.Predictions[0])
}

// firstScalar unwraps a prediction that may be a number or a nested list
// such as [[0.42]].
func firstScalar(raw json.RawMessage) (float64, error) {
	for depth := 0; depth < 4; depth++ {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			break
		}
		raw = list[0]
	}
	return 0, fmt.Errorf("unexpected prediction format: %s", string(raw))
}

package risk

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/healthtwin/platform/pkg/ml/linear"
)

const artifactType = "sequence_logistic"

// Artifact is the on-disk form of a trained sequence model. Coefficients are
// laid out step-major over the normalised, flattened sequence.
type Artifact struct {
	Model struct {
		Type          string         `json:"type"`
		Algorithm     string         `json:"algorithm"`
		Steps         int            `json:"steps"`
		Parameters    int            `json:"parameters"`
		Normalization Normalization  `json:"normalization"`
		Weights       linear.Weights `json:"weights"`
	} `json:"model"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	TrainedAt time.Time          `json:"trained_at"`
}

// Normalization holds per-parameter statistics shared by every time step.
type Normalization struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (a Artifact) Validate() error {
	m := a.Model
	if m.Steps != StepCount || m.Parameters != ParameterCount {
		return fmt.Errorf("artifact shape %dx%d does not match %dx%d", m.Steps, m.Parameters, StepCount, ParameterCount)
	}
	if len(m.Weights.Coefficients) != StepCount*ParameterCount {
		return fmt.Errorf("artifact has %d coefficients, want %d", len(m.Weights.Coefficients), StepCount*ParameterCount)
	}
	n := m.Normalization
	if len(n.Mean) != len(n.Std) || (len(n.Mean) != 0 && len(n.Mean) != ParameterCount) {
		return errors.New("artifact normalization does not match parameter count")
	}
	return nil
}

// Features normalises seq with the artifact statistics and flattens it.
func (a Artifact) Features(seq Sequence) []float64 {
	n := a.Model.Normalization
	out := make([]float64, 0, StepCount*ParameterCount)
	for i := range seq {
		for j, v := range seq[i] {
			if len(n.Mean) == ParameterCount {
				v -= n.Mean[j]
				if n.Std[j] > 0 {
					v /= n.Std[j]
				}
			}
			out = append(out, v)
		}
	}
	return out
}

// Train fits a logistic model on labelled sequences.
func Train(samples []Sequence, labels []float64, opts linear.Options) (Artifact, linear.Metrics, error) {
	if len(samples) == 0 {
		return Artifact{}, linear.Metrics{}, errors.New("no training samples")
	}
	if len(samples) != len(labels) {
		return Artifact{}, linear.Metrics{}, fmt.Errorf("%d samples but %d labels", len(samples), len(labels))
	}

	var artifact Artifact
	artifact.Model.Type = artifactType
	artifact.Model.Algorithm = "logistic_regression"
	artifact.Model.Steps = StepCount
	artifact.Model.Parameters = ParameterCount
	artifact.Model.Normalization = fitNormalization(samples)

	features := make([][]float64, len(samples))
	for i, s := range samples {
		features[i] = artifact.Features(s)
	}
	weights, metrics := linear.TrainLogistic(features, labels, opts)
	artifact.Model.Weights = weights
	artifact.Metrics = map[string]float64{"loss": metrics.Loss, "accuracy": metrics.Accuracy}
	artifact.TrainedAt = time.Now().UTC()
	return artifact, metrics, nil
}

func fitNormalization(samples []Sequence) Normalization {
	mean := make([]float64, ParameterCount)
	std := make([]float64, ParameterCount)
	count := float64(len(samples) * StepCount)

	for _, s := range samples {
		for i := range s {
			for j, v := range s[i] {
				mean[j] += v
			}
		}
	}
	for j := range mean {
		mean[j] /= count
	}
	for _, s := range samples {
		for i := range s {
			for j, v := range s[i] {
				d := v - mean[j]
				std[j] += d * d
			}
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / count)
	}
	return Normalization{Mean: mean, Std: std}
}

func ArtifactPath(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_latest.json", name))
}

// WriteArtifact replaces the latest artifact for name atomically.
func WriteArtifact(dir, name string, artifact Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	content, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, name+"-*.json")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	path := ArtifactPath(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/healthtwin/platform/pkg/common/config"
	"github.com/healthtwin/platform/pkg/common/logger"
	"github.com/healthtwin/platform/pkg/ml/linear"
	"github.com/healthtwin/platform/pkg/risk"
)

type example struct {
	InputSequence json.RawMessage `json:"input_sequence"`
	Label         float64         `json:"label"`
}

func main() {
	logger.Init()
	cfg := config.Load()

	dataset := flag.String("data", "", "JSON file with [{\"input_sequence\": [...], \"label\": 0|1}]")
	dir := flag.String("out", cfg.RiskModelDir, "directory for the model artifact")
	name := flag.String("name", cfg.RiskModelName, "model name")
	epochs := flag.Int("epochs", 500, "training epochs")
	rate := flag.Float64("lr", 0.05, "learning rate")
	flag.Parse()

	if *dataset == "" {
		fmt.Fprintln(os.Stderr, "usage: risk-trainer -data examples.json [-out dir] [-name model]")
		os.Exit(2)
	}

	samples, labels, err := loadDataset(*dataset)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load dataset")
	}

	artifact, metrics, err := risk.Train(samples, labels, linear.Options{Epochs: *epochs, LearningRate: *rate})
	if err != nil {
		logger.Log.WithError(err).Fatal("Training failed")
	}

	path, err := risk.WriteArtifact(*dir, *name, artifact)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to write artifact")
	}

	logger.Log.WithFields(map[string]interface{}{
		"samples":  len(samples),
		"loss":     metrics.Loss,
		"accuracy": metrics.Accuracy,
		"path":     path,
	}).Info("Risk model trained")
}

// loadDataset validates every example the same way the API validates
// requests.
func loadDataset(path string) ([]risk.Sequence, []float64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var examples []example
	if err := json.Unmarshal(content, &examples); err != nil {
		return nil, nil, fmt.Errorf("decoding dataset: %w", err)
	}

	samples := make([]risk.Sequence, 0, len(examples))
	labels := make([]float64, 0, len(examples))
	for i, ex := range examples {
		seq, err := risk.ValidateSequence(ex.InputSequence)
		if err != nil {
			return nil, nil, fmt.Errorf("example %d: %w", i, err)
		}
		if ex.Label != 0 && ex.Label != 1 {
			return nil, nil, fmt.Errorf("example %d: label must be 0 or 1", i)
		}
		samples = append(samples, seq)
		labels = append(labels, ex.Label)
	}
	return samples, labels, nil
}

package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/healthtwin/platform/pkg/ml/linear"
)

// ArtifactScorer scores sequences with the latest artifact on disk. The
// artifact is re-read whenever its modification time changes.
type ArtifactScorer struct {
	dir  string
	name string

	mu      sync.RWMutex
	cached  Artifact
	modTime int64
	loaded  bool
}

func NewArtifactScorer(dir, name string) *ArtifactScorer {
	return &ArtifactScorer{dir: dir, name: name}
}

func (p *ArtifactScorer) Score(_ context.Context, seq Sequence) (float64, error) {
	artifact, err := p.loadArtifact()
	if err != nil {
		return 0, err
	}
	return linear.Predict(artifact.Model.Weights, artifact.Features(seq)), nil
}

func (p *ArtifactScorer) loadArtifact() (Artifact, error) {
	latest := ArtifactPath(p.dir, p.name)
	info, err := os.Stat(latest)
	if err != nil {
		return Artifact{}, fmt.Errorf("risk model %q unavailable: %w", p.name, err)
	}
	mod := info.ModTime().UnixNano()

	p.mu.RLock()
	if p.loaded && p.modTime == mod {
		artifact := p.cached
		p.mu.RUnlock()
		return artifact, nil
	}
	p.mu.RUnlock()

	content, err := os.ReadFile(latest)
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("decoding risk model: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return Artifact{}, err
	}

	p.mu.Lock()
	p.cached = artifact
	p.modTime = mod
	p.loaded = true
	p.mu.Unlock()
	return artifact, nil
}

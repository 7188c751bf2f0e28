package ml

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// Metadata is informational data stored with an artifact.
type Metadata struct {
	TrainedAt time.Time `json:"trained_at"`
	Rows      int       `json:"rows"`
	Positives int       `json:"positives"`
	CVMean    float64   `json:"cv_auc_mean,omitempty"`
	CVStd     float64   `json:"cv_auc_std,omitempty"`
	Folds     int       `json:"cv_folds,omitempty"`
	Repeats   int       `json:"cv_repeats,omitempty"`
}

// artifact is the serialized form of a fitted Pipeline.
type artifact struct {
	Preprocessor *Preprocessor       `json:"preprocessor"`
	Model        *LogisticRegression `json:"model"`
	Metadata     Metadata            `json:"metadata"`
}

// Encode writes the pipeline as JSON.
func (p *Pipeline) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(artifact{Preprocessor: p.pre, Model: p.model, Metadata: p.metadata})
}

// Save writes the pipeline to path atomically: the artifact is written to a
// pending file in the same directory, synced and renamed over path, so a
// reader never observes a partial artifact.
func (p *Pipeline) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(dir),
		renameio.WithStaticPermissions(0o644),
	)
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	if err := p.Encode(pending); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return pending.CloseAtomicallyReplace()
}

// DecodePipeline reads a pipeline written by Encode and checks that its
// parts are consistent.
func DecodePipeline(r io.Reader) (*Pipeline, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if a.Preprocessor == nil || a.Model == nil {
		return nil, fmt.Errorf("%w: missing preprocessor or model", ErrInvalidArtifact)
	}
	if err := a.Preprocessor.validate(); err != nil {
		return nil, err
	}
	if len(a.Model.Weights) != a.Preprocessor.Width() {
		return nil, fmt.Errorf("%w: model expects %d features, preprocessor produces %d",
			ErrInvalidArtifact, len(a.Model.Weights), a.Preprocessor.Width())
	}
	for _, w := range append([]float64{a.Model.Intercept}, a.Model.Weights...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: non-finite model parameter", ErrInvalidArtifact)
		}
	}
	return &Pipeline{pre: a.Preprocessor, model: a.Model, metadata: a.Metadata}, nil
}

// LoadPipeline reads the artifact at path.
func LoadPipeline(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePipeline(f)
}

package inference

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"strokerisk/ml"
)

// ErrNoModel is returned when no artifact has been loaded yet.
var ErrNoModel = errors.New("no model loaded")

// Registry holds the predictor currently serving requests. A new artifact is
// swapped in only after it has been fully loaded, so readers always see a
// complete predictor.
type Registry struct {
	path      string
	cacheSize int
	logger    *zap.Logger

	mu      sync.Mutex
	current atomic.Pointer[Predictor]
}

// NewRegistry creates an empty registry for the artifact at path.
func NewRegistry(path string, cacheSize int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{path: path, cacheSize: cacheSize, logger: logger}
}

// Path returns the artifact location.
func (r *Registry) Path() string {
	return r.path
}

// Load reads the artifact and swaps it in. On failure the previous
// predictor, if any, keeps serving.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pipeline, err := ml.LoadPipeline(r.path)
	if err != nil {
		return fmt.Errorf("load artifact %s: %w", r.path, err)
	}
	predictor, err := NewPredictor(pipeline, r.cacheSize)
	if err != nil {
		return err
	}
	r.Set(predictor)

	md := pipeline.Metadata()
	r.logger.Info("model loaded",
		zap.String("path", r.path),
		zap.Time("trained_at", md.TrainedAt),
		zap.Int("rows", md.Rows),
		zap.Float64("cv_auc_mean", md.CVMean),
	)
	return nil
}

// Set installs an already constructed predictor. Load goes through it.
func (r *Registry) Set(p *Predictor) {
	r.current.Store(p)
}

// Current returns the serving predictor or ErrNoModel.
func (r *Registry) Current() (*Predictor, error) {
	p := r.current.Load()
	if p == nil {
		return nil, ErrNoModel
	}
	return p, nil
}

// Package registry versions fitted classifiers per pair. Each retraining
// cycle produces a new immutable version; the previous one stays on disk for
// rollback. A versions.json index tracks metadata, model artifacts are
// gob-encoded files next to it.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"litmus-ml/internal/boost"
)

// Metrics records how a version performed at training time.
type Metrics struct {
	EvalLogLoss     float64 `json:"eval_log_loss"`
	BestIteration   int     `json:"best_iteration"`
	TrainingSamples int     `json:"training_samples"`
}

// Version is one fitted model for one pair.
type Version struct {
	ID        string    `json:"id"`
	Pair      string    `json:"pair"`
	Path      string    `json:"path"`
	Features  []string  `json:"features"`
	CreatedAt time.Time `json:"created_at"`
	Metrics   Metrics   `json:"metrics"`
	IsActive  bool      `json:"is_active"`
}

// Registry manages model versions under a models directory.
type Registry struct {
	modelsDir    string
	versionsFile string
	versions     []Version
}

// New creates a registry rooted at modelsDir, loading any existing index.
func New(modelsDir string) (*Registry, error) {
	if err := os.MkdirAll(modelsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}

	r := &Registry{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, "versions.json"),
	}

	if err := r.loadVersions(); err != nil {
		log.Warn().Err(err).Msg("failed to load model versions, starting fresh")
	}

	return r, nil
}

// Save persists a freshly fitted model as a new active version for the pair,
// deactivating any previous version.
func (r *Registry) Save(pair string, m *boost.Model, features []string, metrics Metrics) (*Version, error) {
	data, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	path := filepath.Join(r.modelsDir, fmt.Sprintf("%s_%s.gob", pair, id))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("write model artifact: %w", err)
	}

	v := Version{
		ID:        id,
		Pair:      pair,
		Path:      path,
		Features:  features,
		CreatedAt: time.Now(),
		Metrics:   metrics,
		IsActive:  true,
	}

	for i := range r.versions {
		if r.versions[i].Pair == pair {
			r.versions[i].IsActive = false
		}
	}
	r.versions = append(r.versions, v)

	sort.Slice(r.versions, func(i, j int) bool {
		return r.versions[i].CreatedAt.After(r.versions[j].CreatedAt)
	})

	if err := r.saveVersions(); err != nil {
		return nil, err
	}

	log.Info().
		Str("pair", pair).
		Str("version", id).
		Float64("eval_log_loss", metrics.EvalLogLoss).
		Int("best_iteration", metrics.BestIteration).
		Msg("model version saved")

	return &v, nil
}

// Load restores the active version's model for a pair.
func (r *Registry) Load(pair string) (*boost.Model, *Version, error) {
	v := r.active(pair)
	if v == nil {
		return nil, nil, fmt.Errorf("registry: no active model for pair %s", pair)
	}

	data, err := os.ReadFile(v.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read model artifact: %w", err)
	}

	m := &boost.Model{}
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, nil, err
	}
	return m, v, nil
}

// Activate marks a specific version active and deactivates its siblings.
func (r *Registry) Activate(id string) error {
	var target *Version
	for i := range r.versions {
		if r.versions[i].ID == id {
			target = &r.versions[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("registry: version %s not found", id)
	}

	for i := range r.versions {
		if r.versions[i].Pair == target.Pair {
			r.versions[i].IsActive = r.versions[i].ID == id
		}
	}
	return r.saveVersions()
}

// Rollback reactivates the version preceding the currently active one.
func (r *Registry) Rollback(pair string) error {
	var pairVersions []*Version
	for i := range r.versions {
		if r.versions[i].Pair == pair {
			pairVersions = append(pairVersions, &r.versions[i])
		}
	}
	if len(pairVersions) < 2 {
		return fmt.Errorf("registry: no previous version available for %s", pair)
	}

	// versions are sorted newest first
	currentIdx := -1
	for i, v := range pairVersions {
		if v.IsActive {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return fmt.Errorf("registry: no active version for %s", pair)
	}
	if currentIdx+1 >= len(pairVersions) {
		return fmt.Errorf("registry: no previous version available for %s", pair)
	}

	return r.Activate(pairVersions[currentIdx+1].ID)
}

// List returns all versions for a pair, newest first.
func (r *Registry) List(pair string) []Version {
	var out []Version
	for _, v := range r.versions {
		if v.Pair == pair {
			out = append(out, v)
		}
	}
	return out
}

func (r *Registry) active(pair string) *Version {
	for i := range r.versions {
		if r.versions[i].Pair == pair && r.versions[i].IsActive {
			return &r.versions[i]
		}
	}
	return nil
}

func (r *Registry) loadVersions() error {
	data, err := os.ReadFile(r.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &r.versions)
}

func (r *Registry) saveVersions() error {
	data, err := json.MarshalIndent(r.versions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.versionsFile, data, 0o600)
}

// Package artifact loads the trained model bundle the service depends
// on: feature schema and selection mask, label encoders, scaler
// parameters, one tree ensemble per target, and bundle metadata. The
// bundle is loaded once at startup and treated as immutable shared
// state; any inconsistency is fatal so the process never serves with a
// partial model.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"healthrisk-api/internal/model"
	"healthrisk-api/internal/schema"
	"healthrisk-api/internal/vectorize"
)

const (
	metadataFile = "metadata.json"
	schemaFile   = "feature_schema.json"
	encodersFile = "label_encoders.json"
	scalerFile   = "scaler.json"
)

// Metadata describes the trained bundle.
type Metadata struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Accuracy  float64   `json:"accuracy"`
	Targets   []string  `json:"targets"`
}

// Bundle is the full immutable artifact state consumed by the service.
type Bundle struct {
	Meta     Metadata
	Features []string
	Selected []bool // nil when the models use the full schema
	Encoders []*vectorize.Encoder
	Scaler   *vectorize.Scaler
	Models   map[string]*model.Ensemble
	LoadedAt time.Time
}

type schemaDoc struct {
	Features []string `json:"features"`
	Selected []bool   `json:"selected,omitempty"`
}

type scalerDoc struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Load reads and cross-validates a bundle from dir.
func Load(dir string) (*Bundle, error) {
	var meta Metadata
	if err := readJSON(filepath.Join(dir, metadataFile), &meta); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	if len(meta.Targets) == 0 {
		return nil, fmt.Errorf("metadata declares no targets")
	}

	var sd schemaDoc
	if err := readJSON(filepath.Join(dir, schemaFile), &sd); err != nil {
		return nil, fmt.Errorf("load feature schema: %w", err)
	}
	if len(sd.Features) == 0 {
		return nil, fmt.Errorf("feature schema is empty")
	}
	if sd.Selected != nil && len(sd.Selected) != len(sd.Features) {
		return nil, fmt.Errorf("selection mask length %d does not match schema length %d", len(sd.Selected), len(sd.Features))
	}

	var vocab map[string][]string
	if err := readJSON(filepath.Join(dir, encodersFile), &vocab); err != nil {
		return nil, fmt.Errorf("load label encoders: %w", err)
	}
	encoders := make([]*vectorize.Encoder, 0, len(schema.CategoricalFields))
	for _, field := range schema.CategoricalFields {
		classes, ok := vocab[field]
		if !ok {
			return nil, fmt.Errorf("label encoders missing %s", field)
		}
		encoders = append(encoders, &vectorize.Encoder{Field: field, Classes: classes})
	}

	var sc scalerDoc
	if err := readJSON(filepath.Join(dir, scalerFile), &sc); err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}

	width := len(sd.Features)
	if sd.Selected != nil {
		width = 0
		for _, keep := range sd.Selected {
			if keep {
				width++
			}
		}
	}

	models := make(map[string]*model.Ensemble, len(meta.Targets))
	for _, target := range meta.Targets {
		var ens model.Ensemble
		path := filepath.Join(dir, ModelFile(target))
		if err := readJSON(path, &ens); err != nil {
			return nil, fmt.Errorf("load model for %s: %w", target, err)
		}
		if err := ens.Validate(); err != nil {
			return nil, fmt.Errorf("model for %s: %w", target, err)
		}
		if ens.NumFeatures != width {
			return nil, fmt.Errorf("model for %s consumes %d features, bundle provides %d", target, ens.NumFeatures, width)
		}
		models[target] = &ens
	}

	return &Bundle{
		Meta:     meta,
		Features: sd.Features,
		Selected: sd.Selected,
		Encoders: encoders,
		Scaler:   &vectorize.Scaler{Mean: sc.Mean, Std: sc.Std},
		Models:   models,
		LoadedAt: time.Now(),
	}, nil
}

// ModelFile returns the bundle file name for one target's model.
func ModelFile(target string) string {
	return "model_" + target + ".json"
}

// Age returns how long ago the bundle was trained, falling back to load
// time when the training timestamp is absent.
func (b *Bundle) Age() time.Duration {
	if !b.Meta.TrainedAt.IsZero() {
		return time.Since(b.Meta.TrainedAt)
	}
	return time.Since(b.LoadedAt)
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

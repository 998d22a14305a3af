package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/linnemanlabs/go-core/log"
)

// artifact is the on-disk ensemble format written by the training pipeline.
// Models are exported in linearized form: prediction = dot(weights, x) +
// intercept. MAE and RMSE come from the held-out validation split.
type artifact struct {
	Version  string          `json:"version"`
	Encoding string          `json:"encoding"`
	Models   []artifactModel `json:"models"`
}

type artifactModel struct {
	Name      string    `json:"name"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Weight    float64   `json:"ensemble_weight"`
	MAE       float64   `json:"mae"`
	RMSE      float64   `json:"rmse"`
}

// linearModel is a Regressor for linearized artifact models.
type linearModel struct {
	weights   []float64
	intercept float64
}

func (m linearModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.weights) {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(x), len(m.weights))
	}
	out := m.intercept
	for i, w := range m.weights {
		out += w * x[i]
	}
	return out, nil
}

// Load reads the ensemble artifact at path. A missing file is a valid state
// and yields a nil ensemble (fallback-only estimation); a corrupt file is an
// error. Models with no explicit ensemble weight share equal weight.
func Load(ctx context.Context, path string, logger log.Logger) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "model artifact not found, predictions will use fallback", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if art.Encoding != "" && art.Encoding != EncodingVersion {
		return nil, fmt.Errorf("artifact encoding %q does not match %q", art.Encoding, EncodingVersion)
	}
	if len(art.Models) == 0 {
		logger.Warn(ctx, "model artifact has no models, predictions will use fallback", "path", path)
		return nil, nil
	}

	ens := &Ensemble{Version: art.Version}
	var weightSum float64
	for _, m := range art.Models {
		weightSum += m.Weight
	}

	for _, m := range art.Models {
		w := m.Weight
		if weightSum == 0 {
			w = 1.0 / float64(len(art.Models))
		}
		ens.Models = append(ens.Models, Model{
			Name:      m.Name,
			Weight:    w,
			Regressor: linearModel{weights: m.Weights, intercept: m.Intercept},
		})
		logger.Info(ctx, "model loaded",
			"model", m.Name,
			"weight", w,
			"mae", m.MAE,
			"rmse", m.RMSE,
		)
	}

	logger.Info(ctx, "ensemble loaded", "version", ens.Version, "models", len(ens.Models))
	return ens, nil
}

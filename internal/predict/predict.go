// Package predict estimates resolution time in days for a classified request.
// A weighted regression ensemble produces a point estimate and a 90% band
// derived from inter-model disagreement; when no models are loaded or
// anything in the model path breaks, a historical-average or fixed-default
// fallback takes over.
package predict

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/servicesense/internal/entity"
	"github.com/linnemanlabs/servicesense/internal/retrieval"
)

// VersionFallback tags results that did not come from the ensemble.
const VersionFallback = "fallback"

const (
	zBand       = 1.645 // 90% two-sided
	floorDays   = 1.0
	defaultDays = 7.0
	fallbackStd = 3.0
)

// Result is a resolution-time estimate with its confidence band.
type Result struct {
	PredictedDays float64        `json:"predicted_days"`
	Lower90       float64        `json:"confidence_90_lower"`
	Upper90       float64        `json:"confidence_90_upper"`
	Std           float64        `json:"prediction_std"`
	ModelVersion  string         `json:"model_version"`
	FeaturesUsed  map[string]any `json:"features_used"`
}

// Regressor maps a feature vector to a predicted duration.
type Regressor interface {
	Predict(features []float64) (float64, error)
}

// Model is one named ensemble member with its combination weight.
type Model struct {
	Name      string
	Weight    float64
	Regressor Regressor
}

// Ensemble is an immutable set of regressors combined by weighted summation.
// It is loaded once at startup and safe for concurrent reads.
type Ensemble struct {
	Version string
	Models  []Model
}

// Estimator produces estimates from the ensemble or the fallback chain.
type Estimator struct {
	ensemble *Ensemble // nil or empty means fallback-only
	logger   log.Logger
	now      func() time.Time
}

// NewEstimator creates an estimator. A nil ensemble configures fallback-only
// operation.
func NewEstimator(ensemble *Ensemble, logger log.Logger) *Estimator {
	return &Estimator{
		ensemble: ensemble,
		logger:   logger,
		now:      time.Now,
	}
}

// Estimate predicts resolution time for the classified request. It never
// fails: any problem in the model path degrades to the fallback chain.
func (e *Estimator) Estimate(ctx context.Context, categoryCode, department string, entities *entity.Summary, analogues []retrieval.Analogue) *Result {
	if e.ensemble == nil || len(e.ensemble.Models) == 0 {
		return e.fallback(analogues)
	}

	res, err := e.runEnsemble(categoryCode, department, entities, analogues)
	if err != nil {
		e.logger.Warn(ctx, "ensemble prediction failed, using fallback", "error", err)
		return e.fallback(analogues)
	}

	e.logger.Info(ctx, "prediction made",
		"service_code", categoryCode,
		"predicted_days", res.PredictedDays,
		"lower_90", res.Lower90,
		"upper_90", res.Upper90,
	)
	return res
}

func (e *Estimator) runEnsemble(categoryCode, department string, entities *entity.Summary, analogues []retrieval.Analogue) (res *Result, err error) {
	// Regressors are loaded artifacts; treat a panic like any other model
	// failure and let the fallback answer.
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("ensemble panic: %v", r)
		}
	}()

	analogueMean := meanDuration(analogues, defaultDays)
	vec := features(categoryCode, department, entities, analogueMean, e.now())

	weighted := make([]float64, 0, len(e.ensemble.Models))
	for _, m := range e.ensemble.Models {
		pred, err := m.Regressor.Predict(vec)
		if err != nil {
			return nil, err
		}
		weighted = append(weighted, pred*m.Weight)
	}

	var point float64
	for _, w := range weighted {
		point += w
	}
	std := populationStd(weighted)

	lower := math.Max(floorDays, point-zBand*std)
	upper := point + zBand*std
	// Large disagreement near the floor can push the raw upper bound below
	// the floored lower bound.
	upper = math.Max(upper, lower)

	return &Result{
		PredictedDays: point,
		Lower90:       lower,
		Upper90:       upper,
		Std:           std,
		ModelVersion:  e.ensemble.Version,
		FeaturesUsed: map[string]any{
			"service_code":         categoryCode,
			"department":           department,
			"has_location":         entities.HasLocation(),
			"urgency_count":        len(entities.UrgencyIndicators),
			"similar_requests_avg": analogueMean,
		},
	}, nil
}

func (e *Estimator) fallback(analogues []retrieval.Analogue) *Result {
	if len(analogues) > 0 {
		avg := meanDuration(analogues, defaultDays)
		return &Result{
			PredictedDays: avg,
			Lower90:       math.Max(floorDays, avg-zBand*fallbackStd),
			Upper90:       avg + zBand*fallbackStd,
			Std:           fallbackStd,
			ModelVersion:  VersionFallback,
			FeaturesUsed:  map[string]any{"method": "similar_requests_average"},
		}
	}

	return &Result{
		PredictedDays: defaultDays,
		Lower90:       3.0,
		Upper90:       14.0,
		Std:           4.0,
		ModelVersion:  VersionFallback,
		FeaturesUsed:  map[string]any{"method": "default"},
	}
}

func meanDuration(analogues []retrieval.Analogue, fallback float64) float64 {
	b := retrieval.Bundle{Analogues: analogues}
	return b.AnalogueMean(fallback)
}

// populationStd is the population standard deviation (divide by N, not N-1),
// matching how ensemble disagreement is measured at training time.
func populationStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(xs)))
}

package triage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/servicesense/internal/classify"
	"github.com/linnemanlabs/servicesense/internal/entity"
	"github.com/linnemanlabs/servicesense/internal/predict"
	"github.com/linnemanlabs/servicesense/internal/respond"
	"github.com/linnemanlabs/servicesense/internal/retrieval"
)

// ErrEmptyRequest is the one caller-surfaced error: the request carried no
// text to triage. Everything else degrades inside the pipeline.
var ErrEmptyRequest = errors.New("request text is required")

// Service runs the triage pipeline and owns persistence around it.
type Service struct {
	extractor  entity.Extractor
	retriever  *retrieval.Retriever
	classifier *classify.Engine
	estimator  *predict.Estimator
	assembler  *respond.Assembler
	store      Store
	cache      Cache    // optional
	notifier   Notifier // optional
	metrics    *Metrics // optional
	logger     log.Logger
	now        func() time.Time
}

// NewService wires the pipeline stages. cache, notifier, and metrics may be
// nil.
func NewService(extractor entity.Extractor, retriever *retrieval.Retriever, classifier *classify.Engine, estimator *predict.Estimator, store Store, logger log.Logger) *Service {
	return &Service{
		extractor:  extractor,
		retriever:  retriever,
		classifier: classifier,
		estimator:  estimator,
		assembler:  respond.NewAssembler(),
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// WithCache attaches a read-through result cache.
func (s *Service) WithCache(c Cache) *Service {
	s.cache = c
	return s
}

// WithNotifier attaches a completion notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithMetrics attaches pipeline metrics.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// Triage runs the full pipeline for one request. It returns ErrEmptyRequest
// for blank input; every downstream failure degrades to a complete result.
func (s *Service) Triage(ctx context.Context, text string, loc *entity.Location) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyRequest
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Lookup(ctx, text, loc); err != nil {
			s.logger.Warn(ctx, "cache lookup failed", "error", err)
		} else if ok {
			s.observeCache(true)
			return cached, nil
		} else {
			s.observeCache(false)
		}
	}

	start := s.now()

	entities, err := s.extractor.Extract(ctx, text, loc)
	if err != nil {
		// Extractors degrade internally; this is a last-ditch guard.
		s.logger.Warn(ctx, "entity extraction failed, continuing with location only", "error", err)
		entities = &entity.Summary{Location: loc}
	}

	bundle := s.retriever.Retrieve(ctx, text, entities)
	classification := s.classifier.Classify(ctx, text, entities, bundle.Render())
	prediction := s.estimator.Estimate(ctx, classification.Code, classification.Department, entities, bundle.Analogues)

	elapsed := s.now().Sub(start)
	response := s.assembler.Assemble(text, entities, classification, prediction, bundle, float64(elapsed.Microseconds())/1000.0)

	result := &Result{
		ID:        ulid.Make().String(),
		RawText:   text,
		Response:  response,
		CreatedAt: s.now().UTC(),
	}

	// Persistence is best-effort: a store failure never costs the caller
	// their result.
	if err := s.store.Put(ctx, result); err != nil {
		s.logger.Error(ctx, err, "failed to persist triage result", "triage_id", result.ID)
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, text, loc, result); err != nil {
			s.logger.Warn(ctx, "cache save failed", "error", err)
		}
	}

	if s.notifier != nil {
		go s.notify(context.WithoutCancel(ctx), result)
	}

	s.observeTriage(classification, prediction, elapsed)
	s.logger.Info(ctx, "triage complete",
		"triage_id", result.ID,
		"service_code", classification.Code,
		"method", classification.Method,
		"predicted_days", prediction.PredictedDays,
		"duration", elapsed.Seconds(),
	)
	return result, nil
}

// Get retrieves a stored triage result by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) notify(ctx context.Context, result *Result) {
	if err := s.notifier.TriageComplete(ctx, result); err != nil {
		s.logger.Warn(ctx, "triage notification failed", "triage_id", result.ID, "error", err)
	}
}

func (s *Service) observeTriage(c *classify.Classification, p *predict.Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.TriagesTotal.WithLabelValues(c.Method, p.ModelVersion).Inc()
	s.metrics.TriageDuration.Observe(elapsed.Seconds())
	s.metrics.ClassificationConfidence.Observe(c.Confidence)
	s.metrics.PredictedDays.Observe(p.PredictedDays)
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
	}
}

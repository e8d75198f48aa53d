package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/observability"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/patterns"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/schemacheck"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/storage"
)

// Service orchestrates the extraction pipeline: snapshot each step, normalize,
// infer validation rules, synthesize the schema document and self-validate it.
type Service struct {
	logger    *zap.Logger
	library   *patterns.Library
	validator *schemacheck.Validator
	storage   *storage.MinIOClient
	metrics   *observability.Metrics
	config    Config
}

// NewService creates a new extraction service. Storage and metrics may be nil.
func NewService(logger *zap.Logger, library *patterns.Library, validator *schemacheck.Validator, store *storage.MinIOClient, metrics *observability.Metrics) *Service {
	return &Service{
		logger:    logger,
		library:   library,
		validator: validator,
		storage:   store,
		metrics:   metrics,
		config:    DefaultConfig(),
	}
}

// WithConfig returns a new service with the given config
func (s *Service) WithConfig(config Config) *Service {
	return &Service{
		logger:    s.logger,
		library:   s.library,
		validator: s.validator,
		storage:   s.storage,
		metrics:   s.metrics,
		config:    config,
	}
}

// ExtractInput contains input for one extraction run
type ExtractInput struct {
	SourceURL string
	Steps     []string
}

// ExtractOutput contains the result of one extraction run
type ExtractOutput struct {
	Schema      *domain.FormSchema
	SchemaURI   string
	FieldsFound int
	Duration    time.Duration
}

// ProgressFunc is called as each step of the pipeline completes
type ProgressFunc func(status string)

// Extract runs the full pipeline against a snapshot provider. The provider
// may also implement HintProvider and EvidenceProvider; when it does, the
// rule cascade uses live attribute hints and the inline-script evidence scan.
func (s *Service) Extract(ctx context.Context, provider SnapshotProvider, input ExtractInput, progress ProgressFunc) (*ExtractOutput, error) {
	startTime := time.Now()
	run := NewRunContext()

	steps := input.Steps
	if len(steps) == 0 {
		steps = []string{StepAadhaar, StepPAN}
	}

	s.logger.Info("starting extraction",
		zap.String("run_id", run.RunID.String()),
		zap.String("source", input.SourceURL),
		zap.Strings("steps", steps),
	)

	hints, _ := provider.(HintProvider)
	evidence, _ := provider.(EvidenceProvider)

	normalizer := NewNormalizer(s.logger, s.metrics)
	inferencer := NewRuleInferencer(s.logger, s.library, hints, evidence, s.metrics, s.config)
	synthesizer := NewSynthesizer(s.config.SchemaVersion, input.SourceURL, s.library, nil)

	stepFields := make(map[string][]domain.NormalizedField, len(steps))
	for _, step := range steps {
		if !IsRecognizedStep(step) {
			return nil, domain.MalformedStepError(step)
		}

		raw, err := provider.Snapshot(ctx, step)
		if err != nil {
			return nil, domain.SnapshotError(step, err)
		}
		report(progress, fmt.Sprintf("snapshot %s: %d elements", step, len(raw)))

		fields := normalizer.Normalize(raw, step)
		fields = inferencer.InferAll(ctx, run, fields)
		stepFields[step] = fields
		report(progress, fmt.Sprintf("inferred %s: %d fields", step, len(fields)))
	}

	schema, err := synthesizer.Synthesize(stepFields)
	if err != nil {
		return nil, fmt.Errorf("synthesizing schema: %w", err)
	}

	if s.validator != nil {
		if err := s.validator.Validate(schema); err != nil {
			return nil, err
		}
	}
	report(progress, "schema synthesized")

	var schemaURI string
	if s.storage != nil {
		payload, err := json.MarshalIndent(schema, "", "  ")
		if err == nil {
			key := storage.SchemaKey(run.RunID.String())
			schemaURI, err = s.storage.UploadJSON(ctx, key, payload)
			if err != nil {
				s.logger.Warn("failed to upload schema artifact", zap.Error(err))
			}
		}
	}

	duration := time.Since(startTime)
	if s.metrics != nil {
		s.metrics.ExtractionDuration.Observe(duration.Seconds())
		s.metrics.SchemasGenerated.Inc()
		s.metrics.SchemaFields.Set(float64(schema.Statistics.TotalFields))
	}

	s.logger.Info("extraction completed",
		zap.String("run_id", run.RunID.String()),
		zap.Int("fields_found", schema.Statistics.TotalFields),
		zap.Int("steps", schema.Metadata.TotalSteps),
		zap.Duration("duration", duration),
	)

	return &ExtractOutput{
		Schema:      schema,
		SchemaURI:   schemaURI,
		FieldsFound: schema.Statistics.TotalFields,
		Duration:    duration,
	}, nil
}

func report(progress ProgressFunc, status string) {
	if progress != nil {
		progress(status)
	}
}

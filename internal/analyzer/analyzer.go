// Package analyzer runs the detectors over documents and merges their
// findings across the documents of a case.
package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lvonguyen/casescreen/internal/detection"
	"github.com/lvonguyen/casescreen/internal/indicator"
)

// Observer receives analysis events, typically to record metrics.
type Observer interface {
	DocumentAnalyzed(documentType string, findings []indicator.Finding, elapsed time.Duration)
	CaseAnalyzed(documents, indicators int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) DocumentAnalyzed(string, []indicator.Finding, time.Duration) {}
func (nopObserver) CaseAnalyzed(int, int, time.Duration) {}

// Config holds analyzer settings.
type Config struct {
	Evidence            indicator.EvidenceOptions
	MergeStrategy       MergeStrategy
	ParallelDetectors   bool
	DocumentConcurrency int
}

// DefaultConfig returns sequential, legacy-compatible settings.
func DefaultConfig() Config {
	return Config{
		Evidence:            indicator.DefaultEvidenceOptions(),
		MergeStrategy:       MergePairwise,
		DocumentConcurrency: 1,
	}
}

// Analyzer coordinates the detectors. It holds no per-call state and is safe
// for concurrent use.
type Analyzer struct {
	config    Config
	detectors []indicator.Detector
	logger    *zap.Logger
	observer  Observer
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithObserver registers an observer for analysis events.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) {
		if o != nil {
			a.observer = o
		}
	}
}

// WithDetectors replaces the default detector set. Order is preserved.
func WithDetectors(detectors ...indicator.Detector) Option {
	return func(a *Analyzer) {
		a.detectors = detectors
	}
}

// New creates an analyzer with the confession, eyewitness, forensic and
// misconduct detectors, run in that order.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MergeStrategy == "" {
		cfg.MergeStrategy = MergePairwise
	}
	if cfg.DocumentConcurrency < 1 {
		cfg.DocumentConcurrency = 1
	}

	a := &Analyzer{
		config:    cfg,
		detectors: detection.All(cfg.Evidence),
		logger:    logger,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detectors returns the detector names in run order.
func (a *Analyzer) Detectors() []string {
	names := make([]string, 0, len(a.detectors))
	for _, d := range a.detectors {
		names = append(names, d.Name())
	}
	return names
}

// AnalyzeDocument runs every detector over content and tags each finding with
// the detector that produced it.
func (a *Analyzer) AnalyzeDocument(content, documentType string) *indicator.DocumentResult {
	if documentType == "" {
		documentType = indicator.DefaultDocumentType
	}

	start := time.Now()
	findings := a.detect(content, documentType)
	elapsed := time.Since(start)

	a.observer.DocumentAnalyzed(documentType, findings, elapsed)
	a.logger.Debug("Document analyzed",
		zap.String("document_type", documentType),
		zap.Int("content_length", len(content)),
		zap.Int("indicators", len(findings)),
		zap.Duration("elapsed", elapsed),
	)

	return &indicator.DocumentResult{
		TotalIndicators:  len(findings),
		Indicators:       findings,
		DocumentType:     documentType,
		AnalysisComplete: true,
	}
}

func (a *Analyzer) detect(content, documentType string) []indicator.Finding {
	perDetector := make([][]indicator.Finding, len(a.detectors))

	if a.config.ParallelDetectors {
		var g errgroup.Group
		for i, d := range a.detectors {
			i, d := i, d
			g.Go(func() error {
				perDetector[i] = d.Detect(content, documentType)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, d := range a.detectors {
			perDetector[i] = d.Detect(content, documentType)
		}
	}

	findings := make([]indicator.Finding, 0)
	for i, d := range a.detectors {
		for _, f := range perDetector[i] {
			f.Detector = d.Name()
			findings = append(findings, f)
		}
	}
	return findings
}

// AnalyzeCase analyzes every document of a case and merges the findings by
// indicator name. Documents are merged in input order regardless of
// concurrency. The only error is cancellation of ctx.
func (a *Analyzer) AnalyzeCase(ctx context.Context, caseID int64, documents []indicator.Document) (*indicator.CaseResult, error) {
	start := time.Now()

	perDocument := make([][]indicator.Finding, len(documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.DocumentConcurrency)

	for i, doc := range documents {
		i, doc := i, doc
		docType := doc.Type
		if docType == "" {
			docType = indicator.UnknownDocumentType
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := a.AnalyzeDocument(doc.Content, docType)
			for j := range result.Indicators {
				result.Indicators[j].DocumentType = docType
			}
			perDocument[i] = result.Indicators
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Warn("Case analysis cancelled",
			zap.Int64("case_id", caseID),
			zap.Error(err),
		)
		return nil, err
	}

	caseFindings := make([]indicator.Finding, 0)
	for _, findings := range perDocument {
		caseFindings = append(caseFindings, findings...)
	}

	merged := Aggregate(caseFindings, a.config.MergeStrategy)
	elapsed := time.Since(start)

	a.observer.CaseAnalyzed(len(documents), len(merged), elapsed)
	a.logger.Debug("Case analyzed",
		zap.Int64("case_id", caseID),
		zap.Int("documents", len(documents)),
		zap.Int("findings", len(caseFindings)),
		zap.Int("indicators", len(merged)),
		zap.String("merge_strategy", string(a.config.MergeStrategy)),
		zap.Duration("elapsed", elapsed),
	)

	return &indicator.CaseResult{
		CaseID:            caseID,
		TotalIndicators:   len(merged),
		Indicators:        merged,
		DocumentsAnalyzed: len(documents),
	}, nil
}

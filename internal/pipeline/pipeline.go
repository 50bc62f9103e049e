// Package pipeline drives each bookmarked URL from fetch to storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/htmltext"
	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/scoring"
)

// Stages a URL passes through. Stored and Failed are terminal.
const (
	StagePending   = "pending"
	StageFetched   = "fetched"
	StageCleaned   = "cleaned"
	StageExtracted = "extracted"
	StageScored    = "scored"
	StageStored    = "stored"
	StageFailed    = "failed"
	StageSkipped   = "skipped"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	Extract(ctx context.Context, text string) (*jobs.Posting, error)
}

type ResumeScorer interface {
	Score(ctx context.Context, description, resume string, examples []scoring.Example) (int, error)
}

// Sink persists finished jobs.
type Sink interface {
	Exists(ctx context.Context, url string) (bool, error)
	Insert(ctx context.Context, rec *jobs.Record) error
}

// Ledger records per-URL failures.
type Ledger interface {
	Append(url string, err error)
}

// Deps are the collaborators of an Orchestrator. Clean defaults to htmltext.Clean.
type Deps struct {
	Fetcher   Fetcher
	Clean     func(html string) (string, error)
	Extractor Extractor
	Scorer    ResumeScorer
	Sink      Sink
	Ledger    Ledger
}

// Inputs are the scoring inputs shared by every URL in a run.
type Inputs struct {
	Keywords []string
	// Resume is the resume text. Resume scoring is skipped when it is blank.
	Resume   string
	Examples []scoring.Example
}

// ErrInterrupted is returned by Process when ctx is cancelled mid-URL. Such
// URLs are not recorded in the ledger.
var ErrInterrupted = errors.New("interrupted")

// Summary counts the outcomes of a run.
type Summary struct {
	RunID       string
	Total       int
	Processed   int
	Stored      int
	Skipped     int
	Failed      int
	Interrupted int
	Duration    time.Duration
}

type Orchestrator struct {
	deps   Deps
	inputs Inputs
	runID  string
	logger *zap.Logger
}

func New(deps Deps, inputs Inputs, log *zap.Logger) (*Orchestrator, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("extractor is required")
	case deps.Sink == nil:
		return nil, errors.New("sink is required")
	case deps.Ledger == nil:
		return nil, errors.New("ledger is required")
	}
	if deps.Clean == nil {
		deps.Clean = htmltext.Clean
	}
	if strings.TrimSpace(inputs.Resume) != "" && deps.Scorer == nil {
		return nil, errors.New("resume scorer is required when a resume is loaded")
	}

	runID := uuid.NewString()
	return &Orchestrator{
		deps:   deps,
		inputs: inputs,
		runID:  runID,
		logger: logger.WithFields(log, zap.String(logger.FieldRunID, runID)),
	}, nil
}

// RunID identifies this orchestrator's run in logs.
func (o *Orchestrator) RunID() string { return o.runID }

// Run processes urls one at a time. Failures are recorded in the ledger and
// never stop the batch. Cancelling ctx stops before the next URL.
func (o *Orchestrator) Run(ctx context.Context, urls []string) Summary {
	start := time.Now()
	summary := Summary{RunID: o.runID, Total: len(urls)}

	for i, url := range urls {
		if ctx.Err() != nil {
			o.logger.Warn("run interrupted", zap.Int("remaining", len(urls)-i), zap.Error(ctx.Err()))
			break
		}

		exists, err := o.deps.Sink.Exists(ctx, url)
		if err != nil {
			if errors.Is(o.fail(ctx, url, StagePending, fmt.Errorf("lookup: %w", err)), ErrInterrupted) {
				summary.Interrupted++
				break
			}
			summary.Failed++
			continue
		}
		if exists {
			o.logger.Info("job already stored", logger.URLFields(url, StageSkipped)...)
			summary.Skipped++
			continue
		}

		summary.Processed++
		o.logger.Info("processing job",
			append(logger.URLFields(url, StagePending),
				zap.Int("position", i+1),
				zap.Int("total", len(urls)),
			)...,
		)

		rec, err := o.Process(ctx, url)
		if errors.Is(err, ErrInterrupted) {
			summary.Interrupted++
			break
		}
		if err != nil {
			summary.Failed++
			continue
		}

		summary.Stored++
		o.logger.Info("job stored",
			append(logger.URLFields(url, StageStored),
				zap.String("job_title", rec.JobTitle),
				zap.String("company", rec.Company),
				zap.Intp("keyword_score", rec.KeywordScore),
				zap.Intp("resume_score", rec.ResumeScore),
			)...,
		)
	}

	summary.Duration = time.Since(start)
	o.logger.Info("run finished",
		zap.Int("total", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("stored", summary.Stored),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("interrupted", summary.Interrupted),
		zap.Duration("duration", summary.Duration),
	)

	return summary
}

// Process runs a single URL through every stage. Any error moves the URL to
// the failed stage and is appended to the ledger before being returned.
func (o *Orchestrator) Process(ctx context.Context, url string) (*jobs.Record, error) {
	html, err := o.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, o.fail(ctx, url, StagePending, err)
	}
	o.logger.Debug("stage done", append(logger.URLFields(url, StageFetched), zap.Int("html_length", len(html)))...)

	text, err := o.deps.Clean(html)
	if err != nil {
		return nil, o.fail(ctx, url, StageFetched, fmt.Errorf("clean html: %w", err))
	}
	o.logger.Debug("stage done", append(logger.URLFields(url, StageCleaned), zap.Int("text_length", len(text)))...)

	posting, err := o.deps.Extractor.Extract(ctx, text)
	if err != nil {
		return nil, o.fail(ctx, url, StageCleaned, err)
	}
	posting.URL = url
	o.logger.Debug("stage done", logger.URLFields(url, StageExtracted)...)

	if err := o.score(ctx, posting); err != nil {
		return nil, o.fail(ctx, url, StageExtracted, err)
	}
	o.logger.Debug("stage done", logger.URLFields(url, StageScored)...)

	rec := jobs.Postprocess(posting)
	if err := o.deps.Sink.Insert(ctx, rec); err != nil {
		return nil, o.fail(ctx, url, StageScored, fmt.Errorf("store job: %w", err))
	}

	return rec, nil
}

func (o *Orchestrator) score(ctx context.Context, posting *jobs.Posting) error {
	kwScore, matched := scoring.Keywords(posting.Description, o.inputs.Keywords)
	posting.KeywordScore = &kwScore
	posting.MatchedKeywords = matched
	posting.ResumeScore = nil

	if strings.TrimSpace(o.inputs.Resume) == "" {
		return nil
	}

	score, err := o.deps.Scorer.Score(ctx, posting.Description, o.inputs.Resume, o.inputs.Examples)
	if err != nil {
		return err
	}
	posting.ResumeScore = &score
	return nil
}

// fail records err for url. from is the last stage the URL reached. Errors
// caused by a cancelled ctx are not recorded so the URL is retried next run.
func (o *Orchestrator) fail(ctx context.Context, url, from string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		o.logger.Warn("job interrupted",
			append(logger.URLFields(url, from), zap.Error(err))...,
		)
		return fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
	}

	o.deps.Ledger.Append(url, err)
	o.logger.Error("job failed",
		append(logger.URLFields(url, StageFailed),
			zap.String("from_stage", from),
			zap.String("category", category(err)),
			zap.Error(err),
		)...,
	)
	return err
}

func category(err error) string {
	switch {
	case errors.Is(err, jobs.ErrFetch):
		return "fetch"
	case errors.Is(err, jobs.ErrExtraction):
		return "extraction"
	case errors.Is(err, jobs.ErrScoring):
		return "scoring"
	case errors.Is(err, jobs.ErrConfiguration):
		return "configuration"
	default:
		return "other"
	}
}

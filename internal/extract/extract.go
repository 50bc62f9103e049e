// Package extract turns page text into a validated job posting using a language model.
package extract

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/ai"
	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/utils"
)

// MaxInputChars bounds the page text sent to the model. Anything past it is dropped.
const MaxInputChars = 120_000

const defaultMaxLogLength = 200

//go:embed prompt.md
var systemPrompt string

// Extractor asks a model for a job posting and validates the reply.
type Extractor struct {
	generator ai.Generator
	validate  *validator.Validate
	logger    *zap.Logger
	maxLogLen int
}

func New(generator ai.Generator, log *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		validate:  newValidator(),
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// Extract returns the posting described by text. Malformed or invalid model
// output is returned as an error wrapping jobs.ErrExtraction and is never retried.
func (e *Extractor) Extract(ctx context.Context, text string) (*jobs.Posting, error) {
	message := buildMessage(text)

	e.logger.Debug("extraction request",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}

	e.logger.Debug("extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	result := parse(raw, e.validate)
	if !result.OK() {
		return nil, fmt.Errorf("%w: %s; model output: %s",
			jobs.ErrExtraction, result.Reason, utils.TruncateForLog(raw, e.maxLogLen))
	}

	return result.Posting, nil
}

func buildMessage(text string) string {
	var b strings.Builder
	b.WriteString("Extract job posting information from the following HTML.\n\n")
	b.WriteString("BEGIN HTML\n")
	b.WriteString(utils.Head(text, MaxInputChars))
	b.WriteString("\nEND HTML")
	return b.String()
}

package scoring

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/ai"
	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/utils"
)

const (
	MinResumeScore = 0
	MaxResumeScore = 10

	resumeSystemPrompt  = "You are an expert career advisor."
	scoreLabel          = "Score:"
	defaultMaxLogLength = 200
)

//go:embed resume_prompt.md
var resumePromptTemplate string

// ResumeFit asks a model how well a resume fits a job description.
type ResumeFit struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewResumeFit(generator ai.Generator, log *zap.Logger, maxLogLength int) *ResumeFit {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &ResumeFit{
		generator: generator,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// Score returns an integer in [0,10]. Replies that are not such an integer
// are returned as errors wrapping jobs.ErrScoring and are never clamped.
func (r *ResumeFit) Score(ctx context.Context, description, resume string, examples []Example) (int, error) {
	prompt := buildResumePrompt(description, resume, examples)

	r.logger.Debug("resume score request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.Int("examples", len(examples)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, resumeSystemPrompt, prompt)
	if err != nil {
		return 0, fmt.Errorf("resume score request: %w", err)
	}

	r.logger.Debug("resume score response", zap.String("response", utils.TruncateForLog(raw, r.maxLogLen)))

	return ParseScore(raw)
}

// ParseScore reads a resume-fit score from a model reply, dropping a leading "Score:" label.
func ParseScore(raw string) (int, error) {
	content := strings.TrimSpace(raw)
	if idx := strings.LastIndex(content, scoreLabel); idx != -1 {
		content = strings.TrimSpace(content[idx+len(scoreLabel):])
	}

	score, err := strconv.Atoi(content)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid score returned: %q", jobs.ErrScoring, utils.TruncateForLog(raw, defaultMaxLogLength))
	}

	if score < MinResumeScore || score > MaxResumeScore {
		return 0, fmt.Errorf("%w: score %d out of range [%d,%d]", jobs.ErrScoring, score, MinResumeScore, MaxResumeScore)
	}

	return score, nil
}

func buildResumePrompt(description, resume string, examples []Example) string {
	return strings.NewReplacer(
		"{{DESCRIPTION}}", description,
		"{{RESUME}}", resume,
		"{{EXAMPLES}}", examplesBlock(examples),
	).Replace(resumePromptTemplate)
}

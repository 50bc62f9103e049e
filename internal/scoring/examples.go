package scoring

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/logger"
)

// Example is a job description with a known resume-fit score.
type Example struct {
	Score       int
	Description string
}

// LoadExamples reads the example files keyed by score. Unreadable files and
// keys that are not integers are skipped with a warning.
func LoadExamples(paths map[string]string, log *zap.Logger) []Example {
	log = logger.OrNop(log)

	examples := make([]Example, 0, len(paths))
	for key, path := range paths {
		score, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			log.Warn("skipping scored example", zap.String("score", key), zap.String("reason", "score is not an integer"))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping scored example", zap.Int("score", score), zap.String("path", path), zap.Error(err))
			continue
		}

		examples = append(examples, Example{Score: score, Description: string(data)})
	}

	sort.SliceStable(examples, func(i, j int) bool {
		return examples[i].Score < examples[j].Score
	})

	return examples
}

func examplesBlock(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nHere are some examples of job descriptions and their scores:\n")
	for _, ex := range examples {
		b.WriteString("Job Description:\n")
		b.WriteString(ex.Description)
		b.WriteString("\n\nScore: ")
		b.WriteString(strconv.Itoa(ex.Score))
		b.WriteString("\n\n")
	}
	return b.String()
}

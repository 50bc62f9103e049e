package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/similarity"
	"github.com/spigell/job-board/internal/store"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank stored jobs by embedding similarity to the resume",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntP("limit", "n", 20, "number of jobs to show, 0 shows every job")
	rankCmd.Flags().StringP("output", "o", "", "write the full ranking to this csv file")
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil || config == nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	resume, err := readOptionalFile(config.ResumeFile)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err))
	}
	if resume == "" {
		logger.Fatal("resume is required for ranking",
			zap.Error(fmt.Errorf("%w: resume-file is unset or empty", jobs.ErrConfiguration)),
			zap.String("resume_file", config.ResumeFile),
		)
	}

	fileLock, err := lock(config.Database)
	if err != nil {
		logger.Fatal("locking the database", zap.Error(err))
	}
	defer fileLock.Unlock()

	db, err := store.New(config.Database)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), zap.String("path", config.Database))
	}
	defer db.Close()

	records, err := db.Jobs(ctx)
	if err != nil {
		logger.Fatal("reading stored jobs", zap.Error(err))
	}
	if len(records) == 0 {
		logger.Info("exiting", zap.String("reason", "no stored jobs, use the run command first"))
		return
	}

	provider, err := newAIProvider(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai provider", zap.Error(err))
	}

	vectors, err := newVectorStore(ctx, config.Vector)
	if err != nil {
		logger.Fatal("opening the vector store", zap.Error(err))
	}
	defer vectors.Close()

	ranker, err := similarity.NewRanker(provider.embedder, vectors, logger)
	if err != nil {
		logger.Fatal("building the ranker", zap.Error(err))
	}

	byURL := make(map[string]*jobs.Record, len(records))
	docs := make([]similarity.Document, 0, len(records))
	for _, r := range records {
		byURL[r.URL] = r
		docs = append(docs, similarity.Document{URL: r.URL, Text: r.EmbeddingText()})
	}

	collection := ""
	if config.Vector != nil {
		collection = config.Vector.Collection
	}

	results, err := ranker.Rank(ctx, resume, docs, collection, 0)
	if err != nil {
		logger.Fatal("ranking jobs", zap.Error(err))
	}

	limit, _ := cmd.Flags().GetInt("limit")
	for i, res := range results {
		if limit > 0 && i >= limit {
			break
		}
		fields := []zap.Field{
			zap.Int("rank", i+1),
			zap.Float64("distance", res.Distance),
			zap.String("url", res.URL),
		}
		if rec, ok := byURL[res.URL]; ok {
			fields = append(fields,
				zap.String("job_title", rec.JobTitle),
				zap.String("company", rec.Company),
				zap.Intp("resume_score", rec.ResumeScore),
			)
		}
		logger.Info("ranked job", fields...)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return
	}
	if err := writeRanking(output, results, byURL); err != nil {
		logger.Fatal("writing the ranking", zap.Error(err), zap.String("path", output))
	}
	logger.Info("ranking written", zap.String("path", output), zap.Int("count", len(results)))
}

func writeRanking(path string, results []similarity.ScoredResult, byURL map[string]*jobs.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"url", "distance", "job_title", "company"}); err != nil {
		return err
	}
	for _, res := range results {
		var title, company string
		if rec, ok := byURL[res.URL]; ok {
			title, company = rec.JobTitle, rec.Company
		}
		row := []string{res.URL, strconv.FormatFloat(res.Distance, 'f', -1, 64), title, company}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return file.Close()
}

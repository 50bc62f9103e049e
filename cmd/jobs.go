package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/jobs"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/store"
)

const PromptReportByCompany = "Report by company"

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse stored jobs",
	Run: func(_ *cobra.Command, _ []string) {
		browseJobs()
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func browseJobs() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil || config == nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

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
		logger.Info("exiting", zap.String("reason", "no stored jobs"))
		return
	}

	items := make([]string, 0, len(records)+2)
	for _, r := range records {
		items = append(items, jobLabel(r))
	}
	items = append(items, PromptReportByCompany, PromptBack)

	for {
		jobPrompt := promptui.Select{
			Label: "Choose a job and press ENTER",
			Items: items,
			Size:  15,
		}

		idx, selected, err := jobPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch selected {
		case PromptBack:
			return
		case PromptReportByCompany:
			pretty, _ := json.MarshalIndent(jobs.ReportByCompany(records), "", "  ")
			logger.Info(string(pretty), zap.Int("jobs count", len(records)))
		default:
			pretty, _ := json.MarshalIndent(records[idx], "", "  ")
			logger.Info(string(pretty), zap.String("url", records[idx].URL))
		}
	}
}

func jobLabel(r *jobs.Record) string {
	score := "-"
	if r.ResumeScore != nil {
		score = fmt.Sprintf("%d/10", *r.ResumeScore)
	}
	return fmt.Sprintf("%d %s / %s / %s / %s", r.ID, r.JobTitle, r.Company, score, r.URL)
}

package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/ledger"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/utils"
)

const PromptRetryAll = "Retry all (clear the exceptions file)"

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Review urls recorded in the exceptions file",
	Run: func(_ *cobra.Command, _ []string) {
		reviewFailures()
	},
}

func init() {
	rootCmd.AddCommand(failuresCmd)
}

func reviewFailures() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil || config == nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	fileLock, err := lock(config.Database)
	if err != nil {
		logger.Fatal("locking the database", zap.Error(err))
	}
	defer fileLock.Unlock()

	failures, err := ledger.Load(config.ExceptionsFile)
	if err != nil {
		logger.Fatal("loading the exceptions file", zap.Error(err), zap.String("path", config.ExceptionsFile))
	}

	for {
		entries := failures.Entries()
		if len(entries) == 0 {
			logger.Info("exiting", zap.String("reason", "no recorded failures"))
			return
		}

		items := make([]string, 0, len(entries)+2)
		for i, e := range entries {
			items = append(items, fmt.Sprintf("%d %s / %s", i+1, e.URL, utils.TruncateForLog(firstLine(e.Exception), 80)))
		}

		selectPrompt := promptui.Select{
			Label: "Choose a failure and press ENTER",
			Items: append(items, PromptRetryAll, PromptBack),
			Size:  15,
		}

		idx, selected, err := selectPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch selected {
		case PromptBack:
			return
		case PromptRetryAll:
			removed := failures.Remove(urlsOf(entries)...)
			if err := failures.Save(config.ExceptionsFile); err != nil {
				logger.Fatal("saving the exceptions file", zap.Error(err))
			}
			logger.Info("exceptions cleared, urls will be retried on the next run", zap.Int("removed", removed))
			return
		default:
			entry := entries[idx]
			logger.Info("recorded failure",
				zap.String("url", entry.URL),
				zap.String("exception", entry.Exception),
			)
		}
	}
}

func urlsOf(entries []ledger.Entry) []string {
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	return urls
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

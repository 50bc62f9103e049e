package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/bookmarks"
	"github.com/spigell/job-board/internal/extract"
	"github.com/spigell/job-board/internal/filtering"
	"github.com/spigell/job-board/internal/ledger"
	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/pipeline"
	"github.com/spigell/job-board/internal/scoring"
	"github.com/spigell/job-board/internal/store"
)

const (
	PromptYes  = "Yes"
	PromptNo   = "No"
	PromptBack = "back"
	PromptList = "Show urls"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, extract and score every new job in the bookmark folder",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before processing")
	runCmd.Flags().Bool("skip-previous-failures", false, "skip urls recorded in the exceptions file")
	runCmd.Flags().StringArray("include", nil, "process this url even if it failed before (repeatable)")
	runCmd.Flags().Bool("no-browser", false, "do not fall back to the headless browser")

	viper.BindPFlag("skip-previous-failures", runCmd.Flags().Lookup("skip-previous-failures"))
	viper.BindPFlag("include", runCmd.Flags().Lookup("include"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the job-board", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if err := config.validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err),
			zap.String("hint", "set bookmark-path in the config file or JOB_BOARD_BOOKMARK_PATH"))
	}

	fileLock, err := lock(config.Database)
	if err != nil {
		logger.Fatal("locking the database", zap.Error(err))
	}
	defer fileLock.Unlock()

	urls, err := bookmarks.ListURLs(config.BookmarkPath, config.BookmarkFolder)
	if err != nil {
		logger.Fatal("reading bookmarks", zap.Error(err))
	}
	logger.Info("bookmarks read", zap.String("folder", config.BookmarkFolder), zap.Int("count", len(urls)))

	db, err := store.New(config.Database)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), zap.String("path", config.Database))
	}
	defer db.Close()

	failures, err := ledger.Load(config.ExceptionsFile)
	if err != nil {
		logger.Fatal("loading the exceptions file", zap.Error(err), zap.String("path", config.ExceptionsFile))
	}

	steps := filtering.Default()
	urls, err = filtering.Run(ctx, &filtering.Config{
		ExcludeHosts:         config.ExcludeHosts,
		SkipPreviousFailures: config.SkipPreviousFailures,
		Include:              config.Include,
	}, filtering.Deps{Logger: logger, Store: db, Failures: failures}, steps, urls)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	for _, status := range filtering.Describe(steps) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	if len(urls) == 0 {
		logger.Info("exiting", zap.String("reason", "no new urls left after filters"))
		return
	}

	inputs, err := loadInputs(config, logger)
	if err != nil {
		logger.Fatal("loading scoring inputs", zap.Error(err))
	}

	provider, err := newAIProvider(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai provider", zap.Error(err))
	}

	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	fetcher := newFetcher(config, noBrowser, logger)
	logger.Info("fetch strategies", zap.Strings("order", fetcher.Strategies()))

	orchestrator, err := pipeline.New(pipeline.Deps{
		Fetcher:   fetcher,
		Extractor: extract.New(provider.generator, logger, maxLogLength(config.AI)),
		Scorer:    scoring.NewResumeFit(provider.generator, logger, maxLogLength(config.AI)),
		Sink:      db,
		Ledger:    failures,
	}, inputs, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if !autoApprove {
		if err := confirm(urls, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	summary := orchestrator.Run(ctx, urls)

	if err := failures.Save(config.ExceptionsFile); err != nil {
		logger.Fatal("saving the exceptions file", zap.Error(err), zap.String("path", config.ExceptionsFile))
	}

	logger.Info("done",
		zap.Int("stored", summary.Stored),
		zap.Int("failed", summary.Failed),
		zap.Int("interrupted", summary.Interrupted),
		zap.Int("new_exceptions", len(failures.Added())),
		zap.String("exceptions_file", config.ExceptionsFile),
	)
}

func loadInputs(config *Config, logger *zap.Logger) (pipeline.Inputs, error) {
	keywords, err := scoring.LoadKeywords(config.KeywordsFile)
	if err != nil {
		return pipeline.Inputs{}, fmt.Errorf("keywords: %w", err)
	}

	resume, err := readOptionalFile(config.ResumeFile)
	if err != nil {
		return pipeline.Inputs{}, fmt.Errorf("resume: %w", err)
	}
	if resume == "" {
		logger.Warn("no resume loaded, resume scoring is skipped", zap.String("resume_file", config.ResumeFile))
	}

	examples := scoring.LoadExamples(config.ScoredExamples, logger)

	logger.Info("scoring inputs",
		zap.Int("keywords", len(keywords)),
		zap.Bool("resume", resume != ""),
		zap.Int("examples", len(examples)),
	)

	return pipeline.Inputs{Keywords: keywords, Resume: resume, Examples: examples}, nil
}

func confirm(urls []string, logger *zap.Logger) error {
	prompt := promptui.Select{
		Label: "Process " + strconv.Itoa(len(urls)) + " urls?",
		Items: []string{PromptYes, PromptNo, PromptList},
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptYes:
			return nil
		case PromptNo:
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return errExit
		case PromptList:
			logger.Info("urls to process", zap.Strings("urls", urls))
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

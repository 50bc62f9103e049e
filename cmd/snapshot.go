package cmd

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/logger"
	"github.com/spigell/job-board/internal/store"
)

const (
	defaultJobsSnapshot         = "data/jobs_snapshot.csv"
	defaultApplicationsSnapshot = "data/applications_snapshot.csv"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export the jobs and applications tables to csv files",
	Run: func(cmd *cobra.Command, _ []string) {
		snapshot(cmd)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().String("jobs", defaultJobsSnapshot, "jobs snapshot file")
	snapshotCmd.Flags().String("applications", defaultApplicationsSnapshot, "applications snapshot file")
}

func snapshot(cmd *cobra.Command) {
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

	jobsChanged := cmd.Flags().Changed("jobs")
	appsChanged := cmd.Flags().Changed("applications")
	// without flags both snapshots are written
	writeJobs := jobsChanged || !appsChanged
	writeApps := appsChanged || !jobsChanged

	if writeJobs {
		path, _ := cmd.Flags().GetString("jobs")
		n, err := writeSnapshot(path, func(w io.Writer) (int, error) { return db.WriteJobsCSV(ctx, w) })
		if err != nil {
			logger.Fatal("writing jobs snapshot", zap.Error(err), zap.String("path", path))
		}
		logger.Info("jobs snapshot written", zap.String("path", path), zap.Int("rows", n))
	}

	if writeApps {
		path, _ := cmd.Flags().GetString("applications")
		n, err := writeSnapshot(path, func(w io.Writer) (int, error) { return db.WriteApplicationsCSV(ctx, w) })
		if err != nil {
			logger.Fatal("writing applications snapshot", zap.Error(err), zap.String("path", path))
		}
		logger.Info("applications snapshot written", zap.String("path", path), zap.Int("rows", n))
	}
}

func writeSnapshot(path string, write func(io.Writer) (int, error)) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	n, err := write(file)
	if err != nil {
		return 0, err
	}

	return n, file.Close()
}

package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-board/internal/jobs"
)

const (
	app = "job-board"
)

type Config struct {
	BookmarkPath         string            `mapstructure:"bookmark-path"`
	BookmarkFolder       string            `mapstructure:"bookmark-folder"`
	Database             string            `mapstructure:"database"`
	ExceptionsFile       string            `mapstructure:"exceptions-file"`
	KeywordsFile         string            `mapstructure:"keywords-file"`
	ResumeFile           string            `mapstructure:"resume-file"`
	ScoredExamples       map[string]string `mapstructure:"scored-examples"`
	SkipPreviousFailures bool              `mapstructure:"skip-previous-failures"`
	Include              []string          `mapstructure:"include"`
	ExcludeHosts         []string          `mapstructure:"exclude-hosts"`
	UserAgent            string            `mapstructure:"user-agent"`
	Fetch                *FetchConfig      `mapstructure:"fetch"`
	AI                   *AIConfig         `mapstructure:"ai"`
	Vector               *VectorConfig     `mapstructure:"vector"`
}

type FetchConfig struct {
	Timeout time.Duration  `mapstructure:"timeout"`
	Retries uint           `mapstructure:"retries"`
	Rate    float64        `mapstructure:"rate"`
	Browser *BrowserConfig `mapstructure:"browser"`
}

type BrowserConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Timeout  time.Duration `mapstructure:"timeout"`
	ExecPath string        `mapstructure:"exec-path"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	KeyringAccount string `mapstructure:"keyring-account"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	KeyringAccount string `mapstructure:"keyring-account"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	BaseURL        string `mapstructure:"base-url"`
}

type VectorConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	DSN        string `mapstructure:"dsn"`
	Collection string `mapstructure:"collection"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-board collects bookmarked job postings, extracts and scores them against your resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"bookmark-path":          "JOB_BOARD_BOOKMARK_PATH",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"vector.dsn":             "JOB_BOARD_PG_DSN",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-board.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("bookmark-folder", "Job-searching/Jobs")
	viper.SetDefault("database", "data/jobs.db")
	viper.SetDefault("exceptions-file", "data/exceptions.csv")
	viper.SetDefault("user-agent", "Mozilla/5.0 (compatible; JobScraper/1.0)")

	viper.SetDefault("fetch.timeout", "30s")
	viper.SetDefault("fetch.retries", 3)
	viper.SetDefault("fetch.rate", 1)
	viper.SetDefault("fetch.browser.enabled", true)
	viper.SetDefault("fetch.browser.timeout", "30s")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.embedding-model", "gemini-embedding-001")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.openai.model", "gpt-3.5-turbo")
	viper.SetDefault("ai.openai.embedding-model", "text-embedding-3-large")

	viper.SetDefault("vector.backend", "sqlite")
	viper.SetDefault("vector.path", "data/vectors.db")
	viper.SetDefault("vector.collection", "job_embeddings")
}

func initConfig() {
	// version does not need a config
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	// Every key has a default or an env binding, so the implicit config file is optional.
	if errors.As(err, &notFound) && cfgFile == "" {
		return
	}
	// We can't proceed if the config file parsed with error.
	if err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return config, nil
}

// validate checks the keys every pipeline command needs.
func (c *Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.BookmarkPath) == "" {
		missing = append(missing, "bookmark-path")
	}
	if c.Fetch == nil {
		missing = append(missing, "fetch")
	}
	if c.AI == nil {
		missing = append(missing, "ai")
	}
	if c.Vector == nil {
		missing = append(missing, "vector")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required config keys: %s", jobs.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// redacted returns a copy safe to log.
func (c *Config) redacted() Config {
	out := *c
	if c.Vector != nil && c.Vector.DSN != "" {
		vector := *c.Vector
		vector.DSN = "<redacted>"
		out.Vector = &vector
	}
	return out
}

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Mode selects which movies a session processes.
type Mode string

const (
	ModeScanNew       Mode = "scan-new"
	ModeUpdateAll     Mode = "update-all"
	ModeUpdateByList  Mode = "update-by-list"
	ModeUpdateByRange Mode = "update-by-range"
)

// Config holds all application configuration.
type Config struct {
	Mode     Mode           `mapstructure:"mode"`
	Session  SessionConfig  `mapstructure:"session"`
	Stages   StagesConfig   `mapstructure:"stages"`
	LLM      LLMConfig      `mapstructure:"llm"`
	TMDB     TMDBConfig     `mapstructure:"tmdb"`
	OMDB     OMDBConfig     `mapstructure:"omdb"`
	Images   ImagesConfig   `mapstructure:"images"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Schedule string         `mapstructure:"schedule"` // optional cron expression
}

// SessionConfig bounds one enrichment run.
type SessionConfig struct {
	NewMovieQuota        int      `mapstructure:"new_movie_quota"`
	MaxTopRatedPages     int      `mapstructure:"max_top_rated_pages"`
	UpdateExistingOnScan bool     `mapstructure:"update_existing_on_scan"`
	Targets              []string `mapstructure:"targets"`      // update-by-list: "Title (Year)", tt… or tmdb:…
	IndexRange           string   `mapstructure:"index_range"`  // update-by-range: "0-4, 7, 10-12"
	UpdateFields         []string `mapstructure:"update_fields"` // selective-update allow-list; empty = all active
	PageDelaySeconds     float64  `mapstructure:"page_delay_seconds"`
	GeneralDelaySeconds  float64  `mapstructure:"general_delay_seconds"`
}

// StagesConfig toggles individual generation stages.
type StagesConfig struct {
	InitialData                  bool `mapstructure:"initial_data"`
	CharactersAndRelations       bool `mapstructure:"characters_and_relations"`
	AnalyticalData               bool `mapstructure:"analytical_data"`
	TMDBReviewSummary            bool `mapstructure:"tmdb_review_summary"`
	ConstrainedPlotWithRelations bool `mapstructure:"constrained_plot_with_relations"`
	FetchIMDBIDs                 bool `mapstructure:"fetch_imdb_ids"`
	FetchImages                  bool `mapstructure:"fetch_images"`
}

// LLMConfig describes the OpenAI-compatible generation backend.
type LLMConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	APIKey             string  `mapstructure:"api_key"`
	Model              string  `mapstructure:"model"`
	Timeout            int     `mapstructure:"timeout"` // seconds
	WordsToTokensRatio float64 `mapstructure:"words_to_tokens_ratio"`

	// Per-stage word ceilings, converted to token ceilings via the ratio.
	InitialDataWords      int `mapstructure:"initial_data_words"`
	CharactersBaseWords   int `mapstructure:"characters_base_words"`
	CharacterDescWords    int `mapstructure:"character_desc_words"`
	CharacterRelsWords    int `mapstructure:"character_rels_words"`
	AnalyticalWords       int `mapstructure:"analytical_words"`
	ReviewSummaryWords    int `mapstructure:"review_summary_words"`
	ConstrainedPlotWords  int `mapstructure:"constrained_plot_words"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	ImageBaseURL  string `mapstructure:"image_base_url"`
	ImageSize     string `mapstructure:"image_size"`
	Timeout       int    `mapstructure:"timeout"` // seconds
	MaxCharacters int    `mapstructure:"max_characters"`
	MaxReviews    int    `mapstructure:"max_reviews"`
	MaxReviewLen  int    `mapstructure:"max_review_length"` // characters per review snippet
}

// OMDBConfig holds OMDb API configuration.
type OMDBConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// ImagesConfig governs the image acquisition subsystem.
type ImagesConfig struct {
	SavePath              string  `mapstructure:"save_path"`
	PerCharacter          int     `mapstructure:"per_character"`
	PerRelationship       int     `mapstructure:"per_relationship"`
	MaxRelationships      int     `mapstructure:"max_relationships"`
	CharacterGroupDelay   float64 `mapstructure:"character_group_delay_seconds"`
	RelationshipGroupDelay float64 `mapstructure:"relationship_group_delay_seconds"`
	DownloadDelay         float64 `mapstructure:"download_delay_seconds"`
	SearchTimeout         int     `mapstructure:"search_timeout"` // seconds
}

// OutputConfig names the persisted artifacts.
type OutputConfig struct {
	CollectionPath string `mapstructure:"collection_path"`
	TranscriptPath string `mapstructure:"transcript_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.cinegraph")
	}

	v.SetEnvPrefix("CINEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeScanNew))

	v.SetDefault("session.new_movie_quota", 5)
	v.SetDefault("session.max_top_rated_pages", 10)
	v.SetDefault("session.update_existing_on_scan", false)
	v.SetDefault("session.page_delay_seconds", 1)
	v.SetDefault("session.general_delay_seconds", 2)

	v.SetDefault("stages.initial_data", true)
	v.SetDefault("stages.characters_and_relations", true)
	v.SetDefault("stages.analytical_data", true)
	v.SetDefault("stages.tmdb_review_summary", true)
	v.SetDefault("stages.constrained_plot_with_relations", true)
	v.SetDefault("stages.fetch_imdb_ids", true)
	v.SetDefault("stages.fetch_images", false)

	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 120)
	v.SetDefault("llm.words_to_tokens_ratio", 1.4)
	v.SetDefault("llm.initial_data_words", 700)
	v.SetDefault("llm.characters_base_words", 300)
	v.SetDefault("llm.character_desc_words", 60)
	v.SetDefault("llm.character_rels_words", 80)
	v.SetDefault("llm.analytical_words", 900)
	v.SetDefault("llm.review_summary_words", 250)
	v.SetDefault("llm.constrained_plot_words", 400)

	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("tmdb.image_size", "w500")
	v.SetDefault("tmdb.timeout", 10)
	v.SetDefault("tmdb.max_characters", 15)
	v.SetDefault("tmdb.max_reviews", 5)
	v.SetDefault("tmdb.max_review_length", 1500)

	v.SetDefault("omdb.base_url", "https://www.omdbapi.com/")
	v.SetDefault("omdb.timeout", 10)

	v.SetDefault("images.save_path", "./data/images")
	v.SetDefault("images.per_character", 2)
	v.SetDefault("images.per_relationship", 1)
	v.SetDefault("images.max_relationships", 10)
	v.SetDefault("images.character_group_delay_seconds", 2)
	v.SetDefault("images.relationship_group_delay_seconds", 3)
	v.SetDefault("images.download_delay_seconds", 1)
	v.SetDefault("images.search_timeout", 15)

	v.SetDefault("output.collection_path", "./data/movies.yaml")
	v.SetDefault("output.transcript_path", "./data/transcript.log")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Required environment variables.
const (
	EnvDatastoreURL  = "JOBENRICH_DATASTORE_URL"
	EnvDatastoreKey  = "JOBENRICH_DATASTORE_KEY"
	EnvBatchFilePath = "JOBENRICH_BATCH_FILE_PATH"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"

	// EnvConfigPath points at the YAML file when --config is not given.
	EnvConfigPath = "JOBENRICH_CONFIG"
)

// DefaultConfigPath is read when it exists and no other path was given.
const DefaultConfigPath = "jobenrich.yaml"

// Config is the root configuration for an enrichment run.
type Config struct {
	Datastore     DatastoreConfig
	BatchFilePath string
	OpenAI        OpenAIConfig
	Searches      []SearchConfig
	Scraper       ScraperConfig
	Filters       FilterConfig
	Polling       PollingConfig
	Notification  NotificationConfig
	Tracker       TrackerConfig
	Artifacts     ArtifactConfig
	Telemetry     TelemetryConfig
	Schedule      string
	Server        ServerConfig
}

// DatastoreConfig locates the listings table.
type DatastoreConfig struct {
	URL   string // from JOBENRICH_DATASTORE_URL
	Key   string // from JOBENRICH_DATASTORE_KEY
	Table string
}

// OpenAIConfig controls the batch enrichment requests.
type OpenAIConfig struct {
	APIKey           string // from OPENAI_API_KEY
	BaseURL          string
	Model            string
	MaxTokens        int
	CompletionWindow string
	Timeout          time.Duration // per HTTP call, not the batch wait
}

// SearchConfig is one scrape per run.
type SearchConfig struct {
	Site          string `yaml:"site"`
	SearchTerm    string `yaml:"search_term"`
	Location      string `yaml:"location"`
	ResultsWanted int    `yaml:"results_wanted"`
	HoursOld      int    `yaml:"hours_old"`
	Country       string `yaml:"country"`
}

// ScraperConfig selects the listing source and its retry/rate limit decorators.
type ScraperConfig struct {
	Type       string
	BaseURL    string
	AppID      string
	AppKey     string
	BoardToken string
	Company    string
	Path       string
	MinDelay   time.Duration // minimum gap between requests to the same site
	MaxRetries int
	RetryDelay time.Duration // base delay for exponential backoff
}

// FilterConfig drops listings before they cost a batch request.
type FilterConfig struct {
	TitleKeywords      []string `yaml:"title_keywords"`
	ExcludeTitles      []string `yaml:"exclude_titles"`
	Locations          []string `yaml:"locations"`
	RequireDescription bool     `yaml:"require_description"`
}

// PollingConfig bounds the wait for a batch to finish.
type PollingConfig struct {
	Interval    time.Duration
	MaxWait     time.Duration
	MaxAttempts int
	Backoff     float64
	MaxInterval time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "nats"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	NATSURL    string `yaml:"nats_url"`    // required if type is "nats"
	Subject    string `yaml:"subject"`
}

// TrackerConfig enables the Redis run tracker when RedisURL is set.
type TrackerConfig struct {
	RedisURL string
	TTL      time.Duration
}

// ArtifactConfig enables archiving of batch files when Endpoint is set.
type ArtifactConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// TelemetryConfig enables OTLP trace export when OTLPEndpoint is set.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// ServerConfig is the HTTP trigger listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultModel            = "gpt-4o-2024-08-06"
	defaultMaxTokens        = 1000
	defaultCompletionWindow = "24h"
	defaultTable            = "jobs"
	defaultSchedule         = "@every 24h"
	defaultAddr             = ":8080"
	defaultServiceName      = "jobenrich"
	defaultSubject          = "jobenrich.runs"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Searches     []SearchConfig     `yaml:"searches"`
	Scraper      rawScraperConfig   `yaml:"scraper"`
	Filters      FilterConfig       `yaml:"filters"`
	OpenAI       rawOpenAIConfig    `yaml:"openai"`
	Polling      rawPollingConfig   `yaml:"polling"`
	Datastore    rawDatastoreConfig `yaml:"datastore"`
	Notification NotificationConfig `yaml:"notification"`
	Tracker      rawTrackerConfig   `yaml:"tracker"`
	Artifacts    ArtifactConfig     `yaml:"artifacts"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Schedule     string             `yaml:"schedule"`
	Server       ServerConfig       `yaml:"server"`
}

type rawScraperConfig struct {
	Type       string `yaml:"type"`
	BaseURL    string `yaml:"base_url"`
	AppID      string `yaml:"app_id"`
	AppKey     string `yaml:"app_key"`
	BoardToken string `yaml:"board_token"`
	Company    string `yaml:"company"`
	Path       string `yaml:"path"`
	MinDelay   string `yaml:"min_delay"`
	MaxRetries *int   `yaml:"max_retries"`
	RetryDelay string `yaml:"retry_delay"`
}

type rawOpenAIConfig struct {
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	MaxTokens        int    `yaml:"max_tokens"`
	CompletionWindow string `yaml:"completion_window"`
	Timeout          string `yaml:"timeout"`
}

type rawPollingConfig struct {
	Interval    string  `yaml:"interval"`
	MaxWait     string  `yaml:"max_wait"`
	MaxAttempts int     `yaml:"max_attempts"`
	Backoff     float64 `yaml:"backoff"`
	MaxInterval string  `yaml:"max_interval"`
}

type rawDatastoreConfig struct {
	Table string `yaml:"table"`
}

type rawTrackerConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

// ResolvePath picks the config file: the flag value, then $JOBENRICH_CONFIG,
// then ./jobenrich.yaml when it exists. An empty result means defaults only.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// Load reads the YAML config file at path (skipped when path is empty),
// applies defaults and the environment, and validates the result.
// Required environment variables are checked separately by RequireRunEnv.
func Load(path string) (*Config, error) {
	var raw rawConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, err
	}

	cfg.Datastore.URL = os.Getenv(EnvDatastoreURL)
	cfg.Datastore.Key = os.Getenv(EnvDatastoreKey)
	cfg.BatchFilePath = os.Getenv(EnvBatchFilePath)
	cfg.OpenAI.APIKey = os.Getenv(EnvOpenAIAPIKey)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	cfg := &Config{
		Searches: raw.Searches,
		Scraper: ScraperConfig{
			Type:       raw.Scraper.Type,
			BaseURL:    raw.Scraper.BaseURL,
			AppID:      raw.Scraper.AppID,
			AppKey:     raw.Scraper.AppKey,
			BoardToken: raw.Scraper.BoardToken,
			Company:    raw.Scraper.Company,
			Path:       raw.Scraper.Path,
			MaxRetries: 3,
		},
		Filters: raw.Filters,
		OpenAI: OpenAIConfig{
			BaseURL:          raw.OpenAI.BaseURL,
			Model:            raw.OpenAI.Model,
			MaxTokens:        raw.OpenAI.MaxTokens,
			CompletionWindow: raw.OpenAI.CompletionWindow,
		},
		Polling: PollingConfig{
			MaxAttempts: raw.Polling.MaxAttempts,
			Backoff:     raw.Polling.Backoff,
		},
		Datastore:    DatastoreConfig{Table: raw.Datastore.Table},
		Notification: raw.Notification,
		Tracker:      TrackerConfig{RedisURL: raw.Tracker.RedisURL},
		Artifacts:    raw.Artifacts,
		Telemetry:    raw.Telemetry,
		Schedule:     raw.Schedule,
		Server:       raw.Server,
	}
	durations := []struct {
		name  string
		value string
		def   time.Duration
		out   *time.Duration
	}{
		{"scraper.min_delay", raw.Scraper.MinDelay, 2 * time.Second, &cfg.Scraper.MinDelay},
		{"scraper.retry_delay", raw.Scraper.RetryDelay, 2 * time.Second, &cfg.Scraper.RetryDelay},
		{"openai.timeout", raw.OpenAI.Timeout, 60 * time.Second, &cfg.OpenAI.Timeout},
		{"polling.interval", raw.Polling.Interval, 5 * time.Second, &cfg.Polling.Interval},
		{"polling.max_wait", raw.Polling.MaxWait, 10 * time.Minute, &cfg.Polling.MaxWait},
		{"polling.max_interval", raw.Polling.MaxInterval, 0, &cfg.Polling.MaxInterval},
		{"tracker.ttl", raw.Tracker.TTL, 7 * 24 * time.Hour, &cfg.Tracker.TTL},
	}
	for _, d := range durations {
		if d.value == "" {
			*d.out = d.def
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", d.name, d.value, err)
		}
		*d.out = v
	}

	if raw.Scraper.MaxRetries != nil {
		cfg.Scraper.MaxRetries = *raw.Scraper.MaxRetries
	}
	if cfg.Scraper.Type == "" {
		cfg.Scraper.Type = "adzuna"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultModel
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = defaultMaxTokens
	}
	if cfg.OpenAI.CompletionWindow == "" {
		cfg.OpenAI.CompletionWindow = defaultCompletionWindow
	}
	if cfg.Polling.Backoff == 0 {
		cfg.Polling.Backoff = 1
	}
	if cfg.Datastore.Table == "" {
		cfg.Datastore.Table = defaultTable
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Notification.Subject == "" {
		cfg.Notification.Subject = defaultSubject
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = defaultServiceName
	}
	if cfg.Schedule == "" {
		cfg.Schedule = defaultSchedule
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}

	if len(cfg.Searches) == 0 {
		cfg.Searches = []SearchConfig{{}}
	}
	for i := range cfg.Searches {
		applySearchDefaults(&cfg.Searches[i], cfg.Scraper.Type)
	}
	return cfg, nil
}

func applySearchDefaults(s *SearchConfig, scraperType string) {
	if s.Site == "" {
		s.Site = scraperType
	}
	if s.Location == "" {
		s.Location = "Sydney NSW"
	}
	if s.Country == "" {
		s.Country = "Australia"
	}
	if s.ResultsWanted == 0 {
		s.ResultsWanted = 999
	}
	if s.HoursOld == 0 {
		s.HoursOld = 24
	}
}

func validate(cfg *Config) error {
	if cfg.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive, got %v", cfg.Polling.Interval)
	}
	if cfg.Polling.MaxWait < cfg.Polling.Interval {
		return fmt.Errorf("polling.max_wait (%v) must be at least polling.interval (%v)", cfg.Polling.MaxWait, cfg.Polling.Interval)
	}
	if cfg.Polling.Backoff < 1 {
		return fmt.Errorf("polling.backoff must be >= 1, got %v", cfg.Polling.Backoff)
	}
	if cfg.Polling.MaxAttempts < 0 {
		return fmt.Errorf("polling.max_attempts must not be negative, got %d", cfg.Polling.MaxAttempts)
	}
	if cfg.OpenAI.MaxTokens < 0 {
		return fmt.Errorf("openai.max_tokens must be positive, got %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.Scraper.MaxRetries < 0 {
		return fmt.Errorf("scraper.max_retries must not be negative, got %d", cfg.Scraper.MaxRetries)
	}

	// Source-specific credentials are checked when the scraper is built.
	switch cfg.Scraper.Type {
	case "adzuna", "greenhouse", "lever", "ashby", "file":
	default:
		return fmt.Errorf("scraper.type must be adzuna, greenhouse, lever, ashby or file, got %q", cfg.Scraper.Type)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "nats":
		if cfg.Notification.NATSURL == "" {
			return fmt.Errorf("notification.nats_url is required when type is \"nats\"")
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or nats, got %q", cfg.Notification.Type)
	}

	if cfg.Artifacts.Endpoint != "" && cfg.Artifacts.Bucket == "" {
		return fmt.Errorf("artifacts.bucket is required when artifacts.endpoint is set")
	}
	return nil
}

// RequireRunEnv reports the first required environment variable that is unset.
func (c *Config) RequireRunEnv() error {
	required := []struct {
		name  string
		value string
	}{
		{EnvDatastoreURL, c.Datastore.URL},
		{EnvDatastoreKey, c.Datastore.Key},
		{EnvBatchFilePath, c.BatchFilePath},
		{EnvOpenAIAPIKey, c.OpenAI.APIKey},
	}
	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("missing environment variable: %s", r.name))
		}
	}
	return errors.Join(errs...)
}

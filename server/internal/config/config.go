package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/server/internal/alerts"
)

// Default values for the service configuration.
const (
	DefaultHTTPPort      = 8080
	DefaultStoreTTLSec   = 3600
	DefaultMinSamples    = 50
	DefaultMaxSamples    = 2_000_000
	DefaultWSIntervalSec = 2
)

// Config is the full service configuration parsed from config.yaml.
// Fields map one to one onto config.example.yaml.
type Config struct {
	// HTTPPort is the port the REST API, WebSocket hub and metrics
	// endpoint listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures API-key checking on the REST surface.
	Auth AuthConfig `yaml:"auth"`

	// Store controls in-memory retention of analysis records.
	Store StoreConfig `yaml:"store"`

	// Analysis sets the pipeline parameters applied to every capture.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Limits overrides the classifier thresholds. Unset fields fall
	// back to the stock values.
	Limits ecg.Limits `yaml:"limits"`

	// WS controls the snapshot push interval of the WebSocket hub.
	WS WSConfig `yaml:"ws"`

	// NATS enables the messaging ingest path when a URL is set.
	NATS NATSConfig `yaml:"nats"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the REST surface.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the
	// expected API key. Used when Mode == "apikey"; the key itself
	// never appears in the file.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StoreConfig controls in-memory analysis retention.
type StoreConfig struct {
	// TTLSeconds is how long a record stays readable after it is
	// stored. Default: 3600.
	TTLSeconds int `yaml:"ttl_seconds"`
}

// AnalysisConfig sets the pipeline parameters applied to every capture.
type AnalysisConfig struct {
	// LowCutHz and HighCutHz are the band-pass corner frequencies.
	// Defaults: 5 and 15.
	LowCutHz  float64 `yaml:"low_cut_hz"`
	HighCutHz float64 `yaml:"high_cut_hz"`

	// Taps overrides the FIR kernel length; 0 selects the automatic
	// rule derived from the capture's sampling rate.
	Taps int `yaml:"taps"`

	// MinSamples rejects captures too short to say anything about.
	// Default: 50.
	MinSamples int `yaml:"min_samples"`

	// MaxSamples bounds the work a single capture may cost.
	// Default: 2000000.
	MaxSamples int `yaml:"max_samples"`
}

// WSConfig controls the WebSocket hub.
type WSConfig struct {
	// IntervalSeconds is the snapshot push period. Default: 2.
	IntervalSeconds int `yaml:"interval_seconds"`
}

// NATSConfig enables the messaging ingest path.
type NATSConfig struct {
	// URL of the NATS server; empty disables the subscriber entirely.
	URL string `yaml:"url"`

	// CaptureSubject carries incoming capture messages.
	// Default: "ecg.capture".
	CaptureSubject string `yaml:"capture_subject"`

	// FindingSubject carries outgoing findings; empty disables
	// republishing. Default: "ecg.finding".
	FindingSubject string `yaml:"finding_subject"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []alerts.Rule    `yaml:"rules"`
	Webhooks []alerts.Webhook `yaml:"webhooks"`
}

// Load reads and parses the config file at path. Missing fields are
// filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		HTTPPort: DefaultHTTPPort,
		Store:    StoreConfig{TTLSeconds: DefaultStoreTTLSec},
		Analysis: AnalysisConfig{
			LowCutHz:   ecg.DefaultLowCutHz,
			HighCutHz:  ecg.DefaultHighCutHz,
			MinSamples: DefaultMinSamples,
			MaxSamples: DefaultMaxSamples,
		},
		Limits: ecg.DefaultLimits(),
		WS:     WSConfig{IntervalSeconds: DefaultWSIntervalSec},
		NATS: NATSConfig{
			CaptureSubject: "ecg.capture",
			FindingSubject: "ecg.finding",
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d is out of range [1, 65535]", cfg.HTTPPort)
	}
	switch cfg.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("auth.mode %q unknown: want apikey|none", cfg.Auth.Mode)
	}
	if cfg.Auth.Mode == "apikey" && cfg.Auth.Key() == "" {
		return fmt.Errorf("auth.mode is apikey but %q resolves to an empty key", cfg.Auth.KeyEnv)
	}
	if cfg.Store.TTLSeconds <= 0 {
		return fmt.Errorf("store.ttl_seconds must be positive")
	}
	a := cfg.Analysis
	if a.LowCutHz <= 0 || a.HighCutHz <= a.LowCutHz {
		return fmt.Errorf("analysis band %g-%g Hz: want 0 < low < high", a.LowCutHz, a.HighCutHz)
	}
	if a.MinSamples < 2 {
		return fmt.Errorf("analysis.min_samples %d is too small to form an interval", a.MinSamples)
	}
	if a.MaxSamples < a.MinSamples {
		return fmt.Errorf("analysis.max_samples %d is below min_samples %d", a.MaxSamples, a.MinSamples)
	}
	if cfg.WS.IntervalSeconds <= 0 {
		return fmt.Errorf("ws.interval_seconds must be positive")
	}
	if cfg.NATS.URL != "" && cfg.NATS.CaptureSubject == "" {
		return fmt.Errorf("nats.url is set but nats.capture_subject is empty")
	}
	l := cfg.Limits
	if !(l.BradySevereBPM < l.BradyMildBPM && l.BradyMildBPM <= l.TachyBPM && l.TachyBPM < l.UrgentBPM) {
		return fmt.Errorf("limits rate thresholds %d/%d/%d/%d are not ascending",
			l.BradySevereBPM, l.BradyMildBPM, l.TachyBPM, l.UrgentBPM)
	}
	if l.PauseSec <= 0 || l.PVCEarlyRatio <= 0 || l.PVCReboundRatio <= 0 {
		return fmt.Errorf("limits pause/pvc thresholds must be positive")
	}
	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d] has no name", i)
		}
		if err := alerts.CheckCondition(r.Condition); err != nil {
			return fmt.Errorf("alerts.rules[%d] (%s): %w", i, r.Name, err)
		}
	}
	return nil
}

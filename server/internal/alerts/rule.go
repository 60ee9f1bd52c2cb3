package alerts

import "os"

// Rule defines one threshold-based alert over analysis findings.
type Rule struct {
	// Name is the human-readable alert identifier; together with the
	// capture's device it forms the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "bpm > 150", "pause_count >= 1",
	// "sdnn_s > 0.12", "afib_hits >= 2". See condition.go for the field
	// vocabulary.
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info. Empty means warning.
	Severity string `yaml:"severity"`

	// CooldownSeconds suppresses re-fires for this long after an alert
	// fires. Zero selects the 15-minute default.
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// Webhook defines one webhook delivery target.
type Webhook struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the
	// webhook URL. Webhook URLs embed tokens, so the URL itself never
	// appears in the config file.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w Webhook) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

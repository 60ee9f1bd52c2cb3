// Package alerts implements the rule evaluation engine and webhook
// delivery for rhythmscan alerting. Rules are threshold expressions over
// the numeric fields of an analysis finding ("bpm > 150",
// "pause_count >= 1") evaluated against every stored record; webhooks are
// delivered to Teams, Slack, PagerDuty, or generic HTTP targets.
//
// Alerts deduplicate per rule and device: a rule stays firing until a
// later record from the same device no longer satisfies its condition,
// and a per-rule cooldown suppresses repeat fires. SetRules and
// SetWebhooks swap the configuration at runtime for hot-reload.
package alerts

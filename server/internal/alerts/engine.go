package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rhythmscan/rhythmscan/server/internal/store"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	DeviceID   string     `json:"device_id"`
	RecordID   string     `json:"record_id"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against every stored analysis record and
// delivers webhook notifications when rules fire or resolve. Rules and
// webhooks can be swapped at runtime, which is how config hot-reload
// reaches the engine.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []Rule
	webhooks []Webhook
	active   map[string]*Alert    // key: "ruleName:device"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time // injectable for deterministic tests
}

// New creates an Engine with the given rules and webhook targets.
// An Engine with no rules is valid — Evaluate becomes a no-op.
func New(rules []Rule, webhooks []Webhook) *Engine {
	return &Engine{
		rules:    rules,
		webhooks: webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// SetRules replaces the rule set. Alerts already firing stay active until
// a later record resolves them or their rule disappears from evaluation.
func (e *Engine) SetRules(rules []Rule) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
}

// SetWebhooks replaces the webhook targets.
func (e *Engine) SetWebhooks(webhooks []Webhook) {
	e.mu.Lock()
	e.webhooks = webhooks
	e.mu.Unlock()
}

// Evaluate tests all configured rules against rec.
// Alerts that fire are stored and webhook delivery is triggered
// asynchronously. Alerts that were firing for the same rule and device
// but whose condition is now false are resolved.
func (e *Engine) Evaluate(rec *store.Record) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 {
		return
	}

	device := deviceOf(rec)
	now := e.now()
	for _, rule := range rules {
		key := rule.Name + ":" + device
		fires, value := evalCondition(rule.Condition, rec)

		e.mu.Lock()

		if fires {
			cooldown := time.Duration(rule.CooldownSeconds) * time.Second
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if now.Sub(e.lastFire[key]) > cooldown {
				sev := rule.Severity
				if sev == "" {
					sev = "warning"
				}
				a := &Alert{
					ID:       fmt.Sprintf("%s:%s:%d", rule.Name, device, now.UnixNano()),
					RuleName: rule.Name,
					DeviceID: device,
					RecordID: rec.ID,
					Severity: sev,
					Value:    value,
					Message: fmt.Sprintf("[%s] %s fired for %s: %s = %.2f",
						sev, rule.Name, device, rule.Condition, value),
					FiredAt: now,
					State:   "firing",
				}
				e.active[key] = a
				e.lastFire[key] = now
				alertCopy := *a
				e.mu.Unlock()

				slog.Warn("alert fired",
					"rule", rule.Name,
					"device", device,
					"record", rec.ID,
					"value", value,
					"severity", sev,
				)
				go e.deliver(&alertCopy)
			} else {
				e.mu.Unlock()
			}
		} else {
			if a, ok := e.active[key]; ok && a.State == "firing" {
				resolved := now
				a.State = "resolved"
				a.ResolvedAt = &resolved
				delete(e.active, key)

				e.history = append(e.history, a)
				if len(e.history) > maxHistoryLen {
					e.history = e.history[len(e.history)-maxHistoryLen:]
				}
				alertCopy := *a
				e.mu.Unlock()

				slog.Info("alert resolved",
					"rule", rule.Name,
					"device", device,
				)
				go e.deliver(&alertCopy)
			} else {
				e.mu.Unlock()
			}
		}
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// deviceOf returns the alert key's device component: the capture's
// device ID when the message carried one, otherwise the ingest source.
// One-shot uploads rarely name a device, and folding them under their
// source keeps the dedup key stable.
func deviceOf(rec *store.Record) string {
	if rec.DeviceID != "" {
		return rec.DeviceID
	}
	return rec.Source
}

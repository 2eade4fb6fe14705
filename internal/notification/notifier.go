// Package notification delivers auto-trade alerts to external channels
// (log, webhook, Telegram).
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"fxdesk/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Pair    string     `json:"pair,omitempty"`
	Signal  string     `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// FromRecommendation builds the alert for an approved auto-trade.
func FromRecommendation(pair string, rec model.AutoTradeRecommendation) Alert {
	return Alert{
		Level: AlertWarning,
		Title: fmt.Sprintf("Auto-trade signal: %s %s", rec.Signal.Type, pair),
		Message: fmt.Sprintf("%s at %.5f (strength %d, confidence %d): %s",
			rec.Signal.Type, rec.Signal.Price, rec.Signal.Strength, rec.Signal.Confidence, rec.Reason),
		Pair:   pair,
		Signal: string(rec.Signal.Type),
	}
}

// LogNotifier logs alerts instead of delivering them. The default backend
// when no webhook or Telegram credentials are configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	slog.Info("alert", "level", alert.Level, "title", alert.Title,
		"pair", alert.Pair, "message", alert.Message)
	return nil
}

// Fanout delivers each alert to every backend, returning the first error.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, alert Alert) error {
	var firstErr error
	for _, n := range f {
		if err := n.Send(ctx, alert); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

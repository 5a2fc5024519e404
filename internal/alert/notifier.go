package alert

import (
	"log/slog"
	"sync"

	"github.com/oszuidwest/zwfm-levelmeter/internal/config"
)

// Notifier orchestrates notifications for silence and overload events. It
// tracks which notifications have been sent to avoid duplicates, and
// independently triggers webhook, email and log notifications based on
// configuration. Senders run on background goroutines so the dispatch tick
// never waits on the network.
type Notifier struct {
	cfg *config.Config

	// mu protects the notification state fields below
	mu sync.Mutex

	// Track which notifications have been sent for the current silence period
	webhookSent bool
	emailSent   bool
	logSent     bool

	// overloadSent latches until the overload indicator is cleared
	overloadSent bool
}

// NewNotifier returns a Notifier configured with the given config.
func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{cfg: cfg}
}

// HandleSilence processes a silence event and triggers the appropriate
// notifications. Call this after each Detector.Update with the returned
// event.
func (n *Notifier) HandleSilence(ev Event) {
	if ev.JustEntered {
		n.handleSilenceStart(ev.Duration)
	}
	if ev.JustRecovered {
		n.handleSilenceEnd(ev.TotalDuration)
	}
}

// HandleOverload triggers overload notifications once per latch episode.
// ClearOverload re-arms it.
func (n *Notifier) HandleOverload(peakDB float64) {
	cfg := n.cfg.Snapshot()

	n.mu.Lock()
	shouldSend := !n.overloadSent
	n.overloadSent = true
	n.mu.Unlock()
	if !shouldSend {
		return
	}

	if cfg.HasWebhook() {
		go logResult("overload webhook", func() error {
			return sendOverloadWebhook(cfg.WebhookURL, peakDB)
		})
	}
	if cfg.HasLogPath() {
		go logResult("overload log", func() error {
			return logOverload(cfg.LogPath, peakDB)
		})
	}
}

// ClearOverload re-arms overload notifications after the indicator has
// been reset.
func (n *Notifier) ClearOverload() {
	n.mu.Lock()
	n.overloadSent = false
	n.mu.Unlock()
}

// handleSilenceStart triggers notifications when silence is first confirmed.
func (n *Notifier) handleSilenceStart(duration float64) {
	cfg := n.cfg.Snapshot()

	n.trySend(&n.webhookSent, cfg.HasWebhook(), "silence webhook", func() error {
		return sendSilenceWebhook(cfg.WebhookURL, duration, cfg.SilenceThreshold)
	})
	n.trySend(&n.emailSent, cfg.HasEmail(), "silence email", func() error {
		return sendSilenceEmail(&cfg, duration)
	})
	n.trySend(&n.logSent, cfg.HasLogPath(), "silence log", func() error {
		return logSilenceStart(cfg.LogPath, cfg.SilenceThreshold)
	})
}

// trySend atomically checks and sets a notification flag, then spawns the
// sender if needed.
func (n *Notifier) trySend(sent *bool, condition bool, name string, sender func() error) {
	n.mu.Lock()
	shouldSend := !*sent && condition
	if shouldSend {
		*sent = true
	}
	n.mu.Unlock()
	if shouldSend {
		go logResult(name, sender)
	}
}

// handleSilenceEnd triggers recovery notifications when silence ends.
func (n *Notifier) handleSilenceEnd(totalDuration float64) {
	cfg := n.cfg.Snapshot()

	// Only send recovery notifications if we sent the corresponding
	// start notification.
	n.mu.Lock()
	sendWebhook := n.webhookSent
	sendEmail := n.emailSent
	sendLog := n.logSent
	n.webhookSent = false
	n.emailSent = false
	n.logSent = false
	n.mu.Unlock()

	if sendWebhook {
		go logResult("recovery webhook", func() error {
			return sendRecoveryWebhook(cfg.WebhookURL, totalDuration)
		})
	}
	if sendEmail {
		go logResult("recovery email", func() error {
			return sendRecoveryEmail(&cfg, totalDuration)
		})
	}
	if sendLog {
		go logResult("recovery log", func() error {
			return logSilenceEnd(cfg.LogPath, totalDuration, cfg.SilenceThreshold)
		})
	}
}

// Reset clears the notification state.
func (n *Notifier) Reset() {
	n.mu.Lock()
	n.webhookSent = false
	n.emailSent = false
	n.logSent = false
	n.overloadSent = false
	n.mu.Unlock()
}

// Test triggers, used by the web interface to verify configuration.

// TestWebhook sends a test webhook notification.
func (n *Notifier) TestWebhook() error {
	cfg := n.cfg.Snapshot()
	return sendTestWebhook(cfg.WebhookURL)
}

// TestEmail sends a test email notification.
func (n *Notifier) TestEmail() error {
	cfg := n.cfg.Snapshot()
	return sendTestEmail(&cfg)
}

// TestLog writes a test entry to the alert log.
func (n *Notifier) TestLog() error {
	cfg := n.cfg.Snapshot()
	return writeTestLog(cfg.LogPath)
}

// logResult runs a sender and logs its outcome.
func logResult(name string, sender func() error) {
	if err := sender(); err != nil {
		slog.Error("notification failed", "notification", name, "error", err)
		return
	}
	slog.Info("notification sent", "notification", name)
}

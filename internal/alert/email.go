package alert

import (
	"fmt"
	"strings"

	"github.com/oszuidwest/zwfm-levelmeter/internal/config"
	"github.com/oszuidwest/zwfm-levelmeter/internal/util"
	"github.com/wneessen/go-mail"
)

// sendSilenceEmail sends an email notification for confirmed silence.
func sendSilenceEmail(cfg *config.Snapshot, duration float64) error {
	if !util.IsConfigured(cfg.EmailSMTPHost, cfg.EmailUsername, cfg.EmailRecipients) {
		return nil // Silently skip if not configured
	}

	subject := "[ALERT] Silence Detected - ZuidWest FM Level Meter"
	body := fmt.Sprintf(
		"Silence detected on the monitored signal.\n\n"+
			"Duration:  %.1f seconds\n"+
			"Threshold: %.1f dB\n"+
			"Time:      %s\n\n"+
			"Please check the audio source.",
		duration, cfg.SilenceThreshold, util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// sendRecoveryEmail sends an email notification when audio recovers.
func sendRecoveryEmail(cfg *config.Snapshot, silenceDuration float64) error {
	if !util.IsConfigured(cfg.EmailSMTPHost, cfg.EmailUsername, cfg.EmailRecipients) {
		return nil
	}

	subject := "[OK] Audio Recovered - ZuidWest FM Level Meter"
	body := fmt.Sprintf(
		"Audio recovered on the monitored signal.\n\n"+
			"Silence lasted: %.1f seconds\n"+
			"Time:           %s",
		silenceDuration, util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// sendTestEmail sends a test email to verify SMTP configuration.
func sendTestEmail(cfg *config.Snapshot) error {
	if cfg.EmailSMTPHost == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if cfg.EmailUsername == "" {
		return fmt.Errorf("email username not configured")
	}
	if cfg.EmailRecipients == "" {
		return fmt.Errorf("email recipients not configured")
	}

	subject := "[TEST] ZuidWest FM Level Meter"
	body := fmt.Sprintf(
		"Test email from the level meter.\n\n"+
			"Time: %s\n\n"+
			"SMTP configuration is working correctly.",
		util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// sendEmail delivers an email message to the configured recipients.
func sendEmail(cfg *config.Snapshot, subject, body string) error {
	var recipients []string
	for _, r := range strings.Split(cfg.EmailRecipients, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	m := mail.NewMsg()
	if cfg.EmailFromName != "" {
		if err := m.FromFormat(cfg.EmailFromName, cfg.EmailUsername); err != nil {
			return util.WrapError("set from address", err)
		}
	} else {
		if err := m.From(cfg.EmailUsername); err != nil {
			return util.WrapError("set from address", err)
		}
	}
	if err := m.To(recipients...); err != nil {
		return util.WrapError("set recipient address", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	// Build client options with port-appropriate TLS settings
	opts := []mail.Option{
		mail.WithPort(cfg.EmailSMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		mail.WithUsername(cfg.EmailUsername),
		mail.WithPassword(cfg.EmailPassword),
	}

	switch cfg.EmailSMTPPort {
	case 465: // SMTPS - implicit TLS
		opts = append(opts, mail.WithSSL())
	case 587: // Submission - STARTTLS required
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	default: // Port 25 or custom - opportunistic TLS
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(cfg.EmailSMTPHost, opts...)
	if err != nil {
		return util.WrapError("create SMTP client", err)
	}

	if err := c.DialAndSend(m); err != nil {
		return util.WrapError("send email", err)
	}

	return nil
}

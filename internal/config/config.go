// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/oszuidwest/zwfm-levelmeter/internal/util"
)

// Configuration defaults.
const (
	DefaultWebPort          = 8080
	DefaultWebUsername      = "admin"
	DefaultWebPassword      = "meter"
	DefaultScaleFloorDB     = -96.0
	DefaultSilenceThreshold = -40.0
	DefaultSilenceDuration  = 15.0
	DefaultSilenceRecovery  = 5.0
	DefaultEmailSMTPPort    = 587
	DefaultEmailFromName    = "ZuidWest FM Level Meter"
)

// DefaultScaleDivisions are the dB marks drawn on the meter scale when
// none are configured, lowest first with 0 dBFS on top.
var DefaultScaleDivisions = []float64{-60, -40, -20, -10, -6, -3, 0}

// WebConfig contains web server configuration.
type WebConfig struct {
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ScaleConfig contains the meter scale configuration.
type ScaleConfig struct {
	FloorDB   float64   `json:"floor_db,omitempty"`
	Divisions []float64 `json:"divisions,omitempty"`
}

// SilenceDetectionConfig contains silence detection configuration.
type SilenceDetectionConfig struct {
	ThresholdDB     float64 `json:"threshold_db,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	RecoverySeconds float64 `json:"recovery_seconds,omitempty"`
}

// EmailConfig contains email notification configuration.
type EmailConfig struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	FromName   string `json:"from_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Recipients string `json:"recipients,omitempty"`
}

// NotificationsConfig contains all notification configuration.
type NotificationsConfig struct {
	WebhookURL string      `json:"webhook_url,omitempty"`
	LogPath    string      `json:"log_path,omitempty"`
	Email      EmailConfig `json:"email,omitempty"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Web              WebConfig              `json:"web"`
	Scale            ScaleConfig            `json:"scale,omitempty"`
	SilenceDetection SilenceDetectionConfig `json:"silence_detection,omitempty"`
	Notifications    NotificationsConfig    `json:"notifications,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Web: WebConfig{
			Port:     DefaultWebPort,
			Username: DefaultWebUsername,
			Password: DefaultWebPassword,
		},
		Scale: ScaleConfig{
			FloorDB:   DefaultScaleFloorDB,
			Divisions: slices.Clone(DefaultScaleDivisions),
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.Web.Port == 0 {
		c.Web.Port = DefaultWebPort
	}
	if c.Web.Username == "" {
		c.Web.Username = DefaultWebUsername
	}
	if c.Web.Password == "" {
		c.Web.Password = DefaultWebPassword
	}
	if c.Scale.FloorDB == 0 {
		c.Scale.FloorDB = DefaultScaleFloorDB
	}
	if len(c.Scale.Divisions) == 0 {
		c.Scale.Divisions = slices.Clone(DefaultScaleDivisions)
	}
}

// Save writes the configuration to file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// WebPort returns the web server port.
func (c *Config) WebPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Port
}

// WebUser returns the web authentication username.
func (c *Config) WebUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Username
}

// WebPassword returns the web authentication password.
func (c *Config) WebPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Password
}

// ScaleFloorDB returns the configured meter scale floor in decibels.
func (c *Config) ScaleFloorDB() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cmp.Or(c.Scale.FloorDB, DefaultScaleFloorDB)
}

// ScaleDivisions returns a copy of the configured scale division points.
func (c *Config) ScaleDivisions() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.Scale.Divisions) == 0 {
		return slices.Clone(DefaultScaleDivisions)
	}
	return slices.Clone(c.Scale.Divisions)
}

// SilenceThreshold returns the configured silence threshold in decibels.
func (c *Config) SilenceThreshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cmp.Or(c.SilenceDetection.ThresholdDB, DefaultSilenceThreshold)
}

// SetSilenceThreshold updates the silence detection threshold and saves.
func (c *Config) SetSilenceThreshold(threshold float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceDetection.ThresholdDB = threshold
	return c.saveLocked()
}

// SilenceDuration returns the silence duration before alerting, in seconds.
func (c *Config) SilenceDuration() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cmp.Or(c.SilenceDetection.DurationSeconds, DefaultSilenceDuration)
}

// SetSilenceDuration updates the silence duration and saves.
func (c *Config) SetSilenceDuration(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceDetection.DurationSeconds = seconds
	return c.saveLocked()
}

// SilenceRecovery returns the audio duration before silence is considered
// recovered, in seconds.
func (c *Config) SilenceRecovery() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cmp.Or(c.SilenceDetection.RecoverySeconds, DefaultSilenceRecovery)
}

// SetSilenceRecovery updates the silence recovery time and saves.
func (c *Config) SetSilenceRecovery(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceDetection.RecoverySeconds = seconds
	return c.saveLocked()
}

// WebhookURL returns the configured webhook URL for notifications.
func (c *Config) WebhookURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications.WebhookURL
}

// SetWebhookURL updates the webhook URL and saves.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.WebhookURL = url
	return c.saveLocked()
}

// LogPath returns the configured alert log file path.
func (c *Config) LogPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Notifications.LogPath
}

// SetLogPath updates the alert log file path and saves.
func (c *Config) SetLogPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.LogPath = path
	return c.saveLocked()
}

// SetEmailConfig updates all email configuration fields and saves.
func (c *Config) SetEmailConfig(host string, port int, fromName, username, password, recipients string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Email.Host = host
	c.Notifications.Email.Port = port
	c.Notifications.Email.FromName = fromName
	c.Notifications.Email.Username = username
	c.Notifications.Email.Password = password
	c.Notifications.Email.Recipients = recipients
	return c.saveLocked()
}

// Snapshot contains a point-in-time copy of all configuration values.
// Use this instead of multiple individual getters to reduce mutex
// contention.
type Snapshot struct {
	// Web
	WebPort     int
	WebUser     string
	WebPassword string

	// Scale
	ScaleFloorDB   float64
	ScaleDivisions []float64

	// Silence detection
	SilenceThreshold float64
	SilenceDuration  float64
	SilenceRecovery  float64

	// Notifications
	WebhookURL string
	LogPath    string

	// Email
	EmailSMTPHost   string
	EmailSMTPPort   int
	EmailFromName   string
	EmailUsername   string
	EmailPassword   string
	EmailRecipients string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	divisions := c.Scale.Divisions
	if len(divisions) == 0 {
		divisions = DefaultScaleDivisions
	}

	return Snapshot{
		WebPort:     c.Web.Port,
		WebUser:     c.Web.Username,
		WebPassword: c.Web.Password,

		ScaleFloorDB:   cmp.Or(c.Scale.FloorDB, DefaultScaleFloorDB),
		ScaleDivisions: slices.Clone(divisions),

		SilenceThreshold: cmp.Or(c.SilenceDetection.ThresholdDB, DefaultSilenceThreshold),
		SilenceDuration:  cmp.Or(c.SilenceDetection.DurationSeconds, DefaultSilenceDuration),
		SilenceRecovery:  cmp.Or(c.SilenceDetection.RecoverySeconds, DefaultSilenceRecovery),

		WebhookURL: c.Notifications.WebhookURL,
		LogPath:    c.Notifications.LogPath,

		EmailSMTPHost:   c.Notifications.Email.Host,
		EmailSMTPPort:   cmp.Or(c.Notifications.Email.Port, DefaultEmailSMTPPort),
		EmailFromName:   cmp.Or(c.Notifications.Email.FromName, DefaultEmailFromName),
		EmailUsername:   c.Notifications.Email.Username,
		EmailPassword:   c.Notifications.Email.Password,
		EmailRecipients: c.Notifications.Email.Recipients,
	}
}

// HasWebhook returns true if a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasEmail returns true if email notifications are configured.
func (s *Snapshot) HasEmail() bool {
	return s.EmailSMTPHost != "" && s.EmailRecipients != ""
}

// HasLogPath returns true if an alert log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}

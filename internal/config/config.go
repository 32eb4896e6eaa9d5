package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"xcleanup/internal/matcher"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "/etc/xcleanup/config.yaml"

type PathsCfg struct {
	AllowedPaths   []string `yaml:"allowed_paths" json:"allowed_paths"`
	ExcludedPaths  []string `yaml:"excluded_paths" json:"excluded_paths"`
	ProtectedPaths []string `yaml:"protected_paths" json:"protected_paths"` // Wildcard patterns never deleted, on top of the built-in list
	FollowSymlinks bool     `yaml:"follow_symlinks" json:"follow_symlinks"`
	NFSTimeout     int      `yaml:"nfs_timeout_seconds" json:"nfs_timeout_seconds"` // 0 disables the stale mount check
}

type CleanupCfg struct {
	MinAgeSeconds              int  `yaml:"min_age_seconds" json:"min_age_seconds"`
	SkipIfDeletedWithinSeconds int  `yaml:"skip_if_deleted_within_seconds" json:"skip_if_deleted_within_seconds"`
	DeleteFiles                bool `yaml:"delete_files" json:"delete_files"`
	DeleteEmptyDirectories     bool `yaml:"delete_empty_directories" json:"delete_empty_directories"`
	MaxItems                   int  `yaml:"max_items" json:"max_items"` // 0 = unbounded
}

type EmergencyCfg struct {
	Enabled                    bool     `yaml:"enabled" json:"enabled"`
	FreePercentThreshold       float64  `yaml:"free_percent_threshold" json:"free_percent_threshold"`
	FreeBytesThreshold         int64    `yaml:"free_bytes_threshold" json:"free_bytes_threshold"`
	FreeBytesCriticalThreshold int64    `yaml:"free_bytes_critical_threshold" json:"free_bytes_critical_threshold"`
	Paths                      []string `yaml:"paths" json:"paths"`
}

type LoggingCfg struct {
	Directory  string `yaml:"directory" json:"directory"`
	Level      string `yaml:"level" json:"level"`
	JSONLogs   bool   `yaml:"json_logs" json:"json_logs"`
	Console    bool   `yaml:"console" json:"console"` // Mirror log lines to stdout
	StateFile  string `yaml:"state_file" json:"state_file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

type HistoryCfg struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	DatabasePath  string `yaml:"database_path" json:"database_path"`
	RetentionDays int    `yaml:"retention_days" json:"retention_days"` // Rows older than this are pruned by the daemon; 0 keeps everything
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type EmailCfg struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	SMTPHost       string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort       int    `yaml:"smtp_port" json:"smtp_port"`
	SMTPUsername   string `yaml:"smtp_username" json:"smtp_username"`
	SMTPPassword   string `yaml:"smtp_password" json:"-"`
	SMTPEncryption string `yaml:"smtp_encryption" json:"smtp_encryption"` // tls, ssl or starttls
	From           string `yaml:"from" json:"from"`
	To             string `yaml:"to" json:"to"`
}

type TelegramCfg struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	BotToken string `yaml:"bot_token" json:"-"`
	ChatID   string `yaml:"chat_id" json:"chat_id"`
}

type WebhookCfg struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

type GenericWebhookCfg struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url"`
}

type NotificationsCfg struct {
	Enabled  bool              `yaml:"enabled" json:"enabled"`
	Email    EmailCfg          `yaml:"email" json:"email"`
	Telegram TelegramCfg       `yaml:"telegram" json:"telegram"`
	Slack    WebhookCfg        `yaml:"slack" json:"slack"`
	Discord  WebhookCfg        `yaml:"discord" json:"discord"`
	Webhook  GenericWebhookCfg `yaml:"webhook" json:"webhook"`
}

type Config struct {
	DiskCheckPath string           `yaml:"disk_check_path" json:"disk_check_path"`
	Schedule      string           `yaml:"schedule" json:"schedule"` // Cron expression for daemon mode
	Paths         PathsCfg         `yaml:"paths" json:"paths"`
	Cleanup       CleanupCfg       `yaml:"cleanup" json:"cleanup"`
	Emergency     EmergencyCfg     `yaml:"emergency" json:"emergency"`
	Logging       LoggingCfg       `yaml:"logging" json:"logging"`
	History       HistoryCfg       `yaml:"history" json:"history"`
	Prometheus    PrometheusCfg    `yaml:"prometheus" json:"prometheus"`
	Notifications NotificationsCfg `yaml:"notifications" json:"notifications"`
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var (
	errNoAllowedPaths = fmt.Errorf("%w: paths.allowed_paths must not be empty", ErrInvalidConfig)
	errInvalidPath    = fmt.Errorf("%w: path must be absolute", ErrInvalidConfig)
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open config: %v", ErrInvalidConfig, err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates configuration held in memory.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.DiskCheckPath == "" {
		c.DiskCheckPath = "/"
	}
	cp, err := cleanAbsolute(c.DiskCheckPath)
	if err != nil {
		return fmt.Errorf("disk_check_path: %w", err)
	}
	c.DiskCheckPath = cp

	if c.Schedule == "" {
		c.Schedule = "*/15 * * * *"
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("%w: schedule %q: %v", ErrInvalidConfig, c.Schedule, err)
	}

	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateEmergency(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}

	if c.Prometheus.Port < 0 || c.Prometheus.Port > 65535 {
		return fmt.Errorf("%w: prometheus.port out of range: %d", ErrInvalidConfig, c.Prometheus.Port)
	}

	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if len(c.Paths.AllowedPaths) == 0 {
		return errNoAllowedPaths
	}
	if err := validatePatterns("paths.allowed_paths", c.Paths.AllowedPaths); err != nil {
		return err
	}
	if err := validatePatterns("paths.excluded_paths", c.Paths.ExcludedPaths); err != nil {
		return err
	}
	for _, p := range c.Paths.ProtectedPaths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("paths.protected_paths %q: %w", p, errInvalidPath)
		}
	}
	if c.Paths.NFSTimeout < 0 {
		return nonNegative("paths.nfs_timeout_seconds")
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if c.Cleanup.MinAgeSeconds < 0 {
		return nonNegative("cleanup.min_age_seconds")
	}
	if c.Cleanup.SkipIfDeletedWithinSeconds < 0 {
		return nonNegative("cleanup.skip_if_deleted_within_seconds")
	}
	if c.Cleanup.MaxItems < 0 {
		return nonNegative("cleanup.max_items")
	}
	return nil
}

func (c *Config) validateEmergency() error {
	e := c.Emergency
	if e.FreePercentThreshold < 0 || e.FreePercentThreshold > 100 {
		return fmt.Errorf("%w: emergency.free_percent_threshold must be between 0 and 100", ErrInvalidConfig)
	}
	if e.FreeBytesThreshold < 0 {
		return nonNegative("emergency.free_bytes_threshold")
	}
	if e.FreeBytesCriticalThreshold < 0 {
		return nonNegative("emergency.free_bytes_critical_threshold")
	}
	return validatePatterns("emergency.paths", e.Paths)
}

func (c *Config) validateLogging() error {
	l := &c.Logging
	if l.Directory == "" {
		l.Directory = "/var/log/xcleanup"
	}
	dir, err := cleanAbsolute(l.Directory)
	if err != nil {
		return fmt.Errorf("logging.directory: %w", err)
	}
	l.Directory = dir

	if l.StateFile == "" {
		l.StateFile = "/var/lib/xcleanup/state.json"
	}
	sf, err := cleanAbsolute(l.StateFile)
	if err != nil {
		return fmt.Errorf("logging.state_file: %w", err)
	}
	l.StateFile = sf

	if l.Level == "" {
		l.Level = "info"
	}
	l.Level = strings.ToLower(l.Level)
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be debug, info, warn or error: %q", ErrInvalidConfig, l.Level)
	}

	if l.MaxSizeMB <= 0 {
		l.MaxSizeMB = 50
	}
	if l.MaxBackups <= 0 {
		l.MaxBackups = 5
	}
	if l.MaxAgeDays <= 0 {
		l.MaxAgeDays = 30
	}
	return nil
}

func (c *Config) validateHistory() error {
	h := &c.History
	if h.DatabasePath == "" {
		h.DatabasePath = "/var/lib/xcleanup/history.db"
	}
	dp, err := cleanAbsolute(h.DatabasePath)
	if err != nil {
		return fmt.Errorf("history.database_path: %w", err)
	}
	h.DatabasePath = dp
	if h.RetentionDays < 0 {
		return nonNegative("history.retention_days")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := &c.Notifications

	if n.Email.SMTPPort == 0 {
		n.Email.SMTPPort = 587
	}
	if n.Email.Enabled {
		if n.Email.SMTPPort < 0 {
			return fmt.Errorf("%w: notifications.email.smtp_port must be positive", ErrInvalidConfig)
		}
		required := map[string]string{
			"smtp_host":       n.Email.SMTPHost,
			"smtp_username":   n.Email.SMTPUsername,
			"smtp_password":   n.Email.SMTPPassword,
			"smtp_encryption": n.Email.SMTPEncryption,
			"from":            n.Email.From,
			"to":              n.Email.To,
		}
		for _, key := range []string{"smtp_host", "smtp_username", "smtp_password", "smtp_encryption", "from", "to"} {
			if required[key] == "" {
				return fmt.Errorf("%w: notifications.email.%s must be a non-empty string", ErrInvalidConfig, key)
			}
		}
	}

	if n.Telegram.Enabled && (n.Telegram.BotToken == "" || n.Telegram.ChatID == "") {
		return fmt.Errorf("%w: telegram notification requires bot_token and chat_id", ErrInvalidConfig)
	}
	if n.Slack.Enabled && n.Slack.WebhookURL == "" {
		return fmt.Errorf("%w: slack notification requires webhook_url", ErrInvalidConfig)
	}
	if n.Discord.Enabled && n.Discord.WebhookURL == "" {
		return fmt.Errorf("%w: discord notification requires webhook_url", ErrInvalidConfig)
	}
	if n.Webhook.Enabled && n.Webhook.URL == "" {
		return fmt.Errorf("%w: webhook notification requires url", ErrInvalidConfig)
	}
	return nil
}

func validatePatterns(field string, patterns []string) error {
	for _, p := range patterns {
		if err := matcher.Validate(p); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, field, err)
		}
	}
	return nil
}

func nonNegative(field string) error {
	return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidConfig, field)
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// RootCandidates filters a pattern list down to entries usable as scan roots:
// absolute literal paths without wildcards.
func RootCandidates(patterns []string) []string {
	roots := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" || matcher.IsRegex(p) || strings.Contains(p, "*") || !filepath.IsAbs(p) {
			continue
		}
		roots = append(roots, p)
	}
	return roots
}

// MinAge returns the minimum entry age as a duration.
func (c *Config) MinAge() time.Duration {
	return time.Duration(c.Cleanup.MinAgeSeconds) * time.Second
}

// Cooldown returns the skip-if-recently-deleted window.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Cleanup.SkipIfDeletedWithinSeconds) * time.Second
}

func (c *Config) NFSTimeout() time.Duration {
	return time.Duration(c.Paths.NFSTimeout) * time.Second
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

// LogFile is the rotating cleanup log inside the logging directory.
func (c *Config) LogFile() string {
	return LogFilePath(c.Logging.Directory)
}

// LogFilePath returns the cleanup log location inside dir.
func LogFilePath(dir string) string {
	return filepath.Join(dir, "cleanup.log")
}

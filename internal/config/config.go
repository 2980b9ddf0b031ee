// Package config loads an immutable, process-wide configuration snapshot
// once at startup. It is never read as a hidden global by engine code —
// callers construct engines with an explicit *Config value.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is the frozen configuration snapshot threaded through every
// engine constructor.
type Config struct {
	DataRoot string `mapstructure:"data_root"`

	// Size gates. Zero means unlimited.
	MaxSubjectBytes     int64 `mapstructure:"max_subject_bytes"`
	MaxBodyBytes        int64 `mapstructure:"max_body_bytes"`
	MaxAttachmentBytes  int64 `mapstructure:"max_attachment_bytes"`
	MaxTotalBytes       int64 `mapstructure:"max_total_bytes"`

	AutoRegisterRecipients bool          `mapstructure:"auto_register_recipients"`
	ContactTTL             time.Duration `mapstructure:"contact_ttl"`
	RecentThreadWindow     int           `mapstructure:"recent_thread_window"`
	AckSLA                 time.Duration `mapstructure:"ack_sla"`
	ReservationDefaultTTL  time.Duration `mapstructure:"reservation_default_ttl"`

	// Anomaly-synthesis tunables (internal/search's BuildAnomalies).
	AgentIdleThreshold       time.Duration `mapstructure:"agent_idle_threshold"`
	ReservationExpiryWarning time.Duration `mapstructure:"reservation_expiry_warning"`

	DiskPressureFatalPercent    float64 `mapstructure:"disk_pressure_fatal_percent"`
	DiskPressureCriticalPercent float64 `mapstructure:"disk_pressure_critical_percent"`

	WebPQuality            int `mapstructure:"webp_quality"`
	AttachmentMaxDimension int `mapstructure:"attachment_max_dimension"`

	SubjectPrefixDefault string `mapstructure:"subject_prefix_default"`
}

// Defaults returns the baseline configuration before file/env overrides.
func Defaults() Config {
	return Config{
		DataRoot:                    "./agentmail-data",
		MaxSubjectBytes:             0,
		MaxBodyBytes:                0,
		MaxAttachmentBytes:          0,
		MaxTotalBytes:               0,
		AutoRegisterRecipients:      true,
		ContactTTL:                  24 * time.Hour,
		RecentThreadWindow:          500,
		AckSLA:                      30 * time.Minute,
		ReservationDefaultTTL:       time.Hour,
		AgentIdleThreshold:          15 * time.Minute,
		ReservationExpiryWarning:    5 * time.Minute,
		DiskPressureFatalPercent:    0.98,
		DiskPressureCriticalPercent: 0.90,
		WebPQuality:                 80,
		AttachmentMaxDimension:      2048,
		SubjectPrefixDefault:        "Re:",
	}
}

// Load builds a Config from defaults, an optional TOML file, and
// AGENTMAIL_-prefixed environment variables, in that precedence order
// (env wins, then file, then defaults).
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("AGENTMAIL")
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if configPath != "" {
		var fileValues map[string]any
		if _, err := toml.DecodeFile(configPath, &fileValues); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", configPath, err)
		}
		if err := v.MergeConfigMap(fileValues); err != nil {
			return cfg, fmt.Errorf("merge config %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("data_root", cfg.DataRoot)
	v.SetDefault("max_subject_bytes", cfg.MaxSubjectBytes)
	v.SetDefault("max_body_bytes", cfg.MaxBodyBytes)
	v.SetDefault("max_attachment_bytes", cfg.MaxAttachmentBytes)
	v.SetDefault("max_total_bytes", cfg.MaxTotalBytes)
	v.SetDefault("auto_register_recipients", cfg.AutoRegisterRecipients)
	v.SetDefault("contact_ttl", cfg.ContactTTL)
	v.SetDefault("recent_thread_window", cfg.RecentThreadWindow)
	v.SetDefault("ack_sla", cfg.AckSLA)
	v.SetDefault("reservation_default_ttl", cfg.ReservationDefaultTTL)
	v.SetDefault("agent_idle_threshold", cfg.AgentIdleThreshold)
	v.SetDefault("reservation_expiry_warning", cfg.ReservationExpiryWarning)
	v.SetDefault("disk_pressure_fatal_percent", cfg.DiskPressureFatalPercent)
	v.SetDefault("disk_pressure_critical_percent", cfg.DiskPressureCriticalPercent)
	v.SetDefault("webp_quality", cfg.WebPQuality)
	v.SetDefault("attachment_max_dimension", cfg.AttachmentMaxDimension)
	v.SetDefault("subject_prefix_default", cfg.SubjectPrefixDefault)
}

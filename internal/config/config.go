package config

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration. Every table the normalizer,
// classifier, and metrics engine consult is injected from here so tests can
// substitute fixture tables without shared state.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Matching MatchingConfig `mapstructure:"matching"`
	Goals    GoalsConfig    `mapstructure:"goals"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Driving  DrivingConfig  `mapstructure:"driving"`
	Tables   Tables         `mapstructure:"tables"`
}

// DataConfig locates the source files and export target.
type DataConfig struct {
	Dir       string            `mapstructure:"dir"`
	JobsFile  string            `mapstructure:"jobs_file"`
	SalesFile string            `mapstructure:"sales_file"`
	GPSFiles  map[string]string `mapstructure:"gps_files"`
	ExportDir string            `mapstructure:"export_dir"`
}

// LogConfig controls logrus level and format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MatchingConfig carries the fuzzy-matching and GPS-correlation thresholds.
type MatchingConfig struct {
	ShortAddressLen     int     `mapstructure:"short_address_len"`
	ShortAddressPenalty float64 `mapstructure:"short_address_penalty"`
	GPSThreshold        int     `mapstructure:"gps_threshold"`
	TimeWindowMin       int     `mapstructure:"time_window_min"`
	MinStopSec          int     `mapstructure:"min_stop_sec"`
}

// GoalsConfig holds the performance goal thresholds as fractions.
type GoalsConfig struct {
	FirstTripComplete float64 `mapstructure:"first_trip_complete"`
	DiagnosticOnlyMin float64 `mapstructure:"diagnostic_only_min"`
	DiagnosticOnlyMax float64 `mapstructure:"diagnostic_only_max"`
	RecallMax         float64 `mapstructure:"recall_max"`
}

// PricingConfig holds the pricing-tier amounts. These are configuration
// data, not business rules; the metrics engine only reads them.
type PricingConfig struct {
	Zone1Call           float64            `mapstructure:"zone1_call"`
	Zone2Call           float64            `mapstructure:"zone2_call"`
	AdditionalAppliance float64            `mapstructure:"additional_appliance"`
	ServiceCall         map[string]float64 `mapstructure:"service_call"`
	PartsCostRatio      float64            `mapstructure:"parts_cost_ratio"`
}

// DrivingConfig holds alert weights and driving score thresholds.
type DrivingConfig struct {
	AlertWeights map[string]float64 `mapstructure:"alert_weights"`
	Excellent    float64            `mapstructure:"excellent"`
	Good         float64            `mapstructure:"good"`
	Average      float64            `mapstructure:"average"`
	BelowAverage float64            `mapstructure:"below_average"`
	WindowsDays  []int              `mapstructure:"windows_days"`
	DecayDays    int                `mapstructure:"decay_days"`
}

// Load builds the configuration: defaults, then an optional YAML file,
// then SERVICEKPI_* environment variables. An explicit path that cannot be
// read is an error; in discovery mode a missing file just means defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("SERVICEKPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("servicekpi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks threshold ranges and required tables.
func (c *Config) Validate() error {
	if c.Matching.ShortAddressPenalty <= 0 || c.Matching.ShortAddressPenalty > 1 {
		return fmt.Errorf("matching.short_address_penalty must be in (0,1], got %v", c.Matching.ShortAddressPenalty)
	}
	if c.Matching.GPSThreshold < 0 || c.Matching.GPSThreshold > 100 {
		return fmt.Errorf("matching.gps_threshold must be in [0,100], got %d", c.Matching.GPSThreshold)
	}
	if c.Matching.TimeWindowMin <= 0 {
		return fmt.Errorf("matching.time_window_min must be positive, got %d", c.Matching.TimeWindowMin)
	}
	if c.Goals.DiagnosticOnlyMin > c.Goals.DiagnosticOnlyMax {
		return fmt.Errorf("goals.diagnostic_only_min %v exceeds goals.diagnostic_only_max %v",
			c.Goals.DiagnosticOnlyMin, c.Goals.DiagnosticOnlyMax)
	}
	if len(c.Tables.TechMapping) == 0 {
		return fmt.Errorf("tables.tech_mapping must not be empty")
	}
	if len(c.Tables.AddressAbbrevs) == 0 {
		return fmt.Errorf("tables.address_abbrevs must not be empty")
	}
	if len(c.Tables.CancelCategories) == 0 {
		return fmt.Errorf("tables.cancel_categories must not be empty")
	}
	return nil
}

var logLevelMap = map[string]log.Level{
	"trace": log.TraceLevel,
	"debug": log.DebugLevel,
	"info":  log.InfoLevel,
	"warn":  log.WarnLevel,
	"error": log.ErrorLevel,
}

// SetupLogger configures the global logrus logger from the log section.
func SetupLogger(lc LogConfig) {
	level, ok := logLevelMap[strings.ToLower(lc.Level)]
	if !ok {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(lc.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

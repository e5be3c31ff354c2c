// Package conf loads and validates the application settings.
package conf

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/muzzleid/muzzle-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// ReliabilityFloor is the fixed minimum confidence below which a
// classification is never treated as registry trustworthy. It encodes a
// trust policy, not a UI preference, and is deliberately not configurable.
const ReliabilityFloor = 0.90

// SubjectIDLength is the exact length of a registry subject identifier.
const SubjectIDLength = 12

// MinMediaPerRegistration is the minimum number of images required at the
// registration boundary. It is not a store level invariant.
const MinMediaPerRegistration = 4

// MainSettings holds process wide settings.
type MainSettings struct {
	Name     string // node name used in logs
	LogLevel string // info, debug, warn, error
}

// WebServerSettings holds the HTTP API listener settings.
type WebServerSettings struct {
	Enabled bool
	Host    string
	Port    string
}

// ClassifierSettings holds confidence gating defaults.
type ClassifierSettings struct {
	DisplayThreshold float64 // user adjustable, callers may override per request
}

// ReferenceSettings points at the static reference table source.
type ReferenceSettings struct {
	Path string
}

// MediaSettings controls image normalization.
type MediaSettings struct {
	MaxDimension     int // longest side of the stored image
	Quality          int // stored JPEG quality
	ThumbnailSize    int // square bound for thumbnails
	ThumbnailQuality int // thumbnail JPEG quality
}

// SQLiteSettings contains the SQLite registry backend settings.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings contains the MySQL registry backend settings.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings selects the registry persistence backend.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// Settings is the root configuration structure.
type Settings struct {
	Debug bool

	Main       MainSettings
	WebServer  WebServerSettings
	Classifier ClassifierSettings
	Reference  ReferenceSettings
	Media      MediaSettings
	Output     OutputSettings
}

// Load reads the configuration from disk, falling back to the embedded
// defaults when no config file exists yet.
func Load() (*Settings, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "muzzle-go"))
	}
	viper.SetEnvPrefix("muzzle")
	viper.AutomaticEnv()

	if err := readDefaults(); err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Build()
		}
		// No config file on disk, embedded defaults apply.
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.Newf("unmarshaling settings: %w", err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// SyncViper copies viper's effective values back into the settings struct
// so bound command-line flags take precedence over the config file.
func SyncViper(settings *Settings) {
	_ = viper.Unmarshal(settings)
}

// readDefaults seeds viper with the embedded default configuration.
func readDefaults() error {
	defaults, err := configFiles.Open("config.yaml")
	if err != nil {
		return errors.Newf("opening embedded defaults: %w", err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	defer func() { _ = defaults.Close() }()

	if err := viper.MergeConfig(defaults); err != nil {
		return errors.Newf("reading embedded defaults: %w", err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Validate checks the settings for values the rest of the system relies on.
func (s *Settings) Validate() error {
	if s.Classifier.DisplayThreshold < 0 || s.Classifier.DisplayThreshold > 1 {
		return errors.Newf("display threshold %.2f outside [0,1]", s.Classifier.DisplayThreshold).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Context("display_threshold", s.Classifier.DisplayThreshold).
			Build()
	}
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		return errors.Newf("only one registry backend may be enabled").
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if !s.Output.SQLite.Enabled && !s.Output.MySQL.Enabled {
		return errors.Newf("no registry backend enabled").
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Media.MaxDimension <= 0 || s.Media.ThumbnailSize <= 0 {
		return errors.Newf("media dimensions must be positive").
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if s.Media.Quality < 1 || s.Media.Quality > 100 || s.Media.ThumbnailQuality < 1 || s.Media.ThumbnailQuality > 100 {
		return errors.Newf("JPEG quality must be within 1..100").
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Save writes the current settings as YAML to the given path.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return errors.Newf("marshaling settings: %w", err).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Newf("creating config directory: %w", err).
				Component("configuration").
				Category(errors.CategoryFileIO).
				Build()
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Newf("writing settings: %w", err).
			Component("configuration").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

// Defaults returns settings populated from the embedded configuration only.
// Used by tests and by subcommands that must not touch the host config.
func Defaults() (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	defaults, err := configFiles.Open("config.yaml")
	if err != nil {
		return nil, fmt.Errorf("opening embedded defaults: %w", err)
	}
	defer func() { _ = defaults.Close() }()
	if err := v.ReadConfig(defaults); err != nil {
		return nil, fmt.Errorf("reading embedded defaults: %w", err)
	}
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling defaults: %w", err)
	}
	return settings, nil
}

// Package config loads voxport settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
	"github.com/Veraticus/voxport/internal/takeout"
)

// Viper keys.
const (
	KeyOwnerName    = "owner.name"
	KeyOwnerNumber  = "owner.number"
	KeyTrustPath    = "trust.path"
	KeyRegion       = "normalize.region"
	KeyBogusNumber  = "normalize.bogus_number"
	KeyPolicy       = "resolve.policy"
	KeyWorkers      = "convert.workers"
	KeySuffix       = "convert.suffix"
	KeyMessagesPath = "output.messages"
	KeyCallsPath    = "output.calls"
	KeyStoragePath  = "storage.path"
	KeyLogLevel     = "logging.level"
	KeyLogFormat    = "logging.format"
)

// Config holds the settings for one invocation.
type Config struct {
	Policy       ledger.Policy
	OwnerName    string
	OwnerNumber  model.Number
	TrustPath    string
	Region       string
	BogusNumber  model.Number
	Suffix       string
	MessagesPath string
	CallsPath    string
	StoragePath  string
	LogLevel     string
	LogFormat    string
	Workers      int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOwnerName, "Me")
	v.SetDefault(KeyRegion, phone.DefaultRegion)
	v.SetDefault(KeyBogusNumber, string(phone.DefaultBogusNumber))
	v.SetDefault(KeyPolicy, "newest")
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeySuffix, takeout.DefaultSuffix)
	v.SetDefault(KeyMessagesPath, "sms-backup.xml")
	v.SetDefault(KeyCallsPath, "calls-backup.xml")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads and validates the configuration from the global viper
// instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration from v. Unset keys fall
// back to their defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		OwnerName:    strings.TrimSpace(v.GetString(KeyOwnerName)),
		TrustPath:    ExpandPath(v.GetString(KeyTrustPath)),
		Region:       strings.ToUpper(strings.TrimSpace(v.GetString(KeyRegion))),
		Suffix:       v.GetString(KeySuffix),
		MessagesPath: ExpandPath(v.GetString(KeyMessagesPath)),
		CallsPath:    ExpandPath(v.GetString(KeyCallsPath)),
		StoragePath:  ExpandPath(v.GetString(KeyStoragePath)),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFormat:    v.GetString(KeyLogFormat),
		Workers:      v.GetInt(KeyWorkers),
	}

	policy, err := ledger.ParsePolicy(v.GetString(KeyPolicy))
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	norm := phone.NewNormalizer(cfg.Region, "")

	bogus := norm.Normalize(v.GetString(KeyBogusNumber))
	if !bogus.OK {
		return nil, fmt.Errorf("%w: %s %q is not a phone number", common.ErrConfiguration, KeyBogusNumber, bogus.Raw)
	}
	cfg.BogusNumber = bogus.Number

	if raw := strings.TrimSpace(v.GetString(KeyOwnerNumber)); raw != "" {
		owner := norm.Normalize(raw)
		if !owner.OK {
			return nil, fmt.Errorf("%w: %s %q is not a phone number", common.ErrConfiguration, KeyOwnerNumber, raw)
		}
		cfg.OwnerNumber = owner.Number
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that do not depend on parsing.
func (c *Config) Validate() error {
	if c.OwnerName == "" {
		return fmt.Errorf("%w: %s cannot be empty", common.ErrConfiguration, KeyOwnerName)
	}
	if phone.IsNumber(c.OwnerName) {
		return fmt.Errorf("%w: %s must be a name, got %q", common.ErrConfiguration, KeyOwnerName, c.OwnerName)
	}
	if len(c.Region) != 2 {
		return fmt.Errorf("%w: %s must be a two-letter region code, got %q", common.ErrConfiguration, KeyRegion, c.Region)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", common.ErrConfiguration, KeyWorkers, c.Workers)
	}
	if !strings.HasPrefix(c.Suffix, ".") {
		return fmt.Errorf("%w: %s must start with a dot, got %q", common.ErrConfiguration, KeySuffix, c.Suffix)
	}
	if c.MessagesPath == "" || c.CallsPath == "" {
		return fmt.Errorf("%w: output paths cannot be empty", common.ErrConfiguration)
	}
	if filepath.Clean(c.MessagesPath) == filepath.Clean(c.CallsPath) {
		return fmt.Errorf("%w: messages and calls cannot be written to the same file", common.ErrConfiguration)
	}
	if c.TrustPath != "" {
		if _, err := os.Stat(c.TrustPath); err != nil {
			return fmt.Errorf("%w: trust file: %v", common.ErrConfiguration, err)
		}
	}
	return nil
}

// ExpandPath expands a leading ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}

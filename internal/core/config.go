package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jo-hoe/cubediary/internal/auth"
	"github.com/jo-hoe/cubediary/internal/backend/commands"
	"github.com/jo-hoe/cubediary/internal/backend/commandstructure"
	"github.com/jo-hoe/cubediary/internal/guest"
	"github.com/jo-hoe/cubediary/internal/layout"
	"github.com/jo-hoe/cubediary/internal/relay"
	"github.com/jo-hoe/cubediary/internal/storage"
	"gopkg.in/yaml.v3"
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Storage struct {
	Bucket string `yaml:"bucket"`
	// PublicBaseURL is the origin clients use to reach this server.
	// Defaults to http://localhost:<port>.
	PublicBaseURL string `yaml:"publicBaseURL"`
}

// Redis is optional. When Addr is set, sessions and relay responses are
// kept in Redis instead of process memory.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Relay struct {
	Timeout               time.Duration `yaml:"timeout"`
	MaxBytes              int64         `yaml:"maxBytes"`
	BlockPrivateAddresses bool          `yaml:"blockPrivateAddresses"`
	CacheTTL              time.Duration `yaml:"cacheTTL"`
	CacheMaxBytes         int           `yaml:"cacheMaxBytes"`
}

type Auth struct {
	SessionTTL time.Duration `yaml:"sessionTTL"`

	// CleanupInterval is how often expired in-memory sessions are dropped.
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
}

type Guest struct {
	Count int    `yaml:"count"`
	Seed  uint64 `yaml:"seed"`
}

type ServiceConfig struct {
	Port     int                              `yaml:"port"`
	Database Database                         `yaml:"database"`
	Storage  Storage                          `yaml:"storage"`
	Redis    Redis                            `yaml:"redis"`
	Relay    Relay                            `yaml:"relay"`
	Auth     Auth                             `yaml:"auth"`
	Guest    Guest                            `yaml:"guest"`
	Layout   layout.Params                    `yaml:"layout"`
	Commands []commandstructure.CommandConfig `yaml:"commands"`
}

// DefaultConfig returns the configuration used for keys a file leaves out.
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Port: 8080,
		Database: Database{
			Type:             "sqlite",
			ConnectionString: "cubediary.db",
		},
		Storage: Storage{
			Bucket: storage.DefaultBucket,
		},
		Relay: Relay{
			Timeout:               relay.DefaultTimeout,
			MaxBytes:              relay.DefaultMaxBytes,
			BlockPrivateAddresses: true,
			CacheTTL:              relay.DefaultCacheTTL,
			CacheMaxBytes:         relay.DefaultCacheLimit,
		},
		Auth: Auth{
			SessionTTL:      auth.DefaultTTL,
			CleanupInterval: auth.DefaultCleanupInterval,
		},
		Guest: Guest{
			Count: guest.DefaultCount,
			Seed:  1,
		},
		Layout: layout.DefaultParams(),
		Commands: []commandstructure.CommandConfig{
			{Name: "FitCommand", Params: map[string]any{"maxWidthOrHeight": commands.DefaultMaxWidthOrHeight}},
			{Name: "JpegEncoderCommand", Params: map[string]any{
				"quality":    commands.DefaultJpegQuality,
				"maxBytes":   commands.DefaultJpegMaxBytes,
				"minQuality": commands.DefaultJpegMinQuality,
			}},
		},
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (*ServiceConfig, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.Storage.PublicBaseURL == "" {
		config.Storage.PublicBaseURL = fmt.Sprintf("http://localhost:%d", config.Port)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *ServiceConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Database.Type == "" {
		return fmt.Errorf("database type must be set")
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("invalid layout configuration: %w", err)
	}
	if c.Relay.MaxBytes < 0 {
		return fmt.Errorf("relay maxBytes must not be negative, got %d", c.Relay.MaxBytes)
	}
	if c.Auth.CleanupInterval <= 0 {
		return fmt.Errorf("auth cleanupInterval must be positive, got %s", c.Auth.CleanupInterval)
	}
	if c.Guest.Count < 0 {
		return fmt.Errorf("guest count must not be negative, got %d", c.Guest.Count)
	}
	// Validate commands
	if err := validateCommands(c.Commands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(configs []commandstructure.CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range configs {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true

		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command: %s (available: %s)", cmd.Name,
				strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}
	}

	return nil
}

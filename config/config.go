package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
	"time"
	_ "time/tzdata"
)

var ErrMissing = errors.New("required configuration is not set")

type Config struct {
	Token          string `mapstructure:"BOT_TOKEN"`
	DatabaseURI    string `mapstructure:"DATABASE_URI"`
	Nickname       string `mapstructure:"BOT_NICKNAME"`
	Game           string `mapstructure:"BOT_GAME"`
	Prefix         string `mapstructure:"CMD_PREFIX"`
	MaxMessageLen  int    `mapstructure:"MAX_MESSAGE_LEN"`
	LocalTZ        string `mapstructure:"LOCAL_TZ"`
	KeepaliveHost  string `mapstructure:"KEEPALIVE_HOST"`
	KeepalivePort  int    `mapstructure:"KEEPALIVE_PORT"`
	AssetsURI      string `mapstructure:"ASSETS_URI"`
	EggsFile       string `mapstructure:"EGGS_FILE"`
	LogDir         string `mapstructure:"LOG_DIR"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogArchiveCron string `mapstructure:"LOG_ARCHIVE_CRON"`
	SpacesKey      string `mapstructure:"SPACES_KEY"`
	SpacesSecret   string `mapstructure:"SPACES_SECRET"`
	SpacesEndpoint string `mapstructure:"SPACES_ENDPOINT"`
	SpacesRegion   string `mapstructure:"SPACES_REGION"`

	Location *time.Location `mapstructure:"-"`
	Eggs     []Egg          `mapstructure:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"CMD_PREFIX":       "!",
		"MAX_MESSAGE_LEN":  2000,
		"LOCAL_TZ":         "America/New_York",
		"KEEPALIVE_HOST":   "0.0.0.0",
		"KEEPALIVE_PORT":   10000,
		"ASSETS_URI":       "file://assets",
		"LOG_DIR":          "logs",
		"LOG_LEVEL":        "info",
		"LOG_ARCHIVE_CRON": "@daily",
		"SPACES_ENDPOINT":  "https://fra1.digitaloceanspaces.com",
		"SPACES_REGION":    "fra1",
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return FromEnv(os.Environ())
}

// LoadOffline is Load for commands that only touch the database. BOT_TOKEN
// may be unset.
func LoadOffline() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return fromEnv(os.Environ(), false)
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// FromEnv builds a Config from KEY=VALUE pairs. Empty values fall back to defaults.
func FromEnv(environ []string) (*Config, error) {
	return fromEnv(environ, true)
}

func fromEnv(environ []string, requireToken bool) (*Config, error) {
	values := defaults()
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		values[key] = value
	}

	config := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return nil, err
	}
	if err = decoder.Decode(values); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err = config.validate(requireToken); err != nil {
		return nil, err
	}

	config.Location, err = time.LoadLocation(config.LocalTZ)
	if err != nil {
		return nil, fmt.Errorf("LOCAL_TZ %q: %w", config.LocalTZ, err)
	}

	config.Eggs = DefaultEggs()
	if config.EggsFile != "" {
		config.Eggs, err = LoadEggs(config.EggsFile)
		if err != nil {
			return nil, err
		}
	}
	return config, nil
}

func (c *Config) validate(requireToken bool) error {
	if requireToken && c.Token == "" {
		return fmt.Errorf("BOT_TOKEN: %w", ErrMissing)
	}
	if c.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI: %w", ErrMissing)
	}
	if c.Prefix == "" {
		return fmt.Errorf("CMD_PREFIX: %w", ErrMissing)
	}
	if c.MaxMessageLen <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LEN must be positive, got %d", c.MaxMessageLen)
	}
	return nil
}

// Egg is a trigger phrase set answered with a bulk DM of a text resource.
type Egg struct {
	Key         string        `yaml:"key"`
	Triggers    []string      `yaml:"triggers"`
	Cooldown    time.Duration `yaml:"cooldown"`
	BusyMessage string        `yaml:"busy_message"`
}

const DefaultCooldown = 300 * time.Second

func DefaultEggs() []Egg {
	return []Egg{
		{
			Key: "avengers-iw",
			Triggers: []string{
				"In time you will know what it's like to lose.",
				"In Time",
				"Destiny still arrives.",
				"Fun isn't something one considers from balancing the universe.",
				"In",
				"Fun",
			},
			Cooldown:    DefaultCooldown,
			BusyMessage: "Anti-Avengers Initiative is on cooldown. I'm probably still posting it to someone right now. Enjoy your freedom while you can!",
		},
	}
}

type eggsFile struct {
	Eggs []Egg `yaml:"eggs"`
}

func LoadEggs(path string) ([]Egg, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eggs file: %w", err)
	}
	return ParseEggs(content)
}

func ParseEggs(content []byte) ([]Egg, error) {
	file := eggsFile{}
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse eggs file: %w", err)
	}
	for i := range file.Eggs {
		egg := &file.Eggs[i]
		if egg.Key == "" {
			return nil, fmt.Errorf("egg %d has no key", i)
		}
		if len(egg.Triggers) == 0 {
			return nil, fmt.Errorf("egg %q has no triggers", egg.Key)
		}
		if egg.Cooldown <= 0 {
			egg.Cooldown = DefaultCooldown
		}
		if egg.BusyMessage == "" {
			egg.BusyMessage = fmt.Sprintf("%s is on cooldown. Try again later.", egg.Key)
		}
	}
	return file.Eggs, nil
}

// Package config loads server settings from defaults, an optional YAML file,
// a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port  string `yaml:"port"`
	Debug bool   `yaml:"debug"`

	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// FrontendOrigin is the only Origin allowed to open a websocket. Empty allows any.
	FrontendOrigin string   `yaml:"frontend_origin"`
	APIKeys        []string `yaml:"api_keys"`

	// Players are identified by a ?token= signed with JWTSecret, or, with
	// TrustQueryIdentity, by a bare ?email= as older clients send. With
	// neither set (the default) every connection is anonymous and friend
	// challenges cannot be addressed; Warnings reports it.
	JWTSecret          string `yaml:"jwt_secret"`
	TrustQueryIdentity bool   `yaml:"trust_query_identity"`

	ReportRejections bool `yaml:"report_rejections"`

	// RedisURL selects the Redis request store; empty keeps requests in memory
	RedisURL   string        `yaml:"redis_url"`
	RequestTTL time.Duration `yaml:"request_ttl"`

	SendBuffer int `yaml:"send_buffer"`
}

// Sources names the optional files Load reads
type Sources struct {
	File    string // YAML, must exist when set
	EnvFile string // dotenv, ignored when missing
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Port:        "8080",
		TurnTimeout: 60 * time.Second,
		RequestTTL:  24 * time.Hour,
		SendBuffer:  256,
	}
}

// Load builds the config from every source and validates it
func Load(src Sources) (*Config, error) {
	cfg := Default()

	if src.File != "" {
		if err := cfg.loadFile(src.File); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if src.EnvFile != "" {
		m, err := godotenv.Read(src.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", src.EnvFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok {
		c.Port = v
	}
	if v, ok := lookup("FRONTEND_ORIGIN"); ok {
		c.FrontendOrigin = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		c.JWTSecret = v
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.RedisURL = v
	}
	if v, ok := lookup("API_KEYS"); ok {
		c.APIKeys = splitList(v)
	}

	for key, dst := range map[string]*bool{
		"DEBUG":                &c.Debug,
		"TRUST_QUERY_IDENTITY": &c.TrustQueryIdentity,
		"REPORT_REJECTIONS":    &c.ReportRejections,
	} {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		*dst = b
	}

	for key, dst := range map[string]*time.Duration{
		"TURN_TIMEOUT": &c.TurnTimeout,
		"REQUEST_TTL":  &c.RequestTTL,
	} {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		*dst = d
	}

	if v, ok := lookup("SEND_BUFFER"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: SEND_BUFFER: %v", ErrInvalidConfig, err)
		}
		c.SendBuffer = n
	}

	return nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: port is required", ErrInvalidConfig)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("%w: turn_timeout must be positive", ErrInvalidConfig)
	}
	if c.RequestTTL <= 0 {
		return fmt.Errorf("%w: request_ttl must be positive", ErrInvalidConfig)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("%w: send_buffer must be positive", ErrInvalidConfig)
	}

	return nil
}

// Warnings lists valid but probably unintended settings
func (c *Config) Warnings() []string {
	var warnings []string

	if c.JWTSecret == "" && !c.TrustQueryIdentity {
		warnings = append(warnings,
			"no jwt_secret and trust_query_identity is off: every connection is anonymous, "+
				"?email= is ignored and game requests never reach a player")
	}

	return warnings
}

// Split comma-separated list of API keys
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// Package config loads the server configuration from defaults, an optional
// YAML file and KATALOG_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const envPrefix = "KATALOG_"

// DefaultPassword is the password of the built-in users when the
// configuration names none.
const DefaultPassword = "p"

type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	DB        DB        `yaml:"db"`
	Redis     Redis     `yaml:"redis"`
	Mail      Mail      `yaml:"mail"`
	Auth      Auth      `yaml:"auth"`
	RateLimit RateLimit `yaml:"rateLimit"`
}

type Server struct {
	Addr string `yaml:"addr" validate:"required"`
	// BaseURI prefixes Location headers and links; empty means the request's own base URL.
	BaseURI         string        `yaml:"baseUri"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

type DB struct {
	// Driver selects the persistence: postgres, memory or mock (static fixtures, nothing persisted).
	Driver   string `yaml:"driver" validate:"oneof=postgres memory mock"`
	DSN      string `yaml:"dsn" validate:"required_if=Driver postgres"`
	Populate bool   `yaml:"populate"`
}

// Redis backs sessions and rate limiting; an empty Addr keeps both in memory.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

type Mail struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port" validate:"gte=0,lte=65535"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	PerMinute int    `yaml:"perMinute" validate:"gte=0"`
	StartTLS  bool   `yaml:"startTls"`
}

type User struct {
	Username     string   `yaml:"username" validate:"required"`
	PasswordHash string   `yaml:"passwordHash" validate:"required"`
	Roles        []string `yaml:"roles"`
}

type Auth struct {
	Users      []User        `yaml:"users" validate:"dive"`
	SessionTTL time.Duration `yaml:"sessionTtl"`
}

type RateLimit struct {
	Max    int           `yaml:"max" validate:"gte=0"`
	Window time.Duration `yaml:"window"`
}

func Default() Config {
	return Config{
		Server: Server{Addr: ":3000", ShutdownTimeout: 10 * time.Second},
		Log:    Log{Level: "info"},
		DB:     DB{Driver: "memory", Populate: true},
		Mail:   Mail{Host: "skip", Port: 25, From: "katalog@acme.com", To: "admin@acme.com", PerMinute: 30},
		Auth:   Auth{SessionTTL: time.Hour},
		RateLimit: RateLimit{
			Max:    60,
			Window: time.Minute,
		},
	}
}

// Load reads path (skipped when empty) over the defaults and applies the
// environment. Without configured users the built-in users are created.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if len(cfg.Auth.Users) == 0 {
		users, err := defaultUsers(getenvDefault("ADMIN_PASSWORD", DefaultPassword))
		if err != nil {
			return Config{}, err
		}
		cfg.Auth.Users = users
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	cfg.Server.Addr = getenvDefault("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.BaseURI = getenvDefault("SERVER_BASE_URI", cfg.Server.BaseURI)

	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getenvDefault("LOG_FILE", cfg.Log.File)

	cfg.DB.Driver = getenvDefault("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = getenvDefault("DB_DSN", cfg.DB.DSN)

	cfg.Redis.Addr = getenvDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getenvDefault("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Mail.Host = getenvDefault("MAIL_HOST", cfg.Mail.Host)
	cfg.Mail.Username = getenvDefault("MAIL_USERNAME", cfg.Mail.Username)
	cfg.Mail.Password = getenvDefault("MAIL_PASSWORD", cfg.Mail.Password)
	cfg.Mail.From = getenvDefault("MAIL_FROM", cfg.Mail.From)
	cfg.Mail.To = getenvDefault("MAIL_TO", cfg.Mail.To)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	collect(getenvBool("LOG_PRETTY", &cfg.Log.Pretty))
	collect(getenvBool("DB_POPULATE", &cfg.DB.Populate))
	collect(getenvInt("REDIS_DB", &cfg.Redis.DB))
	collect(getenvInt("MAIL_PORT", &cfg.Mail.Port))
	collect(getenvInt("MAIL_PER_MINUTE", &cfg.Mail.PerMinute))
	collect(getenvBool("MAIL_STARTTLS", &cfg.Mail.StartTLS))
	collect(getenvDuration("SESSION_TTL", &cfg.Auth.SessionTTL))
	collect(getenvInt("RATE_MAX", &cfg.RateLimit.Max))
	collect(getenvDuration("RATE_WINDOW", &cfg.RateLimit.Window))
	return errors.Join(errs...)
}

func defaultUsers(password string) ([]User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	return []User{
		{Username: "admin", PasswordHash: string(hash), Roles: []string{"admin", "mitarbeiter"}},
		{Username: "adriana", PasswordHash: string(hash), Roles: []string{"mitarbeiter"}},
		{Username: "alfred", PasswordHash: string(hash), Roles: []string{"kunde"}},
	}, nil
}

// FindUser returns the configured user with the given name.
func (a Auth) FindUser(username string) (User, bool) {
	for _, u := range a.Users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return User{}, false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(envPrefix + k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, dst *int) error {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, k, err)
	}
	*dst = i
	return nil
}

func getenvBool(k string, dst *bool) error {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, k, err)
	}
	*dst = b
	return nil
}

func getenvDuration(k string, dst *time.Duration) error {
	v := os.Getenv(envPrefix + k)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, k, err)
	}
	*dst = d
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains service configuration parameters.
type Config struct {
	LogMode  string   `env:"LOG_MODE" envDefault:"development"`
	HTTP     HTTP     `envPrefix:"HTTP_"`
	Database Database `envPrefix:"DATABASE_"`
	Identity Identity `envPrefix:"IDENTITY_"`
	Storage  Storage  `envPrefix:"MINIO_"`
	TTS      TTS      `envPrefix:"TTS_"`
}

// HTTP contains web server parameters.
type HTTP struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	StaticDir         string        `env:"STATIC_DIR" envDefault:"./web/static"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Database contains database connection parameters.
type Database struct {
	URL          string        `env:"URL,required,notEmpty"`
	PingAttempts int           `env:"PING_ATTEMPTS" envDefault:"10"`
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"3s"`
}

// Identity contains the identity gateway parameters. Session tokens are
// verified either with a shared secret or with the gateway's RSA public key.
type Identity struct {
	SessionSecret  string        `env:"SESSION_SECRET"`
	PublicKeyPEM   string        `env:"PUBLIC_KEY"`
	Issuer         string        `env:"ISSUER"`
	APIURL         string        `env:"API_URL" envDefault:"https://api.clerk.com"`
	SecretKey      string        `env:"SECRET_KEY"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Storage contains object storage parameters.
type Storage struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY" envDefault:"learnstream-access-key"`
	SecretKey string `env:"SECRET_KEY" envDefault:"learnstream-secret-key"`
	Bucket    string `env:"BUCKET_NAME" envDefault:"learnstream"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// TTS contains narration generator parameters.
type TTS struct {
	LanguageCode string        `env:"LANGUAGE_CODE" envDefault:"en-US"`
	VoiceName    string        `env:"VOICE_NAME" envDefault:"en-US-Standard-F"`
	Workers      int           `env:"WORKERS" envDefault:"4"`
	Pause        time.Duration `env:"PAUSE" envDefault:"700ms"`
}

// NewConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables win over it.
func NewConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that cannot be expressed with struct tags.
func (c *Config) Validate() error {
	if c.Identity.SessionSecret == "" && c.Identity.PublicKeyPEM == "" {
		return errors.New("config: one of IDENTITY_SESSION_SECRET or IDENTITY_PUBLIC_KEY is required")
	}
	if c.Database.PingAttempts < 1 {
		return fmt.Errorf("config: DATABASE_PING_ATTEMPTS must be positive, got %d", c.Database.PingAttempts)
	}
	if c.TTS.Workers < 1 {
		return fmt.Errorf("config: TTS_WORKERS must be positive, got %d", c.TTS.Workers)
	}
	return nil
}

// Tools contains the settings the offline scripts need. Identity settings
// are left out because the scripts never see a session.
type Tools struct {
	LogMode  string   `env:"LOG_MODE" envDefault:"development"`
	Database Database `envPrefix:"DATABASE_"`
	Storage  Storage  `envPrefix:"MINIO_"`
	TTS      TTS      `envPrefix:"TTS_"`
}

// NewToolsConfig loads the script configuration the same way NewConfig does.
func NewToolsConfig() (*Tools, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := Tools{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.TTS.Workers < 1 {
		return nil, fmt.Errorf("config: TTS_WORKERS must be positive, got %d", cfg.TTS.Workers)
	}
	return &cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

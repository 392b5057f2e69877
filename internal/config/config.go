package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`

	Mpesa struct {
		Env            string `yaml:"env"` // sandbox or production
		BaseURL        string `yaml:"base_url"`
		ConsumerKey    string `yaml:"consumer_key"`
		ConsumerSecret string `yaml:"consumer_secret"`
		ShortCode      string `yaml:"short_code"`
		Passkey        string `yaml:"passkey"`
		CallbackURL    string `yaml:"callback_url"`
	} `yaml:"mpesa"`

	Worker struct {
		ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"`
		ReconcileBatchSize       int `yaml:"reconcile_batch_size"`
	} `yaml:"worker"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or falls back to environment variables when
// DATABASE_URL is set (test and container deployments).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Mpesa.Env = "sandbox"
	cfg.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
	cfg.Mpesa.ConsumerKey = os.Getenv("MPESA_CONSUMER_KEY")
	cfg.Mpesa.ConsumerSecret = os.Getenv("MPESA_CONSUMER_SECRET")
	cfg.Mpesa.ShortCode = os.Getenv("MPESA_SHORT_CODE")
	cfg.Mpesa.Passkey = os.Getenv("MPESA_PASSKEY")
	cfg.Mpesa.CallbackURL = os.Getenv("MPESA_CALLBACK_URL")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Mpesa.BaseURL == "" {
		if cfg.Mpesa.Env == "production" {
			cfg.Mpesa.BaseURL = "https://api.safaricom.co.ke"
		} else {
			cfg.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
		}
	}
	if cfg.Worker.ReconcileIntervalSeconds == 0 {
		cfg.Worker.ReconcileIntervalSeconds = 60
	}
	if cfg.Worker.ReconcileBatchSize == 0 {
		cfg.Worker.ReconcileBatchSize = 50
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type FilesConfig struct {
	RootDir string `yaml:"root_dir"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	DryRun bool   `yaml:"dry_run"`
}

type MediaConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	DryRun  bool   `yaml:"dry_run"`
}

type BotConfig struct {
	CommandPrefix     string   `yaml:"command_prefix"`
	RateLimitWindowMS int      `yaml:"rate_limit_window_ms"`
	RateLimitMax      int      `yaml:"rate_limit_max"`
	OTPTTLMS          int      `yaml:"otp_ttl_ms"`
	AdminAllowlist    []string `yaml:"admin_allowlist"`
	Workers           int      `yaml:"workers"`
	ShutdownTimeoutMS int      `yaml:"shutdown_timeout_ms"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Files    FilesConfig    `yaml:"files"`
	Telegram TelegramConfig `yaml:"telegram"`
	Media    MediaConfig    `yaml:"media"`
	Bot      BotConfig      `yaml:"bot"`
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "config/config.yaml"
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Files.RootDir == "" {
		c.Files.RootDir = "./files"
	}
	if c.Bot.CommandPrefix == "" {
		c.Bot.CommandPrefix = "#"
	}
	if c.Bot.RateLimitWindowMS <= 0 {
		c.Bot.RateLimitWindowMS = 60_000
	}
	if c.Bot.RateLimitMax <= 0 {
		c.Bot.RateLimitMax = 5
	}
	if c.Bot.OTPTTLMS <= 0 {
		c.Bot.OTPTTLMS = int((5 * time.Minute).Milliseconds())
	}
	if c.Bot.Workers <= 0 {
		c.Bot.Workers = 8
	}
	if c.Bot.ShutdownTimeoutMS <= 0 {
		c.Bot.ShutdownTimeoutMS = 5_000
	}
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.Bot.RateLimitWindowMS) * time.Millisecond
}

func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.Bot.OTPTTLMS) * time.Millisecond
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Bot.ShutdownTimeoutMS) * time.Millisecond
}

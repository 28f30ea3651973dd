package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"` // development | production
}

type DatabaseConfig struct {
	DSN string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret"`
	AccessTTLMinutes   int    `yaml:"access_ttl_minutes"`
	RefreshTTLDays     int    `yaml:"refresh_ttl_days"`
	SessionTTLMinutes  int    `yaml:"session_ttl_minutes"`
	OTPTTLSeconds      int    `yaml:"otp_ttl_seconds"`
	OTPDigits          int    `yaml:"otp_digits"`
	ResendCooldownSecs int    `yaml:"resend_cooldown_seconds"`
	MaxVerifyAttempts  int    `yaml:"max_verify_attempts"`
	MaxIssuesPerWindow int    `yaml:"max_issues_per_window"`
	IssueWindowMinutes int    `yaml:"issue_window_minutes"`
	SendTimeoutSeconds int    `yaml:"send_timeout_seconds"`

	// DebugDelivery diverts login codes to the server log instead of email.
	// Refused in production (see Validate), it defeats the second factor.
	DebugDelivery bool `yaml:"debug_delivery"`
}

type CaptchaConfig struct {
	SiteKey        string `yaml:"site_key"`
	Secret         string `yaml:"secret"`
	VerifyURL      string `yaml:"verify_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	OpsChatID int64  `yaml:"ops_chat_id"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Email    EmailConfig    `yaml:"email"`
	Auth     AuthConfig     `yaml:"auth"`
	Captcha  CaptchaConfig  `yaml:"captcha"`
	Telegram TelegramConfig `yaml:"telegram"`
}

func (a AuthConfig) AccessTTL() time.Duration  { return time.Duration(a.AccessTTLMinutes) * time.Minute }
func (a AuthConfig) RefreshTTL() time.Duration { return time.Duration(a.RefreshTTLDays) * 24 * time.Hour }
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}
func (a AuthConfig) OTPTTL() time.Duration { return time.Duration(a.OTPTTLSeconds) * time.Second }
func (a AuthConfig) ResendCooldown() time.Duration {
	return time.Duration(a.ResendCooldownSecs) * time.Second
}
func (a AuthConfig) IssueWindow() time.Duration {
	return time.Duration(a.IssueWindowMinutes) * time.Minute
}
func (a AuthConfig) SendTimeout() time.Duration {
	return time.Duration(a.SendTimeoutSeconds) * time.Second
}

func (c CaptchaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func LoadConfig() *Config {
	path := os.Getenv("STOREGATE_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		panic("Failed to open " + path + ": " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse " + path + ": " + err.Error())
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("STOREGATE_DB_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("STOREGATE_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("STOREGATE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("STOREGATE_SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := os.Getenv("STOREGATE_CAPTCHA_SECRET"); v != "" {
		c.Captcha.Secret = v
	}
	if v := os.Getenv("STOREGATE_TELEGRAM_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Auth.AccessTTLMinutes == 0 {
		c.Auth.AccessTTLMinutes = 15
	}
	if c.Auth.RefreshTTLDays == 0 {
		c.Auth.RefreshTTLDays = 30
	}
	if c.Auth.SessionTTLMinutes == 0 {
		c.Auth.SessionTTLMinutes = 12 * 60
	}
	if c.Auth.OTPTTLSeconds == 0 {
		c.Auth.OTPTTLSeconds = 300
	}
	if c.Auth.OTPDigits == 0 {
		c.Auth.OTPDigits = 6
	}
	if c.Auth.ResendCooldownSecs == 0 {
		c.Auth.ResendCooldownSecs = 60
	}
	if c.Auth.MaxVerifyAttempts == 0 {
		c.Auth.MaxVerifyAttempts = 5
	}
	if c.Auth.MaxIssuesPerWindow == 0 {
		c.Auth.MaxIssuesPerWindow = 5
	}
	if c.Auth.IssueWindowMinutes == 0 {
		c.Auth.IssueWindowMinutes = 15
	}
	if c.Auth.SendTimeoutSeconds == 0 {
		c.Auth.SendTimeoutSeconds = 10
	}
	if c.Captcha.VerifyURL == "" {
		c.Captcha.VerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	}
	if c.Captcha.TimeoutSeconds == 0 {
		c.Captcha.TimeoutSeconds = 5
	}
}

// Validate rejects configurations that would weaken the login flow.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Server.Env == "production" && c.Auth.DebugDelivery {
		return fmt.Errorf("auth.debug_delivery must be disabled in production")
	}
	if c.Server.Env == "production" && c.Captcha.Secret == "" {
		return fmt.Errorf("captcha.secret is required in production")
	}
	if c.Auth.OTPDigits < 6 || c.Auth.OTPDigits > 10 {
		return fmt.Errorf("auth.otp_digits must be between 6 and 10")
	}
	return nil
}

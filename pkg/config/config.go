package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	API     APIConfig     `json:"api"`
	Socket  SocketConfig  `json:"socket"`
	Auth    AuthConfig    `json:"auth"`
	OTP     OTPConfig     `json:"otp"`
	Logging LoggingConfig `json:"logging"`
}

type APIConfig struct {
	BaseURL    string `json:"base_url" env:"PAYCHAT_API_BASE_URL"`
	TimeoutSec int    `json:"timeout_sec" env:"PAYCHAT_API_TIMEOUT_SEC"`
}

type SocketConfig struct {
	URL                 string `json:"url" env:"PAYCHAT_SOCKET_URL"`
	HandshakeTimeoutSec int    `json:"handshake_timeout_sec" env:"PAYCHAT_SOCKET_HANDSHAKE_TIMEOUT_SEC"`
}

type AuthConfig struct {
	Token  string `json:"token" env:"PAYCHAT_AUTH_TOKEN"`
	UserID string `json:"user_id" env:"PAYCHAT_AUTH_USER_ID"`
}

type OTPConfig struct {
	MinCodeDigits int `json:"min_code_digits" env:"PAYCHAT_OTP_MIN_CODE_DIGITS"`
}

type LoggingConfig struct {
	Enabled       bool   `json:"enabled" env:"PAYCHAT_LOGGING_ENABLED"`
	Dir           string `json:"dir" env:"PAYCHAT_LOGGING_DIR"`
	Filename      string `json:"filename" env:"PAYCHAT_LOGGING_FILENAME"`
	MaxSizeMB     int    `json:"max_size_mb" env:"PAYCHAT_LOGGING_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" env:"PAYCHAT_LOGGING_RETENTION_DAYS"`
}

func GetConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".paychat")
}

func DefaultConfig() *Config {
	configDir := GetConfigDir()
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000/api",
			TimeoutSec: 90,
		},
		Socket: SocketConfig{
			URL:                 "ws://localhost:8000/api/events",
			HandshakeTimeoutSec: 10,
		},
		OTP: OTPConfig{
			MinCodeDigits: 4,
		},
		Logging: LoggingConfig{
			Enabled:       true,
			Dir:           filepath.Join(configDir, "logs"),
			Filename:      "paychat.log",
			MaxSizeMB:     10,
			RetentionDays: 3,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := unmarshalConfigStrict(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func unmarshalConfigStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing JSON content")
		}
		return err
	}
	return nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) LogFilePath() string {
	filename := c.Logging.Filename
	if filename == "" {
		filename = "paychat.log"
	}
	return filepath.Join(c.Logging.Dir, filename)
}

package chroma

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	URL          string
	Timeout      time.Duration
	QueryTimeout time.Duration
	// GetPageSize bounds one /get call when dumping a collection.
	GetPageSize int
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL ConfigErrorCode = "invalid_url"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid chroma config"
	}
	switch e.Code {
	case ConfigErrorMissingURL:
		return "CHROMA_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid CHROMA_URL=%q; expected absolute URL like http://chroma:8000", e.Value)
	default:
		return "invalid chroma config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 15 * time.Second
	}
	if c.GetPageSize <= 0 {
		c.GetPageSize = 500
	}
	return c
}

func ValidateConfig(cfg Config) error {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: raw, Cause: err}
	}
	return nil
}

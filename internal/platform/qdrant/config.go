package qdrant

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	URL string
	// VectorDim is the embedding size every collection is created with.
	VectorDim int
	Distance  string
	Timeout   time.Duration
	// ScrollPageSize bounds one scroll call when dumping a collection.
	ScrollPageSize int
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL       ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL       ConfigErrorCode = "invalid_url"
	ConfigErrorInvalidVectorDim ConfigErrorCode = "invalid_vector_dim"
	ConfigErrorInvalidDistance  ConfigErrorCode = "invalid_distance"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingURL:
		return "QDRANT_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333", e.Value)
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid QDRANT_VECTOR_DIM=%q; expected positive integer", e.Value)
	case ConfigErrorInvalidDistance:
		return fmt.Sprintf("invalid QDRANT_DISTANCE=%q; expected Cosine, Dot, Euclid or Manhattan", e.Value)
	default:
		return "invalid qdrant config"
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
	if strings.TrimSpace(c.Distance) == "" {
		c.Distance = "Cosine"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ScrollPageSize <= 0 {
		c.ScrollPageSize = 256
	}
	return c
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: cfg.URL, Cause: err}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: strconv.Itoa(cfg.VectorDim)}
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Distance)) {
	case "", "cosine", "dot", "euclid", "manhattan":
	default:
		return &ConfigError{Code: ConfigErrorInvalidDistance, Value: cfg.Distance}
	}
	return nil
}

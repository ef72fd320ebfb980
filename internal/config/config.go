/*
 * Copyright 2025 the bitool authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is built once at
// startup and passed explicitly into the components that need it; there is no
// process-wide mutable configuration.
type Config struct {
	Database   DatabaseConfig
	Generation GenerationConfig
	Pipeline   PipelineConfig
}

// DatabaseConfig holds data engine connection configuration.
type DatabaseConfig struct {
	Dialect                        string
	Host                           string
	Port                           int
	User                           string
	Password                       string
	DBName                         string
	SSLMode                        string
	CloudSQLInstanceConnectionName string
	UsePrivateIP                   bool
}

// GenerationConfig holds text-completion backend configuration.
type GenerationConfig struct {
	Provider    string // "gemini" or "openai"
	APIKey      string
	Model       string
	BaseURL     string // openai-compatible endpoint only
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// PipelineConfig holds tunables for the question-to-SQL pipeline.
type PipelineConfig struct {
	ConfidenceThreshold int
	SampleSize          int
	QueryTimeout        time.Duration
}

// Load reads configuration from environment variables (BITOOL_ prefix) with
// sensible defaults. Command-line flags are applied on top by the caller.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BITOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.dialect", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("generation.provider", "gemini")
	v.SetDefault("generation.model", "")
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.max_tokens", 1024)
	v.SetDefault("generation.timeout", 30*time.Second)
	v.SetDefault("pipeline.confidence_threshold", 40)
	v.SetDefault("pipeline.sample_size", 20)
	v.SetDefault("pipeline.query_timeout", 60*time.Second)

	cfg := &Config{
		Database: DatabaseConfig{
			Dialect:                        v.GetString("database.dialect"),
			Host:                           v.GetString("database.host"),
			Port:                           v.GetInt("database.port"),
			User:                           v.GetString("database.user"),
			Password:                       v.GetString("database.password"),
			DBName:                         v.GetString("database.name"),
			SSLMode:                        v.GetString("database.sslmode"),
			CloudSQLInstanceConnectionName: v.GetString("database.cloudsql_instance"),
			UsePrivateIP:                   v.GetBool("database.cloudsql_private_ip"),
		},
		Generation: GenerationConfig{
			Provider:    strings.ToLower(v.GetString("generation.provider")),
			APIKey:      v.GetString("generation.api_key"),
			Model:       v.GetString("generation.model"),
			BaseURL:     v.GetString("generation.base_url"),
			Temperature: v.GetFloat64("generation.temperature"),
			MaxTokens:   v.GetInt("generation.max_tokens"),
			Timeout:     v.GetDuration("generation.timeout"),
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold: v.GetInt("pipeline.confidence_threshold"),
			SampleSize:          v.GetInt("pipeline.sample_size"),
			QueryTimeout:        v.GetDuration("pipeline.query_timeout"),
		},
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Generation.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported generation provider: %q (only gemini and openai are supported)", c.Generation.Provider)
	}
	if c.Generation.Provider == "openai" && c.Generation.BaseURL == "" {
		return fmt.Errorf("generation base URL is required for the openai provider")
	}
	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence threshold must be within [0,100], got %d", c.Pipeline.ConfidenceThreshold)
	}
	return nil
}

// Copyright 2025 the bitool authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/subhatta123/bitool-sub002/internal/config"
	"github.com/subhatta123/bitool-sub002/internal/database"
	_ "github.com/subhatta123/bitool-sub002/internal/database/mysql"
	_ "github.com/subhatta123/bitool-sub002/internal/database/postgres"
	_ "github.com/subhatta123/bitool-sub002/internal/database/sqlserver"
	"github.com/subhatta123/bitool-sub002/internal/genai"
	"github.com/subhatta123/bitool-sub002/internal/logging"
	"github.com/subhatta123/bitool-sub002/internal/metastore"
	"github.com/subhatta123/bitool-sub002/internal/pipeline"
)

var (
	debug bool

	// Database connection flags
	dialect                        string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool

	// Generation backend flags
	provider string
	apiKey   string
	model    string
	baseURL  string
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bitool",
	Short: "Ask questions of a database in plain language",
	Long: `bitool translates natural language questions into SQL, repairs the
generated query against known dialect mistakes, and executes it against the
connected database.`,
	PersistentPreRunE: initFlagsAndConfig,
	SilenceUsage:      true,
}

var supportedDialects = []string{"postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "sqlserver", "cloudsqlsqlserver"}

// initFlagsAndConfig loads configuration from the environment and overlays
// any explicitly set command flags.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd != nil {
		flags := cmd.Flags()
		if flags.Changed("dialect") {
			loaded.Database.Dialect = dialect
		}
		if flags.Changed("host") {
			loaded.Database.Host = host
		}
		if flags.Changed("port") {
			loaded.Database.Port = port
		}
		if flags.Changed("username") {
			loaded.Database.User = username
		}
		if flags.Changed("password") {
			loaded.Database.Password = password
		}
		if flags.Changed("database") {
			loaded.Database.DBName = dbName
		}
		if flags.Changed("cloudsql-instance-connection-name") {
			loaded.Database.CloudSQLInstanceConnectionName = cloudSQLInstanceConnectionName
		}
		if flags.Changed("cloudsql-use-private-ip") {
			loaded.Database.UsePrivateIP = cloudSQLUsePrivateIP
		}
		if flags.Changed("provider") {
			loaded.Generation.Provider = provider
		}
		if flags.Changed("api-key") {
			loaded.Generation.APIKey = apiKey
		}
		if flags.Changed("model") {
			loaded.Generation.Model = model
		}
		if flags.Changed("base-url") {
			loaded.Generation.BaseURL = baseURL
		}
	}

	if err := validateDialect(loaded.Database.Dialect); err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	logger, err = logging.New(debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = loaded
	return nil
}

func validateDialect(dialect string) error {
	for _, supported := range supportedDialects {
		if dialect == supported {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
}

func setupDatabase() (*database.DB, error) {
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func setupLLMClient(ctx context.Context) (genai.LLMClient, error) {
	switch cfg.Generation.Provider {
	case "openai":
		return genai.NewOpenAIClient(genai.OpenAIConfig{
			BaseURL: cfg.Generation.BaseURL,
			APIKey:  cfg.Generation.APIKey,
			Model:   cfg.Generation.Model,
			Timeout: cfg.Generation.Timeout,
		})
	default:
		return genai.NewGeminiClient(ctx, genai.GeminiConfig{
			APIKey: cfg.Generation.APIKey,
			Model:  cfg.Generation.Model,
		})
	}
}

func setupService(db *database.DB, llm genai.LLMClient) *pipeline.Service {
	return pipeline.NewService(db, llm, metastore.NewMemoryStore(), logger, cfg)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "", fmt.Sprintf("Database dialect (%s)", strings.Join(supportedDialects, ", ")))
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Database host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Database port")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Database username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection")

	// Generation backend flags
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Generation backend ('gemini' or 'openai')")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Generation backend API key (can also be set via BITOOL_GENERATION_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Generation model name")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible endpoint base URL")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tablesCmd)
}

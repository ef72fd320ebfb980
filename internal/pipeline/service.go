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

// Package pipeline turns a natural language question into executed SQL. A
// request flows through schema discovery, semantic enrichment, prompt
// construction, generation, a confidence gate, and coordinated execution
// with repair.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/subhatta123/bitool-sub002/internal/config"
	"github.com/subhatta123/bitool-sub002/internal/confidence"
	"github.com/subhatta123/bitool-sub002/internal/database"
	"github.com/subhatta123/bitool-sub002/internal/genai"
	"github.com/subhatta123/bitool-sub002/internal/metastore"
	"github.com/subhatta123/bitool-sub002/internal/prompt"
	"github.com/subhatta123/bitool-sub002/internal/repair"
	"github.com/subhatta123/bitool-sub002/internal/resolver"
	"github.com/subhatta123/bitool-sub002/internal/schema"
	"github.com/subhatta123/bitool-sub002/internal/semantic"
)

// QueryResult is the generation-stage outcome. When Clarifications is
// non-empty the question was too ambiguous to execute; SQL is then empty if
// the question failed the clarity gate before generation, or advisory only if
// the generated SQL failed the plausibility gate.
type QueryResult struct {
	Question       string
	Table          string
	Resolution     *resolver.Result
	SQL            string
	Confidence     int
	Clarifications []string
}

// RunResult pairs the generation outcome with the execution outcome. When
// the confidence gate rejected the question, Execution is nil.
type RunResult struct {
	Query     *QueryResult
	Execution *ExecutionResult
}

// Service wires the full question-to-result pipeline.
type Service struct {
	db       database.DBAdapter
	llm      genai.LLMClient
	store    metastore.Store
	logger   *zap.Logger
	cfg      *config.Config
	provider prompt.Provider
}

func NewService(db database.DBAdapter, llm genai.LLMClient, store metastore.Store, logger *zap.Logger, cfg *config.Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := prompt.ProviderGemini
	if cfg.Generation.Provider == "openai" {
		provider = prompt.ProviderOpenAI
	}
	return &Service{db: db, llm: llm, store: store, logger: logger, cfg: cfg, provider: provider}
}

// Tables profiles every table in the connected database, ordered most
// queryable first.
func (s *Service) Tables(ctx context.Context) ([]schema.TableProfile, error) {
	discovery := schema.NewDiscovery(s.db, s.store, s.logger, s.cfg.Pipeline.SampleSize)
	profiles, err := discovery.DiscoverAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		s.store.PutTableProfile(&profiles[i])
	}
	return profiles, nil
}

// GenerateSQL produces SQL for a question without executing it. A table hint
// is resolved against the live table list; an empty hint selects the highest
// scoring discovered table.
func (s *Service) GenerateSQL(ctx context.Context, question, tableHint string) (*QueryResult, error) {
	profile, sem, resolution, err := s.prepare(ctx, tableHint)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, question, profile, sem, resolution)
}

// Run generates SQL for a question and executes it. Questions below the
// confidence threshold return clarifying questions instead of touching the
// database.
func (s *Service) Run(ctx context.Context, question, tableHint string) (*RunResult, error) {
	profile, sem, resolution, err := s.prepare(ctx, tableHint)
	if err != nil {
		return nil, err
	}

	query, err := s.generate(ctx, question, profile, sem, resolution)
	if err != nil {
		return nil, err
	}
	if len(query.Clarifications) > 0 {
		s.logger.Info("confidence below threshold, asking for clarification",
			zap.Int("confidence", query.Confidence),
			zap.Int("threshold", s.threshold()))
		return &RunResult{Query: query}, nil
	}

	coordinator := NewCoordinator(s.db, s.logger, repair.Config{
		DateColumns: textDateColumns(profile),
	})

	execCtx := ctx
	if s.cfg.Pipeline.QueryTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.cfg.Pipeline.QueryTimeout)
		defer cancel()
	}

	execution, err := coordinator.Execute(execCtx, profile.Name, query.SQL)
	if err != nil {
		return nil, err
	}
	query.SQL = execution.SQL
	return &RunResult{Query: query, Execution: execution}, nil
}

func (s *Service) prepare(ctx context.Context, tableHint string) (*schema.TableProfile, *semantic.Schema, *resolver.Result, error) {
	profiles, err := s.Tables(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	var profile *schema.TableProfile
	var resolution *resolver.Result
	if tableHint == "" {
		profile, err = schema.BestTable(profiles)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		names := make([]string, len(profiles))
		for i := range profiles {
			names[i] = profiles[i].Name
		}
		res, err := resolver.New(names, s.logger).Resolve(tableHint)
		if err != nil {
			return nil, nil, nil, err
		}
		resolution = &res
		for i := range profiles {
			if profiles[i].Name == res.Matched {
				profile = &profiles[i]
				break
			}
		}
		if profile == nil {
			return nil, nil, nil, &SchemaUnavailableError{Table: res.Matched, Err: schema.ErrNoUsableTable}
		}
	}

	sem, ok := s.store.GetSemanticSchema(profile.Name)
	if !ok {
		sem = semantic.BuildSchema(profile.Name, columnInputs(profile))
		s.store.PutSemanticSchema(sem)
	}
	return profile, sem, resolution, nil
}

func (s *Service) generate(ctx context.Context, question string, profile *schema.TableProfile, sem *semantic.Schema, resolution *resolver.Result) (*QueryResult, error) {
	result := &QueryResult{
		Question:   question,
		Table:      profile.Name,
		Resolution: resolution,
	}

	// Gate on question clarity first. An ambiguous question never pays for
	// a generation round-trip, and never gets the chance to sneak past the
	// threshold on SQL-shape bonuses alone.
	result.Confidence = confidence.Assess(question, "", sem.ColumnNames())
	if result.Confidence < s.threshold() {
		result.Clarifications = confidence.Clarify(question, sem)
		s.logger.Debug("question below clarity threshold, skipping generation",
			zap.String("table", profile.Name),
			zap.Int("confidence", result.Confidence))
		return result, nil
	}

	text, err := prompt.Build(prompt.Context{
		Question:          question,
		SchemaDescription: sem.ContextString(),
		Glossary:          semantic.Glossary(),
		Provider:          s.provider,
	})
	if err != nil {
		return nil, err
	}

	sql, err := s.llm.GenerateSQL(ctx, text, genai.Options{
		Temperature:     float32(s.cfg.Generation.Temperature),
		MaxOutputTokens: s.cfg.Generation.MaxTokens,
		StopSequences:   []string{"```"},
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	sql = strings.TrimSpace(sql)

	result.SQL = sql
	result.Confidence = confidence.Assess(question, sql, sem.ColumnNames())
	if result.Confidence < s.threshold() {
		result.Clarifications = confidence.Clarify(question, sem)
	}
	s.logger.Debug("generated SQL",
		zap.String("table", profile.Name),
		zap.Int("confidence", result.Confidence),
		zap.String("sql", sql))
	return result, nil
}

func (s *Service) threshold() int {
	if s.cfg.Pipeline.ConfidenceThreshold > 0 {
		return s.cfg.Pipeline.ConfidenceThreshold
	}
	return confidence.DefaultThreshold
}

func columnInputs(profile *schema.TableProfile) []semantic.ColumnInput {
	inputs := make([]semantic.ColumnInput, len(profile.Columns))
	for i, c := range profile.Columns {
		inputs[i] = semantic.ColumnInput{
			Name:     c.Name,
			DataType: c.DataType,
			Samples:  c.Samples,
			Nullable: c.Nullable,
		}
	}
	return inputs
}

// textDateColumns lists columns that hold dates as text, which need TO_DATE
// wrapping before EXTRACT or date functions can touch them.
func textDateColumns(profile *schema.TableProfile) []string {
	var cols []string
	for _, c := range profile.Columns {
		if c.Kind != schema.KindTemporal {
			continue
		}
		declared := strings.ToLower(c.DataType)
		if strings.Contains(declared, "char") || strings.Contains(declared, "text") || strings.Contains(declared, "string") {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

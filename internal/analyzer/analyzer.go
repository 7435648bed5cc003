// Package analyzer produces a structured competency analysis from extracted
// document text via a two-phase map-reduce over the completion service. The
// split exists to respect the service's input-size limits; partial summaries
// are reassembled in chunk order because later chunks may refer to earlier
// context.
package analyzer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/loomworks/careerlens/internal/domain"
	"github.com/loomworks/careerlens/internal/openai"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize bounds each map-phase segment, in characters
	DefaultChunkSize = 1000
	// DefaultMapWorkers bounds concurrent map-phase completion calls
	DefaultMapWorkers = 4
	// DefaultTargetRole is used when the caller does not name a role
	DefaultTargetRole = "general"
)

// CompletionClient defines the interface for completion calls
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, opts openai.Options) (string, error)
}

// Config tunes the analysis pipeline.
type Config struct {
	ChunkSize   int
	MapWorkers  int
	Model       string
	Temperature float32
}

// DefaultConfig provides sane defaults for the pipeline.
func DefaultConfig() Config {
	return Config{
		ChunkSize:  DefaultChunkSize,
		MapWorkers: DefaultMapWorkers,
	}
}

// Analyzer orchestrates chunking and completion calls into one
// AnalysisResult.
type Analyzer struct {
	client CompletionClient
	cfg    Config
}

// NewAnalyzer creates a new Analyzer with default configuration
func NewAnalyzer(client CompletionClient) *Analyzer {
	return NewAnalyzerWithConfig(client, DefaultConfig())
}

// NewAnalyzerWithConfig creates a new Analyzer with explicit configuration
func NewAnalyzerWithConfig(client CompletionClient, cfg Config) *Analyzer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MapWorkers <= 0 {
		cfg.MapWorkers = DefaultMapWorkers
	}
	return &Analyzer{client: client, cfg: cfg}
}

// Analyze runs the map-reduce pipeline over the extracted text. Empty text
// fails before any external call. Any chunk failure fails the whole
// analysis: a missing partial would corrupt the final narrative.
func (a *Analyzer) Analyze(ctx context.Context, text, targetRole string) (domain.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	if targetRole = strings.TrimSpace(targetRole); targetRole == "" {
		targetRole = DefaultTargetRole
	}

	chunks, err := Chunk(text, a.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	summaries, err := a.mapPhase(ctx, chunks, targetRole)
	if err != nil {
		return nil, err
	}

	raw, err := a.client.Complete(ctx, analysisPrompt(strings.Join(summaries, "\n"), targetRole), a.completionOptions())
	if err != nil {
		return nil, err
	}

	return parseResult(raw)
}

// mapPhase summarizes every chunk, concurrently up to MapWorkers, and
// returns the partial summaries indexed by chunk position regardless of
// completion order.
func (a *Analyzer) mapPhase(ctx context.Context, chunks []string, targetRole string) ([]string, error) {
	summaries := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MapWorkers)

	for i, chunk := range chunks {
		g.Go(func() error {
			summary, err := a.client.Complete(gctx, summarizePrompt(chunk, targetRole, i, len(chunks)), a.completionOptions())
			if err != nil {
				return &domain.PartialSummaryError{ChunkIndex: i, Err: err}
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (a *Analyzer) completionOptions() openai.Options {
	return openai.Options{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
	}
}

// parseResult decodes the reduce-phase response strictly as the
// AnalysisResult shape. Keys outside the closed category set, or a response
// that is not a JSON object of assessments, fail with the raw text attached
// for diagnostics.
func parseResult(raw string) (domain.AnalysisResult, error) {
	payload := stripCodeFence(raw)

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, &domain.ResultParseError{Raw: raw, Err: err}
	}

	if len(result) == 0 {
		return nil, &domain.ResultParseError{Raw: raw, Err: errEmptyResult}
	}

	known := make(map[string]bool, len(domain.Categories()))
	for _, category := range domain.Categories() {
		known[category] = true
	}
	for key := range result {
		if !known[key] {
			return nil, &domain.ResultParseError{Raw: raw, Err: &unknownCategoryError{key}}
		}
	}

	return result, nil
}

var errEmptyResult = &unknownCategoryError{key: ""}

type unknownCategoryError struct {
	key string
}

func (e *unknownCategoryError) Error() string {
	if e.key == "" {
		return "response contains no categories"
	}
	return "response contains unknown category " + e.key
}

// stripCodeFence unwraps a ```json fenced block if the model added one.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

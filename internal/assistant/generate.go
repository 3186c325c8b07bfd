package assistant

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"tagwarden/internal/config"
	"tagwarden/internal/fileutil"
	"tagwarden/internal/logging"
)

//go:embed default_prompt.md
var defaultPrompt string

// InputPlaceholder is replaced by the export JSON in the prompt template.
const InputPlaceholder = "{{INPUT_JSON}}"

var (
	// ErrNoToolAvailable indicates none of the configured tools is installed.
	ErrNoToolAvailable = errors.New("no assistant tool found on PATH")
	// ErrNoToolSucceeded indicates every candidate failed or printed no JSON object.
	ErrNoToolSucceeded = errors.New("no assistant tool produced a mapping")
	// ErrNoJSON indicates tool output without a JSON object.
	ErrNoJSON = errors.New("no JSON object found in output")
)

// Attempt records one candidate invocation.
type Attempt struct {
	Tool      string `json:"tool"`
	Command   string `json:"command"`
	ExitCode  int    `json:"exit_code"`
	TimedOut  bool   `json:"timed_out,omitempty"`
	RawOutput string `json:"raw_output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Generated describes a successful mapping generation.
type Generated struct {
	Tool       string    `json:"tool"`
	OutputPath string    `json:"output_path"`
	Keys       []string  `json:"keys"`
	Attempts   []Attempt `json:"attempts"`
}

// Generator turns an export document into a mapping file via external tools.
type Generator struct {
	cfg    *config.Config
	runner *Runner
	logger *slog.Logger
}

// NewGenerator builds a generator from the assistant configuration.
func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	runTimeout := time.Duration(cfg.Assistant.RunTimeoutSeconds) * time.Second
	drainTimeout := time.Duration(cfg.Assistant.DrainTimeoutSeconds) * time.Second
	return &Generator{
		cfg:    cfg,
		runner: NewRunner(runTimeout, drainTimeout, logger),
		logger: logging.NewComponentLogger(logger, "assistant"),
	}
}

// Runner exposes the underlying process runner.
func (g *Generator) Runner() *Runner {
	return g.runner
}

// LoadPrompt reads the configured template, or the built-in one when the
// configured file does not exist, and substitutes the input document.
func LoadPrompt(path string, input []byte) (string, error) {
	template := defaultPrompt
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			template = string(data)
		case errors.Is(err, os.ErrNotExist):
		default:
			return "", fmt.Errorf("read prompt: %w", err)
		}
	}
	return strings.ReplaceAll(template, InputPlaceholder, string(input)), nil
}

// ExtractJSON parses the span from the first '{' to the last '}' of output.
func ExtractJSON(output string) (map[string]any, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end <= start {
		return nil, ErrNoJSON
	}
	var mapping map[string]any
	if err := json.Unmarshal([]byte(output[start:end+1]), &mapping); err != nil {
		return nil, fmt.Errorf("parse tool output: %w", err)
	}
	return mapping, nil
}

// Generate runs each candidate in order until one exits zero and prints a
// JSON object, then writes that object to outputPath.
func (g *Generator) Generate(ctx context.Context, input []byte, force, outputPath string) (*Generated, error) {
	prompt, err := LoadPrompt(g.cfg.Assistant.PromptPath, input)
	if err != nil {
		return nil, err
	}
	candidates, err := Candidates(g.cfg.Assistant.Tools, force)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoToolAvailable
	}
	g.logger.Info("assistant prompt ready",
		logging.Int("prompt_chars", len(prompt)),
		logging.Int("candidates", len(candidates)),
	)

	generated := &Generated{OutputPath: outputPath}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return generated, err
		}
		attempt := Attempt{Tool: candidate.Tool, Command: candidate.String()}
		g.logger.Info("running assistant tool",
			logging.String("tool", candidate.Tool),
			logging.String("command", candidate.String()),
		)
		argv := append([]string{candidate.Path}, candidate.Command[1:]...)
		result, err := g.runner.Run(ctx, argv, prompt)
		attempt.ExitCode = result.ExitCode
		attempt.TimedOut = result.TimedOut
		if err != nil {
			if ctx.Err() != nil {
				return generated, ctx.Err()
			}
			attempt.Error = err.Error()
			generated.Attempts = append(generated.Attempts, attempt)
			logging.WarnWithContext(g.logger, "assistant tool failed to run", "assistant_tool_error",
				logging.String("tool", candidate.Tool),
				logging.Error(err),
			)
			continue
		}
		if result.ExitCode != 0 || result.TimedOut {
			attempt.Error = strings.TrimSpace(result.Stderr)
			generated.Attempts = append(generated.Attempts, attempt)
			logging.WarnWithContext(g.logger, "assistant tool failed", "assistant_tool_exit",
				logging.String("tool", candidate.Tool),
				logging.Int("exit_code", result.ExitCode),
				logging.Bool("timed_out", result.TimedOut),
				logging.String("stderr", attempt.Error),
			)
			continue
		}

		rawPath, err := g.saveRawOutput(candidate.Tool, result.Stdout)
		if err != nil {
			return generated, err
		}
		attempt.RawOutput = rawPath
		mapping, err := ExtractJSON(result.Stdout)
		if err != nil {
			attempt.Error = err.Error()
			generated.Attempts = append(generated.Attempts, attempt)
			logging.WarnWithContext(g.logger, "assistant output unusable", "assistant_output_invalid",
				logging.String("tool", candidate.Tool),
				logging.String("raw_output", rawPath),
				logging.Error(err),
			)
			continue
		}
		generated.Attempts = append(generated.Attempts, attempt)

		data, err := json.MarshalIndent(mapping, "", "  ")
		if err != nil {
			return generated, fmt.Errorf("encode mapping: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return generated, fmt.Errorf("create output directory: %w", err)
		}
		if err := fileutil.WriteFileAtomic(outputPath, data, 0o644); err != nil {
			return generated, err
		}
		generated.Tool = candidate.Tool
		generated.Keys = mappingKeys(mapping)
		g.logger.Info("mapping generated",
			logging.String("tool", candidate.Tool),
			logging.String("output", outputPath),
			logging.String("keys", strings.Join(generated.Keys, ", ")),
		)
		return generated, nil
	}
	return generated, ErrNoToolSucceeded
}

func (g *Generator) saveRawOutput(tool, output string) (string, error) {
	dir := g.cfg.Paths.ReportsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	path := filepath.Join(dir, "ai-output-"+tool+".txt")
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return "", fmt.Errorf("save raw output: %w", err)
	}
	return path, nil
}

func mappingKeys(mapping map[string]any) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Package gemini implements the generation.Generator interface using
// Google's Gemini API to generate Ansible playbook YAML.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"
	"gopkg.in/yaml.v3"

	"github.com/davidahmann/reliaansible/internal/config"
	"github.com/davidahmann/reliaansible/internal/generation"
)

const promptTemplate = `You are an expert Ansible engineer. Write a single Ansible playbook
using %s.

Task: %s

Respond with only the playbook YAML, no prose and no code fences.`

// PlaybookGenerator calls the Gemini API to turn playbook requests into
// YAML. Responses are validated as YAML before being returned; callers
// memoize results through the llm cache.
type PlaybookGenerator struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string

	// generate performs a single API call. Swapped out in tests.
	generate func(ctx context.Context, prompt string) (string, error)
}

var _ generation.Generator = (*PlaybookGenerator)(nil)

// NewPlaybookGenerator creates a generator from the LLM configuration.
func NewPlaybookGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*PlaybookGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	g := &PlaybookGenerator{
		logger: logger.With("component", "gemini_generator"),
		config: cfg,
		client: client,
		model:  cfg.ModelName,
	}
	g.generate = g.callOnce
	return g, nil
}

// GeneratePlaybook builds the prompt, calls Gemini with retries, and
// validates the response as YAML.
func (g *PlaybookGenerator) GeneratePlaybook(ctx context.Context, req generation.PlaybookRequest) (string, error) {
	if req.Module == "" || req.Text == "" {
		return "", generation.ErrEmptyRequest
	}

	prompt := fmt.Sprintf(promptTemplate, req.Module, req.Text)

	text, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return "", err
	}

	playbook := stripCodeFences(text)
	if err := validateYAML(playbook); err != nil {
		return "", err
	}
	return playbook, nil
}

// callWithRetry calls the Gemini API up to MaxRetries+1 times with
// exponential backoff and jitter. Permanent errors (blocked content, empty
// responses) are returned immediately.
func (g *PlaybookGenerator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := float64(g.config.RetryDelaySeconds)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"model", g.model,
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		text, err := g.generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return "", err
		}

		g.logger.WarnContext(ctx, "Gemini API call failed",
			"attempt", attempt+1,
			"error", err)

		if attempt < maxRetries {
			backoff := baseDelay * math.Pow(2, float64(attempt))
			jitter := backoff * 0.25 * rng.Float64()
			delay := time.Duration((backoff + jitter) * float64(time.Second))

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, lastErr)
}

func (g *PlaybookGenerator) callOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", generation.ErrContentBlocked
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// stripCodeFences removes a leading/trailing markdown fence that models
// sometimes add despite the prompt.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// validateYAML rejects responses that do not parse as YAML.
func validateYAML(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty playbook", generation.ErrInvalidResponse)
	}
	var doc any
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("%w: generated invalid YAML: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/davidahmann/reliaansible/internal/cache"
	"github.com/davidahmann/reliaansible/internal/generation"
	"github.com/davidahmann/reliaansible/internal/redact"
	"github.com/davidahmann/reliaansible/internal/task"
)

// GenerateResult is the outcome of a playbook generation.
type GenerateResult struct {
	PlaybookID   string `json:"playbook_id"`
	PlaybookYAML string `json:"playbook_yaml"`
}

// LintResult is the outcome of an ansible-lint run.
type LintResult struct {
	PlaybookID string   `json:"playbook_id"`
	Violations []string `json:"violations"`
	ExitCode   int      `json:"exit_code"`
}

// TestResult is the outcome of a molecule run.
type TestResult struct {
	PlaybookID string `json:"playbook_id"`
	Status     string `json:"status"`
	Logs       string `json:"logs"`
}

// ProgressFunc reports progress from a running job. Callers wire it to the
// queue's UpdateProgress for the job's task.
type ProgressFunc func(percent int, details map[string]any)

// PlaybookService generates, lints, and tests Ansible playbooks. Generated
// playbooks are written under dir as <uuid>.yml; lint and test shell out to
// the configured binaries.
type PlaybookService struct {
	generator generation.Generator
	schemas   *SchemaService
	logger    *slog.Logger

	dir     string
	lintBin string
	testBin string

	// playbookCache maps a module+prompt key to a previously generated
	// result so identical requests reuse the same playbook ID.
	playbookCache *cache.Cache[GenerateResult]

	// generate is the llm-cache-memoized call into the generator.
	generate func(ctx context.Context, req generation.PlaybookRequest) (string, error)
}

// NewPlaybookService wires the generator, schema service, and caches into a
// playbook service.
func NewPlaybookService(
	generator generation.Generator,
	schemas *SchemaService,
	llmCache *cache.Cache[string],
	playbookCache *cache.Cache[GenerateResult],
	dir, lintBin, testBin string,
	logger *slog.Logger,
) *PlaybookService {
	s := &PlaybookService{
		generator:     generator,
		schemas:       schemas,
		logger:        logger.With("component", "playbook_service"),
		dir:           dir,
		lintBin:       lintBin,
		testBin:       testBin,
		playbookCache: playbookCache,
	}
	s.generate = cache.Memoize(llmCache, cache.DefaultKey[generation.PlaybookRequest]("llm"), s.callGenerator)
	return s
}

func (s *PlaybookService) callGenerator(ctx context.Context, req generation.PlaybookRequest) (string, error) {
	return s.generator.GeneratePlaybook(ctx, req)
}

// GeneratePlaybook generates a playbook for the module and prompt, saves it
// under a fresh UUID, and returns the ID and YAML. Identical requests hit
// the playbook cache and return the existing ID; the file is recreated if
// it has been cleaned up since.
func (s *PlaybookService) GeneratePlaybook(ctx context.Context, module, prompt string) (GenerateResult, error) {
	schema, err := s.schemas.GetSchema(ctx, module)
	if err != nil {
		return GenerateResult{}, err
	}

	cacheKey := generateKey(module, prompt)
	if res, ok := s.playbookCache.Get(cacheKey); ok {
		if _, err := os.Stat(s.playbookPath(res.PlaybookID)); err != nil {
			s.logger.InfoContext(ctx, "cached playbook file missing, recreating",
				"playbook_id", res.PlaybookID)
			if err := s.savePlaybook(res.PlaybookID, res.PlaybookYAML); err != nil {
				return GenerateResult{}, err
			}
		}
		return res, nil
	}

	req := generation.PlaybookRequest{
		Module: module,
		Text:   promptWithSchema(prompt, schema),
	}
	yamlOut, err := s.generate(ctx, req)
	if err != nil {
		return GenerateResult{}, err
	}

	res := GenerateResult{
		PlaybookID:   uuid.New().String(),
		PlaybookYAML: yamlOut,
	}
	if err := s.savePlaybook(res.PlaybookID, res.PlaybookYAML); err != nil {
		return GenerateResult{}, err
	}
	s.playbookCache.Set(cacheKey, res)

	s.logger.InfoContext(ctx, "generated playbook",
		"playbook_id", res.PlaybookID,
		"module", module,
		"yaml_size", len(yamlOut))
	return res, nil
}

// LintPlaybook runs ansible-lint against a stored playbook and returns the
// reported violations. A non-zero exit with output is a successful lint
// that found problems, not an error.
func (s *PlaybookService) LintPlaybook(ctx context.Context, playbookID string) (LintResult, error) {
	path, err := s.resolvePlaybook(playbookID)
	if err != nil {
		return LintResult{}, err
	}

	cmd := exec.CommandContext(ctx, s.lintBin, "-p", path)
	out, err := cmd.Output()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return LintResult{}, fmt.Errorf("%w: %s: %s", ErrToolFailed, s.lintBin, redact.Error(err))
		}
		exitCode = exitErr.ExitCode()
	}

	var violations []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			violations = append(violations, line)
		}
	}

	s.logger.InfoContext(ctx, "linted playbook",
		"playbook_id", playbookID,
		"violations", len(violations),
		"exit_code", exitCode)
	return LintResult{PlaybookID: playbookID, Violations: violations, ExitCode: exitCode}, nil
}

// TestPlaybook runs a molecule scenario against a stored playbook and
// returns passed or failed with the combined tool output.
func (s *PlaybookService) TestPlaybook(ctx context.Context, playbookID string) (TestResult, error) {
	path, err := s.resolvePlaybook(playbookID)
	if err != nil {
		return TestResult{}, err
	}

	scenarioDir := filepath.Join(s.dir, playbookID, "molecule", "default")
	if err := os.MkdirAll(scenarioDir, 0o755); err != nil {
		return TestResult{}, fmt.Errorf("failed to create molecule scenario: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return TestResult{}, fmt.Errorf("failed to read playbook: %w", err)
	}

	moleculeYAML := fmt.Sprintf(`---
driver:
  name: docker
platforms:
  - name: instance
    image: %s
provisioner:
  name: ansible
  playbooks:
    converge: ../../../%s.yml
`, moleculeImage(string(content)), playbookID)
	if err := os.WriteFile(filepath.Join(scenarioDir, "molecule.yml"), []byte(moleculeYAML), 0o644); err != nil {
		return TestResult{}, fmt.Errorf("failed to write molecule config: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.testBin, "test")
	cmd.Dir = filepath.Join(s.dir, playbookID)
	out, err := cmd.CombinedOutput()
	status := "passed"
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return TestResult{}, fmt.Errorf("%w: %s: %s", ErrToolFailed, s.testBin, redact.Error(err))
		}
		status = "failed"
	}

	s.logger.InfoContext(ctx, "tested playbook",
		"playbook_id", playbookID,
		"status", status)
	return TestResult{PlaybookID: playbookID, Status: status, Logs: redact.String(string(out))}, nil
}

// CleanupTestArtifacts destroys molecule containers and removes the
// scenario directory for a playbook. Failures are logged, not returned.
func (s *PlaybookService) CleanupTestArtifacts(ctx context.Context, playbookID string) {
	if _, err := uuid.Parse(playbookID); err != nil {
		return
	}
	scenarioRoot := filepath.Join(s.dir, playbookID)
	if _, err := os.Stat(scenarioRoot); err != nil {
		return
	}

	cmd := exec.CommandContext(ctx, s.testBin, "destroy")
	cmd.Dir = scenarioRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		s.logger.WarnContext(ctx, "molecule destroy failed",
			"playbook_id", playbookID,
			"output", redact.String(string(out)))
	}
	if err := os.RemoveAll(scenarioRoot); err != nil {
		s.logger.WarnContext(ctx, "failed to remove molecule scenario",
			"playbook_id", playbookID,
			"error", err)
	}
}

// GenerateJob returns a task function that generates a playbook and
// reports progress along the way.
func (s *PlaybookService) GenerateJob(module, prompt string, report ProgressFunc) task.Func {
	return func(ctx context.Context) (any, error) {
		report(10, map[string]any{"module": module})
		res, err := s.GeneratePlaybook(ctx, module, prompt)
		if err != nil {
			return nil, err
		}
		report(100, map[string]any{"playbook_id": res.PlaybookID})
		return res, nil
	}
}

// LintJob returns a task function that lints a stored playbook.
func (s *PlaybookService) LintJob(playbookID string, report ProgressFunc) task.Func {
	return func(ctx context.Context) (any, error) {
		report(10, nil)
		res, err := s.LintPlaybook(ctx, playbookID)
		if err != nil {
			return nil, err
		}
		report(100, map[string]any{"violations": len(res.Violations)})
		return res, nil
	}
}

// TestJob returns a task function that tests a stored playbook with
// molecule and cleans up its artifacts afterwards.
func (s *PlaybookService) TestJob(playbookID string, report ProgressFunc) task.Func {
	return func(ctx context.Context) (any, error) {
		report(10, nil)
		res, err := s.TestPlaybook(ctx, playbookID)
		s.CleanupTestArtifacts(ctx, playbookID)
		if err != nil {
			return nil, err
		}
		report(100, map[string]any{"status": res.Status})
		return res, nil
	}
}

func (s *PlaybookService) playbookPath(playbookID string) string {
	return filepath.Join(s.dir, playbookID+".yml")
}

// resolvePlaybook validates the ID and returns the path to an existing
// playbook file.
func (s *PlaybookService) resolvePlaybook(playbookID string) (string, error) {
	if _, err := uuid.Parse(playbookID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlaybookID, playbookID)
	}
	path := s.playbookPath(playbookID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrPlaybookNotFound, playbookID)
		}
		return "", fmt.Errorf("failed to access playbook: %w", err)
	}
	return path, nil
}

func (s *PlaybookService) savePlaybook(playbookID, content string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create playbook directory: %w", err)
	}
	if err := os.WriteFile(s.playbookPath(playbookID), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to save playbook: %w", err)
	}
	return nil
}

func generateKey(module, prompt string) string {
	return "playbook:" + strings.ToLower(module) + ":" + strings.ToLower(strings.TrimSpace(prompt))
}

// promptWithSchema appends the module's parameter schema to the user text
// so the model sees the accepted options.
func promptWithSchema(prompt string, schema map[string]any) string {
	opts, ok := schema["options"]
	if !ok {
		return prompt
	}
	encoded, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return prompt
	}
	return prompt + "\n\nModule parameters:\n" + string(encoded)
}

func moleculeImage(playbook string) string {
	text := strings.ToLower(playbook)
	if strings.Contains(text, "yum") || strings.Contains(text, "dnf") {
		return "geerlingguy/docker-centos7-ansible:latest"
	}
	return "geerlingguy/docker-ubuntu2004-ansible:latest"
}

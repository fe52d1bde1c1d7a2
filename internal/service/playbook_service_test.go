package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/reliaansible/internal/cache"
	"github.com/davidahmann/reliaansible/internal/generation"
)

type stubGenerator struct {
	calls int
	fn    func(ctx context.Context, req generation.PlaybookRequest) (string, error)
}

func (s *stubGenerator) GeneratePlaybook(ctx context.Context, req generation.PlaybookRequest) (string, error) {
	s.calls++
	if s.fn != nil {
		return s.fn(ctx, req)
	}
	return "- hosts: all\n  tasks:\n    - apt:\n        name: nginx\n", nil
}

type serviceFixture struct {
	svc       *PlaybookService
	generator *stubGenerator
	dir       string
}

func newFixture(t *testing.T, lintBin, testBin string) *serviceFixture {
	t.Helper()
	schemaDir := t.TempDir()
	writeSchema(t, schemaDir, "apt", `{"options": {"name": {"type": "str"}}}`)

	llmCache, err := cache.New[string]("llm", time.Hour, testLogger())
	require.NoError(t, err)
	playbookCache, err := cache.New[GenerateResult]("playbook", time.Hour, testLogger())
	require.NoError(t, err)

	gen := &stubGenerator{}
	dir := t.TempDir()
	svc := NewPlaybookService(
		gen,
		NewSchemaService(schemaDir, newSchemaCache(t), testLogger()),
		llmCache,
		playbookCache,
		dir, lintBin, testBin,
		testLogger(),
	)
	return &serviceFixture{svc: svc, generator: gen, dir: dir}
}

// writeScript creates an executable shell script and returns its path.
func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+content), 0o755))
	return path
}

func TestGeneratePlaybook(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "ansible-lint", "molecule")
	ctx := context.Background()

	res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)
	assert.NotEmpty(t, res.PlaybookID)
	assert.Contains(t, res.PlaybookYAML, "hosts: all")

	// File saved under <id>.yml.
	data, err := os.ReadFile(filepath.Join(fx.dir, res.PlaybookID+".yml"))
	require.NoError(t, err)
	assert.Equal(t, res.PlaybookYAML, string(data))

	// Schema options reach the generator prompt.
	assert.Equal(t, 1, fx.generator.calls)
}

func TestGeneratePlaybookReusesCachedResult(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "ansible-lint", "molecule")
	ctx := context.Background()

	first, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)
	second, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)

	assert.Equal(t, first.PlaybookID, second.PlaybookID)
	assert.Equal(t, 1, fx.generator.calls)
}

func TestGeneratePlaybookRecreatesMissingFile(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "ansible-lint", "molecule")
	ctx := context.Background()

	first, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(fx.dir, first.PlaybookID+".yml")))

	second, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)
	assert.Equal(t, first.PlaybookID, second.PlaybookID)
	assert.FileExists(t, filepath.Join(fx.dir, second.PlaybookID+".yml"))
}

func TestGeneratePlaybookUnknownModule(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "ansible-lint", "molecule")

	_, err := fx.svc.GeneratePlaybook(context.Background(), "nonexistent", "do something")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
	assert.Zero(t, fx.generator.calls)
}

func TestLintPlaybook(t *testing.T) {
	t.Parallel()
	lint := writeScript(t, "echo 'rule-1: first violation'\necho 'rule-2: second violation'\nexit 2\n")
	fx := newFixture(t, lint, "molecule")
	ctx := context.Background()

	res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)

	lintRes, err := fx.svc.LintPlaybook(ctx, res.PlaybookID)
	require.NoError(t, err)
	assert.Len(t, lintRes.Violations, 2)
	assert.Equal(t, 2, lintRes.ExitCode)
}

func TestLintPlaybookClean(t *testing.T) {
	t.Parallel()
	lint := writeScript(t, "exit 0\n")
	fx := newFixture(t, lint, "molecule")
	ctx := context.Background()

	res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)

	lintRes, err := fx.svc.LintPlaybook(ctx, res.PlaybookID)
	require.NoError(t, err)
	assert.Empty(t, lintRes.Violations)
	assert.Zero(t, lintRes.ExitCode)
}

func TestLintPlaybookErrors(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "/nonexistent/ansible-lint", "molecule")
	ctx := context.Background()

	t.Run("invalid id", func(t *testing.T) {
		_, err := fx.svc.LintPlaybook(ctx, "../../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidPlaybookID)
	})

	t.Run("unknown playbook", func(t *testing.T) {
		_, err := fx.svc.LintPlaybook(ctx, "0c9d2372-7f73-4c21-8e5d-7b9df103c801")
		assert.ErrorIs(t, err, ErrPlaybookNotFound)
	})

	t.Run("missing tool", func(t *testing.T) {
		res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
		require.NoError(t, err)
		_, err = fx.svc.LintPlaybook(ctx, res.PlaybookID)
		assert.ErrorIs(t, err, ErrToolFailed)
	})
}

func TestTestPlaybook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("passed", func(t *testing.T) {
		molecule := writeScript(t, "echo 'PLAY RECAP: ok'\nexit 0\n")
		fx := newFixture(t, "ansible-lint", molecule)
		res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
		require.NoError(t, err)

		testRes, err := fx.svc.TestPlaybook(ctx, res.PlaybookID)
		require.NoError(t, err)
		assert.Equal(t, "passed", testRes.Status)
		assert.Contains(t, testRes.Logs, "PLAY RECAP")

		// Scenario config written with an image matching the content.
		cfg, err := os.ReadFile(filepath.Join(fx.dir, res.PlaybookID, "molecule", "default", "molecule.yml"))
		require.NoError(t, err)
		assert.Contains(t, string(cfg), "docker-ubuntu2004-ansible")
	})

	t.Run("failed", func(t *testing.T) {
		molecule := writeScript(t, "echo 'converge error'\nexit 1\n")
		fx := newFixture(t, "ansible-lint", molecule)
		res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
		require.NoError(t, err)

		testRes, err := fx.svc.TestPlaybook(ctx, res.PlaybookID)
		require.NoError(t, err)
		assert.Equal(t, "failed", testRes.Status)
	})
}

func TestCleanupTestArtifacts(t *testing.T) {
	t.Parallel()
	molecule := writeScript(t, "exit 0\n")
	fx := newFixture(t, "ansible-lint", molecule)
	ctx := context.Background()

	res, err := fx.svc.GeneratePlaybook(ctx, "apt", "install nginx")
	require.NoError(t, err)
	_, err = fx.svc.TestPlaybook(ctx, res.PlaybookID)
	require.NoError(t, err)

	scenarioRoot := filepath.Join(fx.dir, res.PlaybookID)
	require.DirExists(t, scenarioRoot)
	fx.svc.CleanupTestArtifacts(ctx, res.PlaybookID)
	assert.NoDirExists(t, scenarioRoot)

	// Invalid IDs are ignored.
	fx.svc.CleanupTestArtifacts(ctx, "not-a-uuid")
}

func TestJobsReportProgress(t *testing.T) {
	t.Parallel()
	lint := writeScript(t, "exit 0\n")
	fx := newFixture(t, lint, "molecule")
	ctx := context.Background()

	var percents []int
	report := func(percent int, details map[string]any) {
		percents = append(percents, percent)
	}

	job := fx.svc.GenerateJob("apt", "install nginx", report)
	result, err := job(ctx)
	require.NoError(t, err)
	genRes, ok := result.(GenerateResult)
	require.True(t, ok)
	assert.Equal(t, []int{10, 100}, percents)

	percents = nil
	lintJob := fx.svc.LintJob(genRes.PlaybookID, report)
	result, err = lintJob(ctx)
	require.NoError(t, err)
	_, ok = result.(LintResult)
	require.True(t, ok)
	assert.Equal(t, []int{10, 100}, percents)
}

func TestJobsSurfaceErrors(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, "ansible-lint", "molecule")

	job := fx.svc.GenerateJob("nonexistent", "prompt", func(int, map[string]any) {})
	_, err := job(context.Background())
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

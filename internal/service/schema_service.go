package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davidahmann/reliaansible/internal/cache"
)

// SchemaService serves Ansible module schemas loaded from disk JSON files.
// Lookups are memoized through the schema cache so repeated requests for
// the same module skip the filesystem.
type SchemaService struct {
	dir    string
	logger *slog.Logger
	lookup func(ctx context.Context, module string) (map[string]any, error)
}

// NewSchemaService creates a schema service reading from dir and memoizing
// through schemaCache.
func NewSchemaService(dir string, schemaCache *cache.Cache[map[string]any], logger *slog.Logger) *SchemaService {
	s := &SchemaService{
		dir:    dir,
		logger: logger.With("component", "schema_service"),
	}
	s.lookup = cache.Memoize(schemaCache, cache.DefaultKey[string]("schema"), s.load)
	return s
}

// GetSchema returns the JSON schema for an Ansible module. The
// "ansible.builtin." prefix is optional.
func (s *SchemaService) GetSchema(ctx context.Context, module string) (map[string]any, error) {
	key := normalizeModule(module)
	if key == "" {
		return nil, fmt.Errorf("%w: empty module name", ErrSchemaNotFound)
	}
	return s.lookup(ctx, key)
}

// ListModules returns the module names that have a schema file, sorted.
func (s *SchemaService) ListModules(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	var modules []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		modules = append(modules, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(modules)
	return modules, nil
}

func (s *SchemaService) load(ctx context.Context, module string) (map[string]any, error) {
	// module has been normalized to a bare name; reject separators anyway
	// since the name becomes a file path component.
	if strings.ContainsAny(module, `/\`) || strings.Contains(module, "..") {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, module)
	}

	path := filepath.Join(s.dir, module+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, module)
		}
		return nil, fmt.Errorf("failed to read schema for %q: %w", module, err)
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("schema for %q is not valid JSON: %w", module, err)
	}

	s.logger.DebugContext(ctx, "loaded module schema", "module", module)
	return schema, nil
}

func normalizeModule(module string) string {
	return strings.TrimPrefix(strings.TrimSpace(module), "ansible.builtin.")
}

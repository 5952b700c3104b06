package schema

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/chrondb/chrondb/internal/value"
)

// ValidationError is raised by a strict-mode write that fails its
// namespace's schema.
type ValidationError struct {
	Namespace  string
	DocumentID string
	Mode       Mode
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document %q violates %q schema (%d violation(s)): %v",
		e.DocumentID, e.Namespace, len(e.Violations), e.Violations)
}

type cacheKey struct {
	namespace string
	branch    string
	version   int64
}

type validatorCache struct {
	mu    sync.Mutex
	byNS  map[string][]cacheKey // namespace -> keys currently cached, for invalidation
	byKey map[cacheKey]*jsonschema.Schema
}

func newValidatorCache() *validatorCache {
	return &validatorCache{
		byNS:  make(map[string][]cacheKey),
		byKey: make(map[cacheKey]*jsonschema.Schema),
	}
}

func (c *validatorCache) get(key cacheKey) (*jsonschema.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byKey[key]
	return s, ok
}

func (c *validatorCache) put(key cacheKey, s *jsonschema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = s
	c.byNS[key.namespace] = append(c.byNS[key.namespace], key)
}

// invalidateNamespace drops every cached compiled schema for namespace,
// across all branches and versions. Called whenever a new Record is
// installed: the cheapest correct invalidation, since recompiling is rare
// next to validation itself.
func (c *validatorCache) invalidateNamespace(branch, namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.byNS[namespace] {
		delete(c.byKey, key)
	}
	delete(c.byNS, namespace)
}

func compile(namespace string, version int64, schemaDoc value.Value) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := "mem://chrondb/" + namespace + "/" + strconv.FormatInt(version, 10)
	if err := compiler.AddResource(url, value.ToAny(schemaDoc)); err != nil {
		return nil, fmt.Errorf("schema: compile %q: %w", namespace, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %q: %w", namespace, err)
	}
	return compiled, nil
}

func (r *Registry) compiled(branch string, rec Record) (*jsonschema.Schema, error) {
	key := cacheKey{namespace: rec.Namespace, branch: branch, version: rec.Version}
	if s, ok := r.cache.get(key); ok {
		return s, nil
	}
	s, err := compile(rec.Namespace, rec.Version, rec.Schema)
	if err != nil {
		return nil, err
	}
	r.cache.put(key, s)
	return s, nil
}

func flattenCauses(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		return []string{err.Error()}
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, flattenCauses(cause)...)
	}
	return out
}

// ValidateIfEnabled applies namespace's schema (resolved from doc's own
// table) to doc. Absent record or disabled mode skip silently; strict
// mode returns *ValidationError on failure; warning mode logs the
// violations and allows the write through.
func (r *Registry) ValidateIfEnabled(branch string, doc value.Value, logger *slog.Logger) error {
	namespace := value.Table(doc)
	rec, ok, err := r.Get(branch, namespace)
	if err != nil {
		return err
	}
	if !ok || rec.Mode == Disabled {
		return nil
	}

	schema, err := r.compiled(branch, rec)
	if err != nil {
		return err
	}

	id, _ := value.ID(doc)
	err = schema.Validate(value.ToAny(doc))
	if err == nil {
		return nil
	}

	var violations []string
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		violations = flattenCauses(ve)
	} else {
		violations = []string{err.Error()}
	}

	if rec.Mode == Warning {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("schema validation failed, allowing write (warning mode)",
			"namespace", namespace, "document_id", id, "violations", violations)
		return nil
	}

	return &ValidationError{Namespace: namespace, DocumentID: id, Mode: rec.Mode, Violations: violations}
}

// Package selector filters branches with CEL (Common Expression Language)
// expressions, e.g. `branch.applied && branch.order < 5`.
package selector

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/john-rice/gitbutler/common/models"
)

// Selector evaluates branch filter expressions with compiled-program caching
type Selector struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewSelector creates a new selector with caching
func NewSelector() *Selector {
	return &Selector{
		cache: make(map[string]cel.Program),
	}
}

// Matches evaluates a filter expression against one branch
func (s *Selector) Matches(expr string, branch *models.Branch) (bool, error) {
	if expr == "" {
		return true, nil
	}

	// Check cache first
	s.mu.RLock()
	prg, exists := s.cache[expr]
	s.mu.RUnlock()

	if !exists {
		var err error
		prg, err = s.compile(expr)
		if err != nil {
			return false, err
		}

		s.mu.Lock()
		s.cache[expr] = prg
		s.mu.Unlock()
	}

	fields, err := branchFields(branch)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"branch": fields,
	})
	if err != nil {
		return false, fmt.Errorf("filter evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression did not return boolean, got %T", out.Value())
	}

	return result, nil
}

// Filter returns the branches matching a filter expression
func (s *Selector) Filter(expr string, branches []*models.Branch) ([]*models.Branch, error) {
	matched := make([]*models.Branch, 0, len(branches))
	for _, branch := range branches {
		ok, err := s.Matches(expr, branch)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, branch)
		}
	}
	return matched, nil
}

// compile compiles a CEL filter expression
func (s *Selector) compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("branch", cel.DynType),
		// JSON-decoded numbers arrive as doubles; filters compare them
		// against integer literals
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return prg, nil
}

// ClearCache clears the compiled expression cache
func (s *Selector) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cel.Program)
}

// branchFields exposes a branch as plain maps and scalars for CEL. The JSON
// form keeps the field names seen on the API surface.
func branchFields(branch *models.Branch) (map[string]interface{}, error) {
	data, err := json.Marshal(branch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode branch for filtering: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode branch for filtering: %w", err)
	}
	return fields, nil
}

package featureflag

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// StaticEvaluator serves flags from a fixed table, optionally overridden per
// organization. It stands in for the hosted evaluator in development and
// tests; it does no targeting beyond the organization override.
type StaticEvaluator struct {
	mu    sync.RWMutex
	flags map[string]StaticFlag
}

// StaticFlag is one entry of a flags file.
type StaticFlag struct {
	Value         any            `yaml:"value"`
	Organizations map[string]any `yaml:"organizations,omitempty"`
}

type staticFile struct {
	Flags map[string]StaticFlag `yaml:"flags"`
}

// NewStaticEvaluator creates an evaluator serving flags.
func NewStaticEvaluator(flags map[string]StaticFlag) *StaticEvaluator {
	if flags == nil {
		flags = make(map[string]StaticFlag)
	}
	return &StaticEvaluator{flags: flags}
}

// LoadStaticEvaluator reads a YAML flags file:
//
//	flags:
//	  recognition-marketplace:
//	    value: true
//	    organizations:
//	      org-legacy: false
func LoadStaticEvaluator(path string) (*StaticEvaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flags file: %w", err)
	}
	return ParseStaticEvaluator(data)
}

// ParseStaticEvaluator parses the YAML flags document in data.
func ParseStaticEvaluator(data []byte) (*StaticEvaluator, error) {
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse flags file: %w", err)
	}
	for key, flag := range f.Flags {
		if flag.Value == nil {
			return nil, fmt.Errorf("flag %s: value is required", key)
		}
	}
	return NewStaticEvaluator(f.Flags), nil
}

// Set replaces the default value of key.
func (e *StaticEvaluator) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	flag := e.flags[key]
	flag.Value = value
	e.flags[key] = flag
}

// SetOrganization overrides key for one organization.
func (e *StaticEvaluator) SetOrganization(key, organizationID string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	flag := e.flags[key]
	if flag.Organizations == nil {
		flag.Organizations = make(map[string]any)
	}
	flag.Organizations[organizationID] = value
	e.flags[key] = flag
}

func (e *StaticEvaluator) EvaluateFlag(_ context.Context, key string, ec EvaluationContext) (Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Result{Value: e.lookup(key, ec)}, nil
}

func (e *StaticEvaluator) EvaluateFlags(_ context.Context, keys []string, ec EvaluationContext) (map[string]Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]Result, len(keys))
	for _, key := range keys {
		if v := e.lookup(key, ec); v != nil {
			out[key] = Result{Value: v}
		}
	}
	return out, nil
}

func (e *StaticEvaluator) lookup(key string, ec EvaluationContext) any {
	flag, ok := e.flags[key]
	if !ok {
		return nil
	}
	if v, ok := flag.Organizations[ec.OrganizationID]; ok && ec.OrganizationID != "" {
		return v
	}
	return flag.Value
}

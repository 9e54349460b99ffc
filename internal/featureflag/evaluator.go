// Package featureflag consumes feature-flag values on behalf of one request.
//
// Evaluation (targeting, percentage rollouts) belongs to an external Evaluator.
// This package memoizes what the evaluator returns for the lifetime of a
// request and applies the fail-open policy when the evaluator is unavailable.
package featureflag

import "context"

// RequestMetadata describes the inbound request a flag is evaluated for.
type RequestMetadata struct {
	ClientIP  string `json:"clientIp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Mobile    bool   `json:"mobile"`
	Bot       bool   `json:"bot"`
	Method    string `json:"method"`
	Route     string `json:"route"`
}

// EvaluationContext is what the evaluator targets on.
type EvaluationContext struct {
	UserID         string          `json:"userId,omitempty"`
	OrganizationID string          `json:"organizationId,omitempty"`
	Environment    string          `json:"environment"`
	Request        RequestMetadata `json:"request"`
}

// Result is a single evaluated flag.
type Result struct {
	Value any `json:"value"`
}

// Evaluator is the external flag service. Implementations should wrap
// sentinel.ErrUnavailable when the service cannot be reached.
type Evaluator interface {
	EvaluateFlag(ctx context.Context, key string, ec EvaluationContext) (Result, error)
	// EvaluateFlags returns results for the keys it knows; missing keys are
	// treated as unset.
	EvaluateFlags(ctx context.Context, keys []string, ec EvaluationContext) (map[string]Result, error)
}

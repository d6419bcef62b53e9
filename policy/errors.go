// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Sentinel errors for policy documents and rules.
var (
	// ErrInvalidPolicy is returned when a policy document cannot be decoded or
	// does not match the policy schema.
	ErrInvalidPolicy = errors.New("invalid policy document")

	// ErrExpressionCheck is returned when a rule fails syntax or type checking.
	ErrExpressionCheck = errors.New("policy rule check failed")

	// ErrEvaluation is returned when a rule fails at evaluation time.
	ErrEvaluation = errors.New("policy rule evaluation failed")

	// ErrInvalidResult is returned when a rule does not produce a bool.
	ErrInvalidResult = errors.New("policy rule returned non-bool result")
)

// Issue is one problem found in a rule expression.
type Issue struct {
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

// RuleError reports a rule that could not be compiled.
type RuleError struct {
	Rule       string  `json:"rule"`
	Expression string  `json:"expression"`
	Stage      string  `json:"stage"`
	Issues     []Issue `json:"issues,omitempty"`
	original   error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("policy rule %q: %s error in %q: %s", e.Rule, e.Stage, e.Expression, e.original)
}

// Unwrap returns the underlying error.
func (e *RuleError) Unwrap() error {
	return e.original
}

// AsJSON returns the error details as JSON.
func (e *RuleError) AsJSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal JSON: %s"}`, err)
	}
	return string(b)
}

func newRuleError(rule, expr, stage string, issues *cel.Issues) *RuleError {
	re := &RuleError{
		Rule:       rule,
		Expression: expr,
		Stage:      stage,
		Issues:     make([]Issue, 0, len(issues.Errors())),
		original:   fmt.Errorf("%w: %w", ErrExpressionCheck, issues.Err()),
	}
	for _, e := range issues.Errors() {
		re.Issues = append(re.Issues, Issue{
			Line: e.Location.Line(),
			Col:  e.Location.Column(),
			Msg:  e.Message,
		})
	}
	return re
}

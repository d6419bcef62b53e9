// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/stacklok/skills-registry/verify"
)

const (
	// MaxExpressionLength bounds the size of a rule expression.
	MaxExpressionLength = 4096

	// CostLimit bounds the runtime cost of evaluating one rule.
	CostLimit = 100000
)

// Rule is a named CEL expression that a version must satisfy to be visible.
type Rule struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

// Subject describes the skill version a decision is made for.
type Subject struct {
	Slug         string
	Tags         []string
	Capabilities []string
	Version      string
}

type compiledRule struct {
	name    string
	program cel.Program
}

var ruleEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("skill", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("version", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("verdict", cel.MapType(cel.StringType, cel.BoolType)),
	)
})

// CheckRule reports whether expr is a valid rule expression.
func CheckRule(expr string) error {
	_, err := compileRule(Rule{Name: "check", Expression: expr})
	return err
}

func compileRule(r Rule) (*compiledRule, error) {
	if len(r.Expression) > MaxExpressionLength {
		return nil, fmt.Errorf("%w: rule %q is %d bytes, maximum is %d",
			ErrExpressionCheck, r.Name, len(r.Expression), MaxExpressionLength)
	}

	env, err := ruleEnv()
	if err != nil {
		return nil, fmt.Errorf("creating rule environment: %w", err)
	}

	parsed, issues := env.Parse(r.Expression)
	if issues.Err() != nil {
		return nil, newRuleError(r.Name, r.Expression, "parse", issues)
	}

	checked, issues := env.Check(parsed)
	if issues.Err() != nil {
		return nil, newRuleError(r.Name, r.Expression, "check", issues)
	}
	if !checked.OutputType().IsExactType(cel.BoolType) && !checked.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: rule %q has type %s", ErrInvalidResult, r.Name, checked.OutputType())
	}

	program, err := env.Program(checked, cel.CostLimit(CostLimit))
	if err != nil {
		return nil, fmt.Errorf("building program for rule %q: %w", r.Name, err)
	}

	return &compiledRule{name: r.Name, program: program}, nil
}

func (c *compiledRule) evaluate(activation map[string]any) (bool, error) {
	out, _, err := c.program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("%w: rule %q: %s", ErrEvaluation, c.name, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: rule %q returned %T", ErrInvalidResult, c.name, out.Value())
	}
	return b, nil
}

func activation(s Subject, rec verify.Record, v verify.Verdict) map[string]any {
	return map[string]any{
		"skill": map[string]any{
			"slug":         s.Slug,
			"tags":         nonNil(s.Tags),
			"capabilities": nonNil(s.Capabilities),
		},
		"version": map[string]any{
			"version":   s.Version,
			"digest":    rec.Digest,
			"publicKey": rec.SignerPublicKey,
			"signed":    rec.Signed(),
		},
		"verdict": map[string]any{
			"hashValid":      v.DigestValid,
			"signatureValid": v.SignatureValid,
			"verified":       v.Verified,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/skills-registry/verify"
)

//go:embed data/policy.schema.json
var schemaFS embed.FS

const schemaFile = "data/policy.schema.json"

// Policy is the operator's visibility configuration.
type Policy struct {
	AllowedTags       []string `json:"allowedTags"`
	BlockedSlugs      []string `json:"blockedSlugs"`
	BlockedPublicKeys []string `json:"blockedPublicKeys"`
	ShowUnsigned      bool     `json:"showUnsigned"`
	Rules             []Rule   `json:"rules,omitempty"`

	compiled []*compiledRule
}

// document mirrors Policy with optional fields so absent keys keep their defaults.
type document struct {
	AllowedTags       []string `json:"allowedTags"`
	BlockedSlugs      []string `json:"blockedSlugs"`
	BlockedPublicKeys []string `json:"blockedPublicKeys"`
	ShowUnsigned      *bool    `json:"showUnsigned"`
	Rules             []Rule   `json:"rules"`
}

// Reason explains why a version was hidden.
type Reason string

// Reasons reported in a Decision.
const (
	ReasonNone       Reason = ""
	ReasonBlockedKey Reason = "blocked_public_key"
	ReasonUnverified Reason = "unverified"
	ReasonRule       Reason = "rule"
)

// Decision is the outcome of evaluating one version.
type Decision struct {
	Visible bool
	Verdict verify.Verdict
	Reason  Reason
	// Rule names the rule that hid the version when Reason is ReasonRule.
	Rule string
	// RuleErr is set when that rule failed to evaluate.
	RuleErr error
}

// Default returns the policy in effect when no document is configured.
func Default() *Policy {
	return &Policy{
		AllowedTags:       []string{},
		BlockedSlugs:      []string{},
		BlockedPublicKeys: []string{},
		ShowUnsigned:      true,
	}
}

// Parse decodes and validates a JSON or YAML policy document. Keys absent from
// the document take their default values.
func Parse(data []byte) (*Policy, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	// Round-trip through JSON so both formats share one set of struct tags.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	var doc document
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}

	p := Default()
	if doc.AllowedTags != nil {
		p.AllowedTags = doc.AllowedTags
	}
	if doc.BlockedSlugs != nil {
		p.BlockedSlugs = doc.BlockedSlugs
	}
	if doc.BlockedPublicKeys != nil {
		p.BlockedPublicKeys = doc.BlockedPublicKeys
	}
	if doc.ShowUnsigned != nil {
		p.ShowUnsigned = *doc.ShowUnsigned
	}
	p.Rules = doc.Rules

	for _, r := range p.Rules {
		c, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		p.compiled = append(p.compiled, c)
	}

	return p, nil
}

func validateSchema(doc any) error {
	schema, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("reading embedded schema %s: %w", schemaFile, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(msgs, "; "))
}

// Evaluate decides whether a version is visible without any skill context.
func (p *Policy) Evaluate(rec verify.Record, trusted map[string]struct{}) Decision {
	return p.EvaluateFor(Subject{}, rec, trusted)
}

// EvaluateFor decides whether the version of subject described by rec is visible.
func (p *Policy) EvaluateFor(s Subject, rec verify.Record, trusted map[string]struct{}) Decision {
	if rec.SignerPublicKey != "" && slices.Contains(p.BlockedPublicKeys, rec.SignerPublicKey) {
		return Decision{Reason: ReasonBlockedKey}
	}

	verdict := verify.VerifyRecord(rec, trusted)

	if !p.ShowUnsigned && (!rec.Signed() || !verdict.Verified) {
		return Decision{Verdict: verdict, Reason: ReasonUnverified}
	}

	if len(p.compiled) > 0 {
		act := activation(s, rec, verdict)
		for _, c := range p.compiled {
			ok, err := c.evaluate(act)
			if err != nil || !ok {
				return Decision{Verdict: verdict, Reason: ReasonRule, Rule: c.name, RuleErr: err}
			}
		}
	}

	return Decision{Visible: true, Verdict: verdict}
}

// CollectionVisible applies the tag gate and the slug block-list to a skill.
// A skill with no tags never passes a non-empty allow-list.
func (p *Policy) CollectionVisible(slug string, tags []string) bool {
	if slices.Contains(p.BlockedSlugs, slug) {
		return false
	}
	if len(p.AllowedTags) == 0 {
		return true
	}
	for _, t := range tags {
		if slices.Contains(p.AllowedTags, t) {
			return true
		}
	}
	return false
}

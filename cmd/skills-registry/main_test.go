// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/skills-registry/policy"
)

// setupEnv points every file location at a temp dir. Tests using it
// modify the process environment and cannot run in parallel.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("REGISTRY_ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PUBLISHER_KEY_PATH", filepath.Join(dir, "publisher.key"))
	t.Setenv("PUBLISHER_PREVIOUS_PUBLIC_KEYS", "")
	t.Setenv("REGISTRY_POLICY_PATH", filepath.Join(dir, "registry.json"))
	t.Setenv("EXPORT_DIR", filepath.Join(dir, "oci"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestKeysCommands(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "keys", "ensure")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "publisher.key"))
	_, statErr := os.Stat(filepath.Join(dir, "publisher.key"))
	require.NoError(t, statErr)

	out, err = run(t, "keys", "show")
	require.NoError(t, err)
	first := strings.TrimPrefix(strings.TrimSpace(out), "active: ")
	assert.NotEmpty(t, first)

	out, err = run(t, "keys", "rotate")
	require.NoError(t, err)
	assert.Contains(t, out, "retired: "+first)

	t.Setenv("PUBLISHER_PREVIOUS_PUBLIC_KEYS", first)
	out, err = run(t, "keys", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "trusted: "+first)
	assert.NotContains(t, out, "active: "+first)
}

func TestPolicyCommands(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "policy", "show")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "defaults", report["source"])
	assert.Equal(t, policy.DefaultHash(), report["hash"])

	good := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"showUnsigned": false}`), 0o600))
	out, err = run(t, "policy", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	out, err = run(t, "policy", "show")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, good, report["source"])
	assert.Equal(t, false, report["policy"].(map[string]any)["showUnsigned"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"showUnsigned": "yes"}`), 0o600))
	_, err = run(t, "policy", "check", bad)
	require.Error(t, err)
}

func TestExportCommand_EmptyRegistry(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 0 versions of 0 skills")

	_, statErr := os.Stat(filepath.Join(dir, "oci", "oci-layout"))
	require.NoError(t, statErr)
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "migrate")
	require.ErrorContains(t, err, "DATABASE_URL is required")
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("REGISTRY_ENV", "staging")

	_, err := run(t, "keys", "show")
	require.ErrorContains(t, err, "REGISTRY_ENV")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	require.NoError(t, loadEnvFile(""))

	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SKILLS_REGISTRY_TEST_VAR=from-file\n"), 0o600))
	t.Setenv("SKILLS_REGISTRY_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("SKILLS_REGISTRY_TEST_VAR"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("SKILLS_REGISTRY_TEST_VAR"))
}

func TestServerVersion(t *testing.T) {
	t.Parallel()
	assert.NotEmpty(t, serverVersion())
}

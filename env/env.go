// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package env

//go:generate mockgen -copyright_file=../.github/license-header.txt -source=env.go -destination=mocks/mock_reader.go -package=mocks Reader

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reader defines an interface for environment variable access
type Reader interface {
	Getenv(key string) string
}

// OSReader implements Reader using the standard os package
type OSReader struct{}

// Getenv returns the value of the environment variable named by the key
func (*OSReader) Getenv(key string) string {
	return os.Getenv(key)
}

func lookup(r Reader, key string) (string, bool) {
	v := strings.TrimSpace(r.Getenv(key))
	return v, v != ""
}

// String returns the trimmed value of key, or def when unset.
func String(r Reader, key, def string) string {
	if v, ok := lookup(r, key); ok {
		return v
	}
	return def
}

// Int parses key as a base-10 integer.
func Int(r Reader, key string, def int) (int, error) {
	v, ok := lookup(r, key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

// Bool parses key with strconv.ParseBool.
func Bool(r Reader, key string, def bool) (bool, error) {
	v, ok := lookup(r, key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

// Duration parses key with time.ParseDuration.
func Duration(r Reader, key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(r, key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

// List splits key on commas, dropping blank items.
func List(r Reader, key string) []string {
	v, ok := lookup(r, key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/stacklok/skills-registry/signature"
)

// keyFilePerm is the permission applied to persisted key files.
const keyFilePerm fs.FileMode = 0o600

// keyFile is the on-disk representation of the active identity.
type keyFile struct {
	PrivateKey string     `json:"privateKey"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

// readKeyFile loads the identity stored at path. A missing file is reported
// with an error satisfying errors.Is(err, fs.ErrNotExist).
func readKeyFile(path string) (signature.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return signature.Identity{}, err
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return signature.Identity{}, fmt.Errorf("%w: %s: %w", ErrCorruptKeyFile, path, err)
	}
	if kf.PrivateKey == "" {
		return signature.Identity{}, fmt.Errorf("%w: %s: missing privateKey", ErrCorruptKeyFile, path)
	}

	pub, err := signature.PublicKeyFromPrivate(kf.PrivateKey)
	if err != nil {
		return signature.Identity{}, fmt.Errorf("%w: %s: %w", ErrCorruptKeyFile, path, err)
	}

	return signature.Identity{PublicKey: pub, PrivateKey: kf.PrivateKey}, nil
}

func encodeKeyFile(id signature.Identity, now time.Time) ([]byte, error) {
	created := now.UTC()
	data, err := json.MarshalIndent(keyFile{PrivateKey: id.PrivateKey, CreatedAt: &created}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding key file: %w", err)
	}
	return append(data, '\n'), nil
}

// writeTemp writes data to a fresh temporary file next to path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating key directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".publisher-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp key file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := tmp.Chmod(keyFilePerm); err != nil {
		cleanup()
		return "", fmt.Errorf("setting key file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return "", fmt.Errorf("writing temp key file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("syncing temp key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp key file: %w", err)
	}

	return tmpPath, nil
}

// createExclusive publishes data at path only if nothing exists there yet.
// The file appears fully written or not at all. If another writer won the
// race, the returned error satisfies errors.Is(err, fs.ErrExist).
func createExclusive(path string, data []byte) error {
	tmpPath, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("publishing key file %s: %w", path, err)
	}
	return nil
}

// replaceAtomic overwrites path with data via rename.
func replaceAtomic(path string, data []byte) error {
	tmpPath, err := writeTemp(path, data)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing key file %s: %w", path, err)
	}
	return nil
}

// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oci

import (
	"context"
	"fmt"

	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// Pusher copies exported artifacts to a remote repository.
type Pusher struct {
	credStore credentials.Store
	plainHTTP bool

	// newTarget is replaced in tests with an in-memory target.
	newTarget func(repo string) (oras.Target, error)
}

// PusherOption configures a Pusher.
type PusherOption func(*Pusher)

// WithPlainHTTP talks to the registry over plain HTTP.
func WithPlainHTTP(enabled bool) PusherOption {
	return func(p *Pusher) {
		p.plainHTTP = enabled
	}
}

// WithCredentialStore replaces the Docker credential store.
func WithCredentialStore(store credentials.Store) PusherOption {
	return func(p *Pusher) {
		p.credStore = store
	}
}

// NewPusher creates a Pusher. Credentials come from the Docker config
// unless WithCredentialStore is given.
func NewPusher(opts ...PusherOption) (*Pusher, error) {
	p := &Pusher{}
	for _, opt := range opts {
		opt(p)
	}

	if p.credStore == nil {
		credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
		if err != nil {
			return nil, fmt.Errorf("creating credential store: %w", err)
		}
		p.credStore = credStore
	}
	if p.newTarget == nil {
		p.newTarget = p.remoteTarget
	}
	return p, nil
}

// Push copies the artifacts tagged tags in store to repo ("host/path"),
// keeping their tags.
func (p *Pusher) Push(ctx context.Context, store *Store, repo string, tags []string) error {
	if err := validateRepository(repo); err != nil {
		return err
	}
	target, err := p.newTarget(repo)
	if err != nil {
		return fmt.Errorf("getting repository: %w", err)
	}

	for _, tag := range tags {
		desc, err := store.Resolve(ctx, tag)
		if err != nil {
			return err
		}
		if err := oras.CopyGraph(ctx, store.Target(), target, desc, oras.DefaultCopyGraphOptions); err != nil {
			return fmt.Errorf("pushing %s: %w", tag, err)
		}
		if err := target.Tag(ctx, desc, tag); err != nil {
			return fmt.Errorf("tagging remote %s: %w", tag, err)
		}
	}
	return nil
}

// validateRepository accepts a repository reference without tag or digest.
func validateRepository(repo string) error {
	ref, err := registry.ParseReference(repo)
	if err != nil {
		return fmt.Errorf("parsing repository %q: %w", repo, err)
	}
	if ref.Reference != "" {
		return fmt.Errorf("repository %q must not include a tag or digest", repo)
	}
	return nil
}

func (p *Pusher) remoteTarget(repoPath string) (oras.Target, error) {
	repo, err := remote.NewRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("creating repository for %q: %w", repoPath, err)
	}
	repo.Client = &auth.Client{
		Credential: credentials.Credential(p.credStore),
	}
	repo.PlainHTTP = p.plainHTTP
	return repo, nil
}

// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package oci

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	ocilayout "oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/errdef"
)

// Store is an OCI Image Layout on disk.
type Store struct {
	root  string
	inner *ocilayout.Store
}

// NewStore opens or initializes the layout at root.
func NewStore(root string) (*Store, error) {
	inner, err := ocilayout.New(root)
	if err != nil {
		return nil, fmt.Errorf("creating OCI store at %s: %w", root, err)
	}
	return &Store{root: root, inner: inner}, nil
}

// Push stores content under a descriptor of the given media type and returns
// the descriptor. Content already present is not an error.
func (s *Store) Push(ctx context.Context, mediaType string, content []byte) (ocispec.Descriptor, error) {
	desc := ocispec.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(content),
		Size:      int64(len(content)),
	}
	if err := s.inner.Push(ctx, desc, bytes.NewReader(content)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return ocispec.Descriptor{}, fmt.Errorf("writing %s: %w", mediaType, err)
	}
	return desc, nil
}

// Fetch reads the content addressed by d.
func (s *Store) Fetch(ctx context.Context, d digest.Digest) ([]byte, error) {
	// The layout locates blobs by digest alone.
	rc, err := s.inner.Fetch(ctx, ocispec.Descriptor{Digest: d})
	if err != nil {
		return nil, fmt.Errorf("content not found: %s: %w", d, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d, err)
	}
	return data, nil
}

// Tag points tag at desc.
func (s *Store) Tag(ctx context.Context, desc ocispec.Descriptor, tag string) error {
	if err := s.inner.Tag(ctx, desc, tag); err != nil {
		return fmt.Errorf("tagging %s: %w", tag, err)
	}
	return nil
}

// Resolve returns the descriptor a tag points at.
func (s *Store) Resolve(ctx context.Context, tag string) (ocispec.Descriptor, error) {
	desc, err := s.inner.Resolve(ctx, tag)
	if err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("tag not found: %s: %w", tag, err)
	}
	return desc, nil
}

// ListTags returns every tag in the layout.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := s.inner.Tags(ctx, "", func(t []string) error {
		tags = append(tags, t...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// Root returns the layout directory.
func (s *Store) Root() string {
	return s.root
}

// Target exposes the layout to oras copy operations.
func (s *Store) Target() oras.Target {
	return s.inner
}

// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	sigstore "github.com/sigstore/sigstore/pkg/signature"

	"github.com/stacklok/skills-registry/digest"
)

// Sentinel errors for key decoding.
var (
	// ErrInvalidPrivateKey is returned when a private key is not base64 PKCS#8 Ed25519.
	ErrInvalidPrivateKey = errors.New("invalid Ed25519 private key")

	// ErrInvalidPublicKey is returned when a public key is not base64 SPKI Ed25519.
	ErrInvalidPublicKey = errors.New("invalid Ed25519 public key")

	// ErrInvalidDigest is returned when asked to sign something that is not a raw digest.
	ErrInvalidDigest = errors.New("invalid digest length")
)

// Identity is an encoded Ed25519 key pair.
type Identity struct {
	// PublicKey is base64 of the SubjectPublicKeyInfo DER encoding.
	PublicKey string
	// PrivateKey is base64 of the PKCS#8 DER encoding.
	PrivateKey string
}

// GenerateIdentity creates a fresh Ed25519 key pair.
func GenerateIdentity() (Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return identityFromKey(priv)
}

// PublicKeyFromPrivate derives the encoded public key of an encoded private key.
func PublicKeyFromPrivate(privateKeyB64 string) (string, error) {
	priv, err := decodePrivateKey(privateKeyB64)
	if err != nil {
		return "", err
	}
	id, err := identityFromKey(priv)
	if err != nil {
		return "", err
	}
	return id.PublicKey, nil
}

// Sign signs a raw content digest with an encoded private key and returns the
// base64 signature.
func Sign(digestBytes []byte, privateKeyB64 string) (string, error) {
	if len(digestBytes) != digest.Size {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidDigest, len(digestBytes))
	}

	priv, err := decodePrivateKey(privateKeyB64)
	if err != nil {
		return "", err
	}

	signer, err := sigstore.LoadED25519Signer(priv)
	if err != nil {
		return "", fmt.Errorf("loading signer: %w", err)
	}

	sig, err := signer.SignMessage(bytes.NewReader(digestBytes))
	if err != nil {
		return "", fmt.Errorf("signing digest: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether signatureB64 is a valid signature of digestBytes by
// publicKeyB64. It fails closed on any malformed input.
func Verify(digestBytes []byte, signatureB64, publicKeyB64 string) bool {
	if len(digestBytes) != digest.Size {
		return false
	}

	pub, err := decodePublicKey(publicKeyB64)
	if err != nil {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	verifier, err := sigstore.LoadED25519Verifier(pub)
	if err != nil {
		return false
	}

	return verifier.VerifySignature(bytes.NewReader(sig), bytes.NewReader(digestBytes)) == nil
}

// ValidatePublicKey checks that publicKeyB64 decodes to an Ed25519 public key.
func ValidatePublicKey(publicKeyB64 string) error {
	_, err := decodePublicKey(publicKeyB64)
	return err
}

func identityFromKey(priv ed25519.PrivateKey) (Identity, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return Identity{}, fmt.Errorf("encoding private key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return Identity{}, fmt.Errorf("encoding public key: %w", err)
	}

	return Identity{
		PublicKey:  base64.StdEncoding.EncodeToString(pubDER),
		PrivateKey: base64.StdEncoding.EncodeToString(privDER),
	}, nil
}

func decodePrivateKey(privateKeyB64 string) (ed25519.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}

	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", ErrInvalidPrivateKey, key)
	}
	return priv, nil
}

func decodePublicKey(publicKeyB64 string) (ed25519.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}

	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T", ErrInvalidPublicKey, key)
	}
	return pub, nil
}

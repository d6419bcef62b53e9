// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stacklok/skills-registry/audit"
	"github.com/stacklok/skills-registry/store/migrations"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to the database at dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate applies the embedded schema migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// FindSkill implements Store.
func (p *Postgres) FindSkill(ctx context.Context, slug string) (*Skill, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, slug, title, description, tags, capabilities, author_display_name, created_at, updated_at
		FROM skills WHERE slug = $1`, slug)

	s, err := scanSkill(row)
	if err != nil {
		return nil, err
	}

	s.Versions, err = p.ListVersions(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListVersions implements Store.
func (p *Postgres) ListVersions(ctx context.Context, skillID string) ([]Version, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, skill_id, version, content_markdown, content_hash, signature, public_key, published_at
		FROM skill_versions WHERE skill_id = $1
		ORDER BY published_at DESC, seq DESC`, skillID)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read versions: %w", err)
	}
	return out, nil
}

// FindVersion implements Store.
func (p *Postgres) FindVersion(ctx context.Context, slug, version string) (*Skill, *Version, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, slug, title, description, tags, capabilities, author_display_name, created_at, updated_at
		FROM skills WHERE slug = $1`, slug)
	s, err := scanSkill(row)
	if err != nil {
		return nil, nil, err
	}

	row = p.pool.QueryRow(ctx, `
		SELECT id, skill_id, version, content_markdown, content_hash, signature, public_key, published_at
		FROM skill_versions WHERE skill_id = $1 AND version = $2`, s.ID, version)
	v, err := scanVersion(row)
	if err != nil {
		return nil, nil, err
	}
	return s, v, nil
}

// ListSkills implements Store.
func (p *Postgres) ListSkills(ctx context.Context, filter ListFilter) ([]Skill, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT s.id, s.slug, s.title, s.description, s.tags, s.capabilities, s.author_display_name, s.created_at, s.updated_at
		FROM skills s
		WHERE ($1 = '' OR strpos(lower(s.title), lower($1)) > 0
		               OR strpos(lower(s.description), lower($1)) > 0
		               OR EXISTS (SELECT 1 FROM skill_versions v
		                          WHERE v.skill_id = s.id AND strpos(lower(v.content_markdown), lower($1)) > 0))
		  AND (cardinality($2::text[]) = 0 OR s.tags && $2::text[])
		  AND (cardinality($3::text[]) = 0 OR s.capabilities && $3::text[])
		ORDER BY s.created_at DESC, s.slug`,
		filter.Query, nonNil(filter.Tags), nonNil(filter.Capabilities))
	if err != nil {
		return nil, fmt.Errorf("failed to select skills: %w", err)
	}

	var (
		skills []Skill
		ids    []string
	)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		skills = append(skills, *s)
		ids = append(ids, s.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read skills: %w", err)
	}
	if len(skills) == 0 {
		return skills, nil
	}

	vrows, err := p.pool.Query(ctx, `
		SELECT id, skill_id, version, content_markdown, content_hash, signature, public_key, published_at
		FROM skill_versions WHERE skill_id = ANY($1::uuid[])
		ORDER BY published_at DESC, seq DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions: %w", err)
	}
	defer vrows.Close()

	bySkill := make(map[string][]Version, len(skills))
	for vrows.Next() {
		v, err := scanVersion(vrows)
		if err != nil {
			return nil, err
		}
		bySkill[v.SkillID] = append(bySkill[v.SkillID], *v)
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read versions: %w", err)
	}

	for i := range skills {
		skills[i].Versions = bySkill[skills[i].ID]
	}
	return skills, nil
}

// CreateSkill implements Store.
func (p *Postgres) CreateSkill(ctx context.Context, skill Skill, initial Version) error {
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	if skill.UpdatedAt.IsZero() {
		skill.UpdatedAt = skill.CreatedAt
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO skills (id, slug, title, description, tags, capabilities, author_display_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			skill.ID, skill.Slug, skill.Title, skill.Description, nonNil(skill.Tags), nonNil(skill.Capabilities),
			skill.AuthorDisplayName, skill.CreatedAt, skill.UpdatedAt)
		if err != nil {
			return classify("insert skill", err)
		}
		return insertVersion(ctx, tx, skill.ID, initial)
	})
}

// AddVersion implements Store.
func (p *Postgres) AddVersion(ctx context.Context, skillID string, version Version) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE skills SET updated_at = GREATEST(updated_at, $2) WHERE id = $1`,
			skillID, version.PublishedAt)
		if err != nil {
			return fmt.Errorf("update skill: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return insertVersion(ctx, tx, skillID, version)
	})
}

// RecordAuditEvent implements audit.Sink.
func (p *Postgres) RecordAuditEvent(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO audit_events (id, created_at, action, slug, version, content_hash, actor, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Timestamp, string(e.Action), e.Slug, e.Version, e.Digest, e.Actor,
		nullable(e.CallerAddress), nullable(e.CallerAgent))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListAuditEvents implements Store.
func (p *Postgres) ListAuditEvents(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, created_at, action, slug, version, content_hash, actor, coalesce(ip, ''), coalesce(user_agent, '')
		FROM audit_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			id     uuid.UUID
			action string
		)
		if err := rows.Scan(&id, &e.Timestamp, &action, &e.Slug, &e.Version, &e.Digest, &e.Actor,
			&e.CallerAddress, &e.CallerAgent); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.String()
		e.Action = audit.Action(action)
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}
	return out, nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Stat reports connection pool statistics.
func (p *Postgres) Stat() *pgxpool.Stat {
	return p.pool.Stat()
}

// Close implements Store.
func (p *Postgres) Close() {
	p.pool.Close()
}

func insertVersion(ctx context.Context, tx pgx.Tx, skillID string, v Version) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO skill_versions (id, skill_id, version, content_markdown, content_hash, signature, public_key, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, skillID, v.Version, v.ContentMarkdown, v.ContentHash, v.Signature, v.PublicKey, v.PublishedAt)
	if err != nil {
		return classify("insert version", err)
	}
	return nil
}

func scanSkill(row pgx.Row) (*Skill, error) {
	var (
		s  Skill
		id uuid.UUID
	)
	err := row.Scan(&id, &s.Slug, &s.Title, &s.Description, &s.Tags, &s.Capabilities,
		&s.AuthorDisplayName, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan skill: %w", err)
	}
	s.ID = id.String()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func scanVersion(row pgx.Row) (*Version, error) {
	var (
		v           Version
		id, skillID uuid.UUID
	)
	err := row.Scan(&id, &skillID, &v.Version, &v.ContentMarkdown, &v.ContentHash, &v.Signature,
		&v.PublicKey, &v.PublishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}
	v.ID = id.String()
	v.SkillID = skillID.String()
	v.PublishedAt = v.PublishedAt.UTC()
	return &v, nil
}

func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

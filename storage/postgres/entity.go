// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/storage"
)

const (
	defaultDimensions = 1536
	uniqueViolation   = "23505"
)

// Config holds connection settings for the PostgreSQL entity store.
type Config struct {
	// URL is a libpq-style connection string or postgres:// URL.
	URL string
	// Dimensions is the embedding column width. Defaults to 1536.
	Dimensions int
	// MaxConns caps the pool size; 0 keeps the pgxpool default.
	MaxConns int32
}

// txKey is the context key under which WithTransaction stores the open tx.
type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntityRepository implements storage.EntityRepository on PostgreSQL with
// the pgvector extension.
type EntityRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// Open connects to PostgreSQL, creates the schema if needed and returns a
// pooled repository. Every pooled connection has the vector type registered.
func Open(ctx context.Context, cfg Config) (*EntityRepository, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: database URL is empty", storage.ErrInvalidQuery)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultDimensions
	}
	logger := slog.Default().With("component", "postgres")

	// The extension must exist before vector types can be registered.
	conn, err := pgx.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	_, err = conn.Exec(ctx, schemaSQL(cfg.Dimensions))
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	logger.Info("connected", "dimensions", cfg.Dimensions)
	return &EntityRepository{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (r *EntityRepository) Close() error {
	r.pool.Close()
	return nil
}

// WithTransaction runs fn inside a single database transaction carried by ctx.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

func (r *EntityRepository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.pool
}

const entityColumns = `id, first_name, last_name, name, email, linkedin_url, company, position,
	connected_on, role, sector_focus, stage_focus, location, check_size_min, check_size_max,
	investment_thesis, tags, embedding, confidence, enriched_at, inserted_at, updated_at, metadata`

// AddEntities inserts entities and reads back their generated IDs.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.WithTransaction(ctx, func(ctx context.Context) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}
			now := time.Now().UTC()
			err := r.q(ctx).QueryRow(ctx, `
INSERT INTO entities (first_name, last_name, name, email, linkedin_url, company, position,
	connected_on, role, sector_focus, stage_focus, location, check_size_min, check_size_max,
	investment_thesis, tags, embedding, confidence, enriched_at, inserted_at, updated_at, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20, $21)
RETURNING id`,
				entityArgs(entity, now)...,
			).Scan(&entity.Id)
			if err != nil {
				return mapError(err)
			}
			entity.InsertedAt = now
			entity.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// UpdateEntities replaces every mutable column of existing entities.
func (r *EntityRepository) UpdateEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	err := r.WithTransaction(ctx, func(ctx context.Context) error {
		for _, entity := range entities {
			if err := core.ValidateEntity(entity); err != nil {
				return err
			}
			now := time.Now().UTC()
			args := append(entityArgs(entity, now), int64(entity.Id))
			err := r.q(ctx).QueryRow(ctx, `
UPDATE entities SET first_name = $1, last_name = $2, name = $3, email = $4, linkedin_url = $5,
	company = $6, position = $7, connected_on = $8, role = $9, sector_focus = $10,
	stage_focus = $11, location = $12, check_size_min = $13, check_size_max = $14,
	investment_thesis = $15, tags = $16, embedding = $17, confidence = $18,
	enriched_at = $19, updated_at = $20, metadata = $21
WHERE id = $22
RETURNING inserted_at`,
				args...,
			).Scan(&entity.InsertedAt)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: entity %d", storage.ErrNotFound, entity.Id)
			}
			if err != nil {
				return mapError(err)
			}
			entity.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	row := r.q(ctx).QueryRow(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = $1`, int64(id))
	return scanOne(row)
}

// GetEntities retrieves the entities that exist among ids, in request order.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := r.q(ctx).Query(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ANY($1)`, raw)
	if err != nil {
		return nil, err
	}
	found, err := collectEntities(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[core.ID]*core.Entity, len(found))
	for _, e := range found {
		byID[e.Id] = e
	}
	result := make([]*core.Entity, 0, len(found))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			result = append(result, e)
		}
	}
	return result, nil
}

// FindByEmail finds an entity by email, ignoring case.
func (r *EntityRepository) FindByEmail(ctx context.Context, email string) (*core.Entity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, storage.ErrNotFound
	}
	row := r.q(ctx).QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE lower(btrim(email)) = lower($1) AND btrim(email) <> ''`, email)
	return scanOne(row)
}

// FindByLinkedInURL finds an entity by profile URL, ignoring case.
func (r *EntityRepository) FindByLinkedInURL(ctx context.Context, url string) (*core.Entity, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, storage.ErrNotFound
	}
	row := r.q(ctx).QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE lower(btrim(linkedin_url)) = lower($1) AND btrim(linkedin_url) <> ''`, url)
	return scanOne(row)
}

// FindEntities returns entities matching filter ordered by ID.
func (r *EntityRepository) FindEntities(ctx context.Context, filter storage.EntityFilter, limit int) ([]*core.Entity, error) {
	where, args := filterClause(filter, nil)
	sql := `SELECT ` + entityColumns + ` FROM entities` + where + ` ORDER BY id`
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectEntities(rows)
}

// FindSimilar orders embedded entities by cosine distance to vector.
func (r *EntityRepository) FindSimilar(ctx context.Context, vector []float32, filter storage.EntityFilter, limit int) ([]*storage.SimilarEntity, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	args := []any{pgvector.NewVector(vector)}
	where, args := filterClause(filter, args)
	if where == "" {
		where = ` WHERE embedding IS NOT NULL`
	} else {
		where += ` AND embedding IS NOT NULL`
	}
	sql := `SELECT ` + entityColumns + `, 1 - (embedding <=> $1) AS similarity FROM entities` +
		where + ` ORDER BY embedding <=> $1, id`
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*storage.SimilarEntity
	for rows.Next() {
		var similarity float64
		entity, err := scanEntity(rows, &similarity)
		if err != nil {
			return nil, err
		}
		results = append(results, &storage.SimilarEntity{Entity: entity, Similarity: similarity})
	}
	return results, rows.Err()
}

// ListEntities pages through entities in ID order.
func (r *EntityRepository) ListEntities(ctx context.Context, afterID core.ID, limit int) ([]*core.Entity, error) {
	args := []any{int64(afterID)}
	sql := `SELECT ` + entityColumns + ` FROM entities WHERE id > $1 ORDER BY id`
	if limit > 0 {
		args = append(args, limit)
		sql += ` LIMIT $2`
	}
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectEntities(rows)
}

// CountByRole returns the number of entities per role.
func (r *EntityRepository) CountByRole(ctx context.Context) (map[core.Role]int, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT role, count(*) FROM entities GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[core.Role]int)
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[core.Role(role)] = int(n)
	}
	return counts, rows.Err()
}

// AddConnections upserts connections keyed by (source, target).
func (r *EntityRepository) AddConnections(ctx context.Context, conns ...*core.Connection) error {
	return r.WithTransaction(ctx, func(ctx context.Context) error {
		for _, conn := range conns {
			if err := core.ValidateConnection(conn); err != nil {
				return err
			}
			if conn.CreatedAt.IsZero() {
				conn.CreatedAt = time.Now().UTC()
			}
			_, err := r.q(ctx).Exec(ctx, `
INSERT INTO connections (source_id, target_id, rel_type, strength, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (source_id, target_id)
DO UPDATE SET rel_type = EXCLUDED.rel_type, strength = EXCLUDED.strength`,
				int64(conn.Source), int64(conn.Target), conn.Type, conn.Strength, conn.CreatedAt)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetConnections returns connections touching id in either direction.
func (r *EntityRepository) GetConnections(ctx context.Context, id core.ID) ([]*core.Connection, error) {
	rows, err := r.q(ctx).Query(ctx, `
SELECT source_id, target_id, rel_type, strength, created_at
FROM connections
WHERE source_id = $1 OR target_id = $1
ORDER BY source_id, target_id`, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*core.Connection
	for rows.Next() {
		var source, target int64
		conn := &core.Connection{}
		if err := rows.Scan(&source, &target, &conn.Type, &conn.Strength, &conn.CreatedAt); err != nil {
			return nil, err
		}
		conn.Source, conn.Target = core.ID(source), core.ID(target)
		conn.CreatedAt = conn.CreatedAt.UTC()
		result = append(result, conn)
	}
	return result, rows.Err()
}

// CountConnections returns the number of stored connections.
func (r *EntityRepository) CountConnections(ctx context.Context) (int, error) {
	var n int64
	err := r.q(ctx).QueryRow(ctx, `SELECT count(*) FROM connections`).Scan(&n)
	return int(n), err
}

// DeleteAll truncates both tables. The ID sequence is not reset.
func (r *EntityRepository) DeleteAll(ctx context.Context) error {
	_, err := r.q(ctx).Exec(ctx, `TRUNCATE connections, entities`)
	return err
}

// Helper functions

// entityArgs returns the 21 insert/update parameters for entity in column order.
func entityArgs(e *core.Entity, now time.Time) []any {
	var embedding *pgvector.Vector
	if e.HasEmbedding() {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}
	var metadata map[string]string
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	return []any{
		e.FirstName, e.LastName, e.Name, e.Email, e.LinkedInURL, e.Company, e.Position,
		nullTime(e.ConnectedOn), string(e.Role), nonNil(e.SectorFocus), nonNil(e.StageFocus), e.Location,
		e.CheckSizeMin, e.CheckSizeMax, e.InvestmentThesis, nonNil(e.Tags),
		embedding, e.Confidence, nullTime(e.EnrichedAt), now, metadata,
	}
}

func scanOne(row pgx.Row) (*core.Entity, error) {
	entity, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return entity, err
}

func collectEntities(rows pgx.Rows) ([]*core.Entity, error) {
	defer rows.Close()
	var result []*core.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, rows.Err()
}

// scanEntity reads entityColumns followed by any extra destinations.
func scanEntity(row pgx.Row, extra ...any) (*core.Entity, error) {
	var (
		e           core.Entity
		id          int64
		role        string
		connectedOn *time.Time
		enrichedAt  *time.Time
		embedding   *pgvector.Vector
		metadata    map[string]string
	)
	dest := []any{
		&id, &e.FirstName, &e.LastName, &e.Name, &e.Email, &e.LinkedInURL, &e.Company, &e.Position,
		&connectedOn, &role, &e.SectorFocus, &e.StageFocus, &e.Location, &e.CheckSizeMin, &e.CheckSizeMax,
		&e.InvestmentThesis, &e.Tags, &embedding, &e.Confidence, &enrichedAt, &e.InsertedAt, &e.UpdatedAt, &metadata,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	e.Id = core.ID(id)
	e.Role = core.Role(role)
	if connectedOn != nil {
		e.ConnectedOn = connectedOn.UTC()
	}
	if enrichedAt != nil {
		e.EnrichedAt = enrichedAt.UTC()
	}
	if embedding != nil {
		e.Embedding = embedding.Slice()
	}
	e.InsertedAt = e.InsertedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.SectorFocus = nilIfEmpty(e.SectorFocus)
	e.StageFocus = nilIfEmpty(e.StageFocus)
	e.Tags = nilIfEmpty(e.Tags)
	if len(metadata) > 0 {
		e.Metadata = metadata
	}
	return &e, nil
}

// filterClause renders filter as a WHERE clause whose placeholders continue
// after the existing args.
func filterClause(filter storage.EntityFilter, args []any) (string, []any) {
	var conds []string
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Role != "" {
		add(`role = $%d`, string(filter.Role))
	}
	if filter.Sector != "" {
		add(`array_to_string(sector_focus, ',') ILIKE $%d`, likePattern(filter.Sector))
	}
	if filter.Stage != "" {
		add(`array_to_string(stage_focus, ',') ILIKE $%d`, likePattern(filter.Stage))
	}
	if filter.Location != "" {
		add(`location ILIKE $%d`, likePattern(filter.Location))
	}
	if filter.MinCheckSize > 0 {
		add(`(check_size_min IS NULL OR check_size_min <= $%d)`, filter.MinCheckSize)
	}
	if filter.MaxCheckSize > 0 {
		add(`(check_size_max IS NULL OR check_size_max >= $%d)`, filter.MaxCheckSize)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pgErr.ConstraintName)
	}
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

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


package sprintly

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/ai/openai"
	"github.com/poiesic/sprintly/core"
	"github.com/poiesic/sprintly/graph"
	"github.com/poiesic/sprintly/ingestion"
	"github.com/poiesic/sprintly/reembed"
	"github.com/poiesic/sprintly/search"
	"github.com/poiesic/sprintly/storage"
	"github.com/poiesic/sprintly/storage/badger"
	"github.com/poiesic/sprintly/storage/neo4j"
	"github.com/poiesic/sprintly/storage/postgres"
)

// Database wires the entity store, the relationship store and the AI
// provider together and hands out the services built on them.
type Database struct {
	backend        *badger.Backend
	entityRepo     storage.EntityRepository
	graphRepo      storage.GraphRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	dimensions     int
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	postgres *postgres.Config
	neo4j    *neo4j.Config
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
// The database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithPostgres stores entities in PostgreSQL instead of badger.
func WithPostgres(config postgres.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.postgres = &config
	}
}

// WithNeo4j stores the relationship graph in Neo4j instead of badger.
func WithNeo4j(config neo4j.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.neo4j = &config
	}
}

// WithInMemory keeps the badger stores in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to the services.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the stores and the AI provider. Badger at filePath backs
// every store not redirected to PostgreSQL or Neo4j, plus the checkpoints.
func NewDatabase(ctx context.Context, filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{logger: options.logger}
	if options.provider == nil {
		// A custom provider's vector size is unknown
		db.dimensions = options.aiConfig.Dimensions
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	db.backend = backend
	db.checkpointRepo = badger.NewCheckpointRepository(backend)

	db.entityRepo, err = openEntityStore(ctx, backend, options)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening entity store: %w", err)
	}

	db.graphRepo, err = openGraphStore(ctx, backend, options)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening relationship store: %w", err)
	}

	// Create AI provider with configured settings
	db.provider = options.provider
	if db.provider == nil {
		db.provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func openEntityStore(ctx context.Context, backend *badger.Backend, options *databaseOptions) (storage.EntityRepository, error) {
	if options.postgres == nil {
		repo, err := badger.NewEntityRepository(backend)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	config := *options.postgres
	if config.Dimensions == 0 {
		config.Dimensions = options.aiConfig.Dimensions
	}
	repo, err := postgres.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func openGraphStore(ctx context.Context, backend *badger.Backend, options *databaseOptions) (storage.GraphRepository, error) {
	if options.neo4j == nil {
		repo, err := badger.NewGraphRepository(backend)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	repo, err := neo4j.Open(ctx, *options.neo4j)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// Close releases the provider and every store. All close errors are returned.
func (db *Database) Close() error {
	var errs []error

	// Close AI provider first
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	// Close repositories
	if db.graphRepo != nil {
		if err := db.graphRepo.Close(); err != nil {
			db.logger.Error("error closing relationship store", "err", err)
			errs = append(errs, err)
		}
	}
	if db.entityRepo != nil {
		if err := db.entityRepo.Close(); err != nil {
			db.logger.Error("error closing entity store", "err", err)
			errs = append(errs, err)
		}
	}

	// Close backend
	if db.backend != nil {
		if err := db.backend.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (db *Database) EntityRepository() storage.EntityRepository {
	return db.entityRepo
}

func (db *Database) GraphRepository() storage.GraphRepository {
	return db.graphRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// EnsureOwner returns the entity with email, creating it (and its graph node)
// when missing. The owner is the source of every imported connection.
func (db *Database) EnsureOwner(ctx context.Context, name, email string) (*core.Entity, error) {
	owner, err := db.entityRepo.FindByEmail(ctx, email)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	added, err := db.entityRepo.AddEntities(ctx, &core.Entity{
		Name:  name,
		Email: email,
		Role:  core.RoleOther,
	})
	if err != nil {
		return nil, fmt.Errorf("creating owner: %w", err)
	}
	owner = added[0]

	if err := db.graphRepo.UpsertNode(ctx, owner.Id); err != nil {
		return nil, fmt.Errorf("creating owner node: %w", err)
	}
	db.logger.Info("created network owner", "id", owner.Id, "email", email)
	return owner, nil
}

// Reset wipes every entity, connection and graph node, and forgets any
// re-embedding checkpoint.
func (db *Database) Reset(ctx context.Context) error {
	if err := db.entityRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("wiping entities: %w", err)
	}
	if err := db.graphRepo.Wipe(ctx); err != nil {
		return fmt.Errorf("wiping graph: %w", err)
	}
	return db.checkpointRepo.ClearCheckpoint(ctx, reembed.CheckpointType)
}

// NewIngestionPipeline returns a pipeline that mirrors into the relationship
// store and enforces the configured embedding dimension.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{
		ingestion.WithGraphRepository(db.graphRepo),
		ingestion.WithDimensions(db.dimensions),
		ingestion.WithLogger(db.logger),
	}
	return ingestion.NewPipeline(db.entityRepo, db.provider, append(defaults, opts...)...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.entityRepo, db.provider, append([]search.Option{search.WithLogger(db.logger)}, opts...)...)
}

func (db *Database) NewGraphService(opts ...graph.Option) (*graph.Service, error) {
	return graph.NewService(db.entityRepo, db.graphRepo, append([]graph.Option{graph.WithLogger(db.logger)}, opts...)...)
}

// NewReembedder returns a resumable re-embedder writing progress to w.
func (db *Database) NewReembedder(config *reembed.Config, w io.Writer) (*reembed.Reembedder, error) {
	if config == nil {
		config = reembed.DefaultConfig()
	}
	if config.Dimensions == 0 {
		config.Dimensions = db.dimensions
	}
	return reembed.NewReembedder(db.entityRepo, db.checkpointRepo, db.provider.Embedder(), config, w)
}

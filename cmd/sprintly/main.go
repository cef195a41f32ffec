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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/sprintly"
	"github.com/poiesic/sprintly/ai"
	"github.com/poiesic/sprintly/ingestion"
	"github.com/poiesic/sprintly/storage/neo4j"
	"github.com/poiesic/sprintly/storage/postgres"
)

func main() {
	// A missing .env file is fine; flags and the environment still apply
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sprintly",
		Usage: "Match founders with investors and find warm introductions in your network",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./sprintly_db",
				EnvVars: []string{"SPRINTLY_DB"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL URL; stores entities in Postgres/pgvector instead of BadgerDB",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "neo4j-uri",
				Usage:   "Neo4j URI; stores the relationship graph in Neo4j instead of BadgerDB",
				EnvVars: []string{"NEO4J_URI"},
			},
			&cli.StringFlag{
				Name:    "neo4j-user",
				Usage:   "Neo4j user name",
				Value:   "neo4j",
				EnvVars: []string{"NEO4J_USER"},
			},
			&cli.StringFlag{
				Name:    "neo4j-password",
				Usage:   "Neo4j password",
				EnvVars: []string{"NEO4J_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "neo4j-database",
				Usage:   "Neo4j database name (server default if empty)",
				EnvVars: []string{"NEO4J_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the OpenAI-compatible service",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "ai-host",
				Usage:   "OpenAI-compatible service URL used for embeddings and classification",
				Value:   ai.DefaultHost,
				EnvVars: []string{"OPENAI_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: ai.DefaultEmbeddingModel,
			},
			&cli.StringFlag{
				Name:  "classifier-model",
				Usage: "Classification model name",
				Value: ai.DefaultClassifierModel,
			},
			&cli.IntFlag{
				Name:  "dimensions",
				Usage: "Embedding dimensions",
				Value: ai.DefaultDimensions,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Import a LinkedIn connections export as connections of the network owner",
				ArgsUsage: "<connections.csv>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner-email",
						Usage:    "Email of the network owner (created if missing)",
						Required: true,
						EnvVars:  []string{"SPRINTLY_OWNER_EMAIL"},
					},
					&cli.StringFlag{
						Name:    "owner-name",
						Usage:   "Name of the network owner when it is created",
						Value:   "Me",
						EnvVars: []string{"SPRINTLY_OWNER_NAME"},
					},
					&cli.BoolFlag{
						Name:  "skip-enrichment",
						Usage: "Store contacts without classification or embeddings",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: fmt.Sprintf("Concurrent classification calls (max %d)", ingestion.MaxPoolSize),
						Value: ingestion.DefaultPoolSize,
					},
					&cli.DurationFlag{
						Name:  "progress-interval",
						Usage: "How often to print progress",
						Value: 2 * time.Second,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Rank people in the network against a free-text query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Usage: "Filter by role (founder, investor, enabler, other, all)"},
					&cli.StringFlag{Name: "sector", Usage: "Filter by sector focus substring"},
					&cli.StringFlag{Name: "stage", Usage: "Filter by stage focus substring"},
					&cli.StringFlag{Name: "location", Usage: "Filter by location substring"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of matches", Value: 10},
				},
			},
			{
				Name:   "intro-path",
				Usage:  "Find the shortest introduction chain between two people",
				Action: introPathCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "from", Usage: "Source entity ID", Required: true},
					&cli.Uint64Flag{Name: "to", Usage: "Target entity ID", Required: true},
					&cli.IntFlag{Name: "max-depth", Usage: "Maximum hops (0 for the default)"},
				},
			},
			{
				Name:   "mutual",
				Usage:  "List mutual connections of two people",
				Action: mutualCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "a", Usage: "First entity ID", Required: true},
					&cli.Uint64Flag{Name: "b", Usage: "Second entity ID", Required: true},
				},
			},
			{
				Name:   "strength",
				Usage:  "Score how closely two people are connected",
				Action: strengthCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "from", Usage: "Source entity ID", Required: true},
					&cli.Uint64Flag{Name: "to", Usage: "Target entity ID", Required: true},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show network statistics",
				Action: statsCommand,
			},
			{
				Name:   "investors",
				Usage:  "List investors connected to an owner, or matching investment criteria",
				Action: investorsCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "owner", Usage: "List investors directly connected to this entity ID"},
					&cli.StringFlag{Name: "sector", Usage: "Sector focus substring"},
					&cli.StringFlag{Name: "stage", Usage: "Stage focus substring"},
					&cli.StringFlag{Name: "location", Usage: "Location substring"},
					&cli.Int64Flag{Name: "min-check", Usage: "Minimum check size the investor must accept"},
					&cli.Int64Flag{Name: "max-check", Usage: "Maximum check size the investor must accept"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of investors", Value: 20},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Generate embeddings for entities that lack one",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Re-embed every entity, e.g. after switching embedding models",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entities to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entities",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each embedding call",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "reset",
				Usage:  "Delete every entity, connection and graph node",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm the reset"},
				},
			},
		},
	}
}

// openDatabase builds the database from the global flags.
func openDatabase(c *cli.Context) (*sprintly.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithClassifierModel(c.String("classifier-model")),
		ai.WithDimensions(c.Int("dimensions")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []sprintly.DatabaseOption{sprintly.WithAIConfig(aiConfig)}
	if url := c.String("database-url"); url != "" {
		opts = append(opts, sprintly.WithPostgres(postgres.Config{URL: url}))
	}
	if uri := c.String("neo4j-uri"); uri != "" {
		opts = append(opts, sprintly.WithNeo4j(neo4j.Config{
			URI:      uri,
			User:     c.String("neo4j-user"),
			Password: c.String("neo4j-password"),
			Database: c.String("neo4j-database"),
		}))
	}

	db, err := sprintly.NewDatabase(c.Context, c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

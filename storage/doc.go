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


// Package storage provides the storage abstraction layer for sprintly.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two stores are modelled separately:
//
//   - EntityRepository: the system of record for people, their enrichment,
//     embeddings and the connections created at import time
//   - GraphRepository: the relationship graph used for traversals
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to enforce abstraction and allow
// alternative backends to be swapped in:
//
//	entities, err := badger.NewEntityRepository(backend)  // storage.EntityRepository
//	graph, err := neo4j.Open(ctx, cfg)                     // storage.GraphRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Backends
//
//   - storage/badger: embedded BadgerDB implementation of both repositories
//   - storage/postgres: PostgreSQL + pgvector EntityRepository
//   - storage/neo4j: Neo4j GraphRepository
//
// Use in tests with in-memory storage:
//
//	entities, graph, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Transactions
//
// EntityRepository.WithTransaction carries the open transaction in the context
// handed to the callback. Repository calls made with that context join the
// transaction, so a batch of entities and their connections commit together.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage

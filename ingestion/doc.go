// Package ingestion imports contacts into the network.
//
// The Pipeline type runs each import through five stages:
//   - Deduplication against stored entities by email, then profile URL
//   - Classification of new contacts on a bounded worker pool
//   - Batched embedding with a one-by-one fallback for failed batches
//   - Batched persistence of entities and their owner connection
//   - Best-effort mirroring of nodes and edges into the relationship graph
//
// Per-item failures (classification, embedding, graph writes) are recorded as
// soft errors and never abort a run. Store failures are fatal. A
// ProgressTracker can be polled while a run is in flight.
package ingestion

// Package reembed rebuilds entity embeddings, either for entities imported
// without one (enrichment skipped or the embedding service failed) or for
// every entity after an embedding model change.
//
// Work proceeds in ID order in batches. Each batch is embedded with
// exponential-backoff retry, normalized to unit length and written back.
// With a checkpoint repository, an interrupted run resumes after the last
// completed batch.
package reembed
